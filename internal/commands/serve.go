package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/routerchat/routerchat/internal/api"
	"github.com/routerchat/routerchat/internal/auth"
	"github.com/routerchat/routerchat/internal/config"
	"github.com/routerchat/routerchat/internal/core"
	"github.com/routerchat/routerchat/internal/store"
	"github.com/spf13/cobra"
)

const sessionSweepInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.Debug() {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize session store
	sessionStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer sessionStore.Close()
	log.Printf("Using %s session store", cfg.StoreDriver)

	tokens, err := auth.NewSessionTokens(cfg.SessionSecret, cfg.SessionIdleTTL)
	if err != nil {
		return err
	}
	if cfg.SessionSecret == "" {
		log.Println("SESSION_SECRET not set, using a random key: sessions end when the process restarts")
	}

	// Initialize services
	llmService := core.NewLLMService(cfg.CompletionURL, cfg.CompletionTimeout,
		core.WithAttribution(cfg.AppReferer, cfg.AppTitle))
	gate := auth.NewGate(auth.Credential{Username: cfg.AppUser, PasswordHash: cfg.AppPasswordHash})

	chatService := core.NewChatService(sessionStore, llmService)
	sessionService := core.NewSessionService(sessionStore, chatService)
	authService := core.NewAuthService(gate, sessionStore)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(authService, chatService, sessionService, tokens)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CompletionTimeout + 30*time.Second, // a submission blocks on the completion call
		IdleTimeout:  120 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go sessionService.RunJanitor(janitorCtx, cfg.SessionIdleTTL, sessionSweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting gracefully")
	return nil
}
