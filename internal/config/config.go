package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	AppUser         string `env:"APP_USER"`
	AppPasswordHash string `env:"APP_PASSWORD_HASH"`

	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:routerchat?mode=memory&cache=shared"`

	CompletionURL     string        `env:"COMPLETION_URL" envDefault:"https://openrouter.ai/api/v1/chat/completions"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
	AppReferer        string        `env:"APP_REFERER"`
	AppTitle          string        `env:"APP_TITLE"`
}

var (
	ErrMissingUser         = errors.New("APP_USER environment variable is required")
	ErrMissingPasswordHash = errors.New("APP_PASSWORD_HASH environment variable is required")
)

// Load reads an optional .env file and then the process environment.
// The credential pair is mandatory: a missing or malformed pair is an error
// so the server never starts in a state where nobody can log in.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AppUser == "" {
		return ErrMissingUser
	}
	if c.AppPasswordHash == "" {
		return ErrMissingPasswordHash
	}
	if _, err := bcrypt.Cost([]byte(c.AppPasswordHash)); err != nil {
		return fmt.Errorf("APP_PASSWORD_HASH is not a bcrypt hash: %w", err)
	}
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want memory or sqlite)", c.StoreDriver)
	}
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive, got %s", c.CompletionTimeout)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.SessionIdleTTL)
	}
	return nil
}

func (c *Config) Debug() bool {
	return c.LogLevel == "DEBUG"
}
