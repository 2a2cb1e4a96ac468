package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/routerchat/routerchat/internal/auth"
	"github.com/routerchat/routerchat/internal/core"
	"github.com/routerchat/routerchat/internal/store"
	"github.com/routerchat/routerchat/internal/utils"
)

type APIHandler struct {
	auth     *core.AuthService
	chat     *core.ChatService
	sessions *core.SessionService
	tokens   *auth.SessionTokens
	markdown *utils.MarkdownRenderer
	pages    *template.Template
}

func NewAPIHandler(as *core.AuthService, cs *core.ChatService, ss *core.SessionService, tokens *auth.SessionTokens) *APIHandler {
	return &APIHandler{
		auth:     as,
		chat:     cs,
		sessions: ss,
		tokens:   tokens,
		markdown: utils.NewMarkdownRenderer(),
		pages:    parsePages(),
	}
}

type MessageView struct {
	Role      store.Role    `json:"role"`
	Content   string        `json:"content"`
	HTML      template.HTML `json:"html"`
	Timestamp string        `json:"timestamp"`
}

type ConversationView struct {
	Messages []MessageView `json:"messages"`
	Stats    store.Stats   `json:"stats"`
}

func (h *APIHandler) conversationView(ctx context.Context, sessionID string) (*ConversationView, error) {
	msgs, stats, err := h.chat.Conversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := &ConversationView{
		Messages: make([]MessageView, 0, len(msgs)),
		Stats:    stats,
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, MessageView{
			Role:      m.Role,
			Content:   m.Content,
			HTML:      h.markdown.Render(m.Content),
			Timestamp: m.Timestamp(),
		})
	}
	return view, nil
}

const (
	maxLoginBodyBytes   = 16 << 10
	maxMessageBodyBytes = 256 << 10
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func (h *APIHandler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	if h.authenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderPage(w, http.StatusOK, "login.html", loginPage{})
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	jsonReq := isJSON(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	var req LoginRequest
	if jsonReq {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form body", http.StatusBadRequest)
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	fresh, err := h.auth.Login(r.Context(), sess.ID, req.Username, req.Password)
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		if jsonReq {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.renderPage(w, http.StatusUnauthorized, "login.html", loginPage{Error: "Invalid credentials", Username: req.Username})
		return
	case err != nil:
		log.Printf("Error logging in session %s: %v", sess.ID, err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	if err := h.setSessionCookie(w, r, fresh.ID); err != nil {
		log.Printf("Error signing session token for %s: %v", fresh.ID, err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	h.chat.Forget(sess.ID)

	if jsonReq {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *APIHandler) ChatPageHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	view, err := h.conversationView(r.Context(), sess.ID)
	if err != nil {
		log.Printf("Error loading conversation for session %s: %v", sess.ID, err)
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, http.StatusOK, "chat.html", chatPage{
		Conversation:       view,
		Models:             core.AvailableModels,
		DefaultModel:       core.DefaultModel(),
		DefaultTemperature: core.DefaultTemperature,
		MinTemperature:     core.MinTemperature,
		MaxTemperature:     core.MaxTemperature,
		TemperatureStep:    core.TemperatureStep,
	})
}

type ModelsResponse struct {
	Models             []string `json:"models"`
	DefaultModel       string   `json:"default_model"`
	DefaultTemperature float64  `json:"default_temperature"`
}

func (h *APIHandler) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Models:             core.AvailableModels,
		DefaultModel:       core.DefaultModel(),
		DefaultTemperature: core.DefaultTemperature,
	})
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	view, err := h.conversationView(r.Context(), sess.ID)
	if err != nil {
		log.Printf("Error loading conversation for session %s: %v", sess.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type PostMessageRequest struct {
	Content     string   `json:"content"`
	APIKey      string   `json:"api_key"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBodyBytes)

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	submit := core.SubmitRequest{
		Content:     req.Content,
		APIKey:      req.APIKey,
		Model:       req.Model,
		Temperature: core.DefaultTemperature,
	}
	if submit.Model == "" {
		submit.Model = core.DefaultModel()
	}
	if req.Temperature != nil {
		submit.Temperature = *req.Temperature
	}

	_, err := h.chat.Submit(r.Context(), sess.ID, submit)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingAPIKey),
			errors.Is(err, core.ErrEmptyMessage),
			errors.Is(err, core.ErrUnknownModel),
			errors.Is(err, core.ErrInvalidTemperature):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "Request cancelled while waiting for the previous message")
		default:
			log.Printf("Error posting message for session %s: %v", sess.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to post message")
		}
		return
	}

	h.GetMessagesHandler(w, r)
}

func (h *APIHandler) ClearMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	if err := h.chat.Clear(r.Context(), sess.ID); err != nil {
		log.Printf("Error clearing chat for session %s: %v", sess.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to clear chat")
		return
	}
	h.GetMessagesHandler(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
