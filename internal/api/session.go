package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/routerchat/routerchat/internal/auth"
	"github.com/routerchat/routerchat/internal/store"
)

const sessionCookieName = "routerchat_session"

type ctxKey string

const sessionKey ctxKey = "session"

func sessionFromContext(ctx context.Context) *store.Session {
	sess, _ := ctx.Value(sessionKey).(*store.Session)
	return sess
}

// SessionMiddleware binds every request to a server-side session. The
// cookie has no Max-Age, so the browser drops it when its session ends; the
// token inside expires on its own and is reissued while the session is used.
func (h *APIHandler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		var token *auth.SessionToken
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if tok, err := h.tokens.Validate(cookie.Value); err == nil {
				token = tok
				sessionID = tok.SessionID
			}
		}

		sess, created, err := h.sessions.Resolve(r.Context(), sessionID)
		if err != nil {
			log.Printf("Error resolving session: %v", err)
			http.Error(w, "Failed to load session", http.StatusInternalServerError)
			return
		}

		if created || h.tokens.NeedsRefresh(token) {
			if err := h.setSessionCookie(w, r, sess.ID); err != nil {
				log.Printf("Error signing session token for %s: %v", sess.ID, err)
				http.Error(w, "Failed to create session", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *APIHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) error {
	token, err := h.tokens.Generate(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// RequirePageAuth redirects unauthenticated browsers to the login page.
func (h *APIHandler) RequirePageAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIAuth answers 401 JSON for unauthenticated API calls.
func (h *APIHandler) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authenticated(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) authenticated(r *http.Request) bool {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		return false
	}
	ok, err := h.auth.IsAuthenticated(r.Context(), sess.ID)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		log.Printf("Error checking authentication for session %s: %v", sess.ID, err)
	}
	return ok
}
