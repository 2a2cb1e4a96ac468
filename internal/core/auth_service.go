package core

import (
	"context"
	"fmt"
	"log"

	"github.com/routerchat/routerchat/internal/auth"
	"github.com/routerchat/routerchat/internal/store"
)

// AuthService turns an unauthenticated session into an authenticated one.
// There is no way back within a session.
type AuthService struct {
	gate  *auth.Gate
	store store.Store
}

func NewAuthService(gate *auth.Gate, s store.Store) *AuthService {
	return &AuthService{gate: gate, store: s}
}

// Login returns ErrInvalidCredentials for a wrong username or password
// alike. Failed attempts are not counted or throttled.
//
// A successful login never authenticates the presented session ID: it
// returns a new authenticated session holding the old log and deletes the
// old session.
func (s *AuthService) Login(ctx context.Context, sessionID, username, password string) (*store.Session, error) {
	if !s.gate.CheckCredentials(username, password) {
		log.Printf("Failed login attempt for session %s", sessionID)
		return nil, ErrInvalidCredentials
	}

	msgs, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	fresh, err := s.store.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.store.MarkAuthenticated(ctx, fresh.ID); err != nil {
		return nil, fmt.Errorf("failed to mark session authenticated: %w", err)
	}
	fresh.Authenticated = true

	for _, m := range msgs {
		if err := s.store.AppendMessage(ctx, fresh.ID, m); err != nil {
			return nil, fmt.Errorf("failed to carry over message: %w", err)
		}
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to delete previous session: %w", err)
	}
	return fresh, nil
}

func (s *AuthService) IsAuthenticated(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return sess.Authenticated, nil
}
