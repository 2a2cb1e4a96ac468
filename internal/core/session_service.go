package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/routerchat/routerchat/internal/store"
)

type SessionService struct {
	store store.Store
	chat  *ChatService
	now   func() time.Time
}

func NewSessionService(s store.Store, chat *ChatService) *SessionService {
	return &SessionService{store: s, chat: chat, now: time.Now}
}

// Resolve returns the session for id, creating a fresh one when id is
// empty or unknown. created reports whether a new session was made.
func (s *SessionService) Resolve(ctx context.Context, id string) (sess *store.Session, created bool, err error) {
	if id != "" {
		sess, err = s.store.GetSession(ctx, id)
		switch {
		case err == nil:
			if err := s.store.Touch(ctx, id); err != nil {
				return nil, false, fmt.Errorf("failed to touch session: %w", err)
			}
			return sess, false, nil
		case !errors.Is(err, store.ErrSessionNotFound):
			return nil, false, fmt.Errorf("failed to load session: %w", err)
		}
	}

	sess, err = s.store.CreateSession(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, true, nil
}

// SweepIdle deletes sessions not seen for longer than ttl.
func (s *SessionService) SweepIdle(ctx context.Context, ttl time.Duration) (int, error) {
	removed, err := s.store.DeleteIdleSessions(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle sessions: %w", err)
	}
	for _, id := range removed {
		s.chat.Forget(id)
	}
	return len(removed), nil
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepIdle(ctx, ttl)
			if err != nil {
				log.Printf("Session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Removed %d idle sessions", n)
			}
		}
	}
}
