package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memorySession struct {
	session  Session
	messages []Message
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context) (*Session, error) {
	now := s.now()
	sess := Session{ID: uuid.NewString(), CreatedAt: now, LastSeenAt: now}

	s.mu.Lock()
	s.sessions[sess.ID] = &memorySession{session: sess}
	s.mu.Unlock()

	return &sess, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ms, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := ms.session
	return &sess, nil
}

func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	return s.update(id, func(ms *memorySession) {
		ms.session.LastSeenAt = s.now()
	})
}

func (s *MemoryStore) MarkAuthenticated(ctx context.Context, id string) error {
	return s.update(id, func(ms *memorySession) {
		ms.session.Authenticated = true
	})
}

func (s *MemoryStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	return s.update(id, func(ms *memorySession) {
		ms.messages = append(ms.messages, msg)
	})
}

func (s *MemoryStore) ListMessages(ctx context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ms, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]Message, len(ms.messages))
	copy(out, ms.messages)
	return out, nil
}

func (s *MemoryStore) ClearMessages(ctx context.Context, id string) error {
	return s.update(id, func(ms *memorySession) {
		ms.messages = nil
	})
}

func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) DeleteIdleSessions(ctx context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, ms := range s.sessions {
		if ms.session.LastSeenAt.Before(before) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) update(id string, fn func(*memorySession)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	fn(ms)
	return nil
}
