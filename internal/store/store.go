package store

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Store holds per-browser sessions and their conversation logs. Messages
// are append-only; the only removal is ClearMessages or DeleteSession.
type Store interface {
	CreateSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string) error
	MarkAuthenticated(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, id string, msg Message) error
	ListMessages(ctx context.Context, id string) ([]Message, error)
	ClearMessages(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteIdleSessions removes sessions not seen since before and returns
	// their IDs.
	DeleteIdleSessions(ctx context.Context, before time.Time) ([]string, error)
	Close() error
}
