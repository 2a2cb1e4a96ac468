package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/routerchat/routerchat/internal/store"
	"golang.org/x/sync/semaphore"
)

type SubmitRequest struct {
	Content     string
	APIKey      string
	Model       string
	Temperature float64
}

// Exchange is the pair of messages one submission appended.
type Exchange struct {
	User      store.Message
	Assistant store.Message
}

type ChatService struct {
	store     store.Store
	completer Completer
	now       func() time.Time

	mu    sync.Mutex
	slots map[string]*semaphore.Weighted
}

func NewChatService(s store.Store, c Completer) *ChatService {
	return &ChatService{
		store:     s,
		completer: c,
		now:       time.Now,
		slots:     make(map[string]*semaphore.Weighted),
	}
}

func validateSubmit(req SubmitRequest) error {
	if strings.TrimSpace(req.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(req.Content) == "" {
		return ErrEmptyMessage
	}
	if !IsKnownModel(req.Model) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, req.Model)
	}
	if req.Temperature < MinTemperature || req.Temperature > MaxTemperature {
		return ErrInvalidTemperature
	}
	return nil
}

// Submit appends the user message, asks the completer for a reply over the
// whole log and appends the reply. A completion failure does not fail
// Submit: its text becomes the assistant message. Validation errors return
// before anything is appended.
//
// Submissions for one session run one at a time. Once the user message is
// appended the exchange is finished even if ctx is cancelled, so the log
// never ends with an unanswered user message after Submit returns.
func (s *ChatService) Submit(ctx context.Context, sessionID string, req SubmitRequest) (*Exchange, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	slot := s.slot(sessionID)
	if err := slot.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for previous message: %w", err)
	}
	defer slot.Release(1)

	ctx = context.WithoutCancel(ctx)

	userMsg := store.Message{Role: store.RoleUser, Content: req.Content, CreatedAt: s.now()}
	if err := s.store.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	history, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	ex := &Exchange{User: userMsg}
	reply, err := s.completer.Complete(ctx, CompletionRequest{
		APIKey:      req.APIKey,
		Model:       req.Model,
		Messages:    toChatMessages(history),
		Temperature: req.Temperature,
	})
	if err != nil {
		log.Printf("Completion failed for session %s (model %s): %v", sessionID, req.Model, err)
		reply = assistantErrorText(err)
	}

	ex.Assistant = store.Message{Role: store.RoleAssistant, Content: reply, CreatedAt: s.now()}
	if err := s.store.AppendMessage(ctx, sessionID, ex.Assistant); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	return ex, nil
}

func (s *ChatService) Messages(ctx context.Context, sessionID string) ([]store.Message, error) {
	return s.store.ListMessages(ctx, sessionID)
}

// Conversation returns the log with statistics recomputed from that same
// read, so the two always agree.
func (s *ChatService) Conversation(ctx context.Context, sessionID string) ([]store.Message, store.Stats, error) {
	msgs, err := s.Messages(ctx, sessionID)
	if err != nil {
		return nil, store.Stats{}, err
	}
	return msgs, store.ComputeStats(msgs), nil
}

// Clear empties the log. It waits for an in-flight exchange so a reply
// cannot land in a log that was just cleared.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	slot := s.slot(sessionID)
	if err := slot.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for previous message: %w", err)
	}
	defer slot.Release(1)

	return s.store.ClearMessages(ctx, sessionID)
}

// Forget drops per-session bookkeeping once a session is gone.
func (s *ChatService) Forget(sessionID string) {
	s.mu.Lock()
	delete(s.slots, sessionID)
	s.mu.Unlock()
}

func (s *ChatService) slot(sessionID string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.slots[sessionID]
	if !ok {
		w = semaphore.NewWeighted(1)
		s.slots[sessionID] = w
	}
	return w
}

func toChatMessages(msgs []store.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
