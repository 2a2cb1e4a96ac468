package core

import (
	"context"
	"testing"
	"time"

	"github.com/routerchat/routerchat/internal/auth"
	"github.com/routerchat/routerchat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*AuthService, store.Store, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	sess, err := s.CreateSession(context.Background())
	require.NoError(t, err)

	gate := auth.NewGate(auth.Credential{Username: "admin", PasswordHash: string(hash)})
	return NewAuthService(gate, s), s, sess.ID
}

func TestAuthService_Login(t *testing.T) {
	svc, _, id := newAuthFixture(t)
	ctx := context.Background()

	ok, err := svc.IsAuthenticated(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	sess, err := svc.Login(ctx, id, "admin", "letmein")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated)

	ok, err = svc.IsAuthenticated(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Logging in again from the authenticated session is harmless.
	again, err := svc.Login(ctx, sess.ID, "admin", "letmein")
	require.NoError(t, err)
	assert.True(t, again.Authenticated)
}

func TestAuthService_LoginIssuesNewSession(t *testing.T) {
	svc, s, id := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, s.AppendMessage(ctx, id, store.Message{Role: store.RoleUser, Content: "kept", CreatedAt: time.Now()}))

	sess, err := svc.Login(ctx, id, "admin", "letmein")
	require.NoError(t, err)
	assert.NotEqual(t, id, sess.ID)

	_, err = svc.IsAuthenticated(ctx, id)
	assert.ErrorIs(t, err, store.ErrSessionNotFound, "the pre-login session must not survive")

	msgs, err := s.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "kept", msgs[0].Content)
}

func TestAuthService_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, id := newAuthFixture(t)
	ctx := context.Background()

	_, errUser := svc.Login(ctx, id, "nobody", "letmein")
	_, errPass := svc.Login(ctx, id, "admin", "wrong")

	assert.ErrorIs(t, errUser, ErrInvalidCredentials)
	assert.ErrorIs(t, errPass, ErrInvalidCredentials)
	assert.Equal(t, errUser.Error(), errPass.Error())

	ok, err := svc.IsAuthenticated(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthService_NoLockout(t *testing.T) {
	svc, _, id := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.Login(ctx, id, "admin", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := svc.Login(ctx, id, "admin", "letmein")
	assert.NoError(t, err)
}

func TestAuthService_FailedLoginKeepsAuthenticatedSession(t *testing.T) {
	svc, _, id := newAuthFixture(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, id, "admin", "letmein")
	require.NoError(t, err)
	_, err = svc.Login(ctx, sess.ID, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	ok, err := svc.IsAuthenticated(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_UnknownSession(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), "missing", "admin", "letmein")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSessionService_Resolve(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewSessionService(s, NewChatService(s, &stubCompleter{}))
	ctx := context.Background()

	fresh, created, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Resolve(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, fresh.ID, again.ID)

	other, created, err := svc.Resolve(ctx, "stale-id")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "stale-id", other.ID)
}

func TestSessionService_SweepIdle(t *testing.T) {
	s := store.NewMemoryStore()
	chat := NewChatService(s, &stubCompleter{reply: "ok"})
	svc := NewSessionService(s, chat)
	ctx := context.Background()

	sess, _, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	_, err = chat.Submit(ctx, sess.ID, validSubmit("hello"))
	require.NoError(t, err)

	n, err := svc.SweepIdle(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = svc.SweepIdle(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	chat.mu.Lock()
	_, tracked := chat.slots[sess.ID]
	chat.mu.Unlock()
	assert.False(t, tracked)
}
