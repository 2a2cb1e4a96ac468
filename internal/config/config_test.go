package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setCredentials(t *testing.T) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("APP_USER", "admin")
	t.Setenv("APP_PASSWORD_HASH", string(hash))
}

func TestParse_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.AppUser)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "file:routerchat?mode=memory&cache=shared", cfg.DatabaseURL)
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", cfg.CompletionURL)
	assert.Equal(t, 60*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionIdleTTL)
	assert.Empty(t, cfg.SessionSecret)
	assert.False(t, cfg.Debug())
}

func TestParse_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("APP_TITLE", "routerchat")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.True(t, cfg.Debug())
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, "routerchat", cfg.AppTitle)
}

func TestParse_MissingCredentialFailsFast(t *testing.T) {
	t.Setenv("APP_USER", "")
	t.Setenv("APP_PASSWORD_HASH", "")

	_, err := Parse()
	assert.ErrorIs(t, err, ErrMissingUser)

	t.Setenv("APP_USER", "admin")
	_, err = Parse()
	assert.ErrorIs(t, err, ErrMissingPasswordHash)
}

func TestParse_RejectsNonBcryptHash(t *testing.T) {
	t.Setenv("APP_USER", "admin")
	t.Setenv("APP_PASSWORD_HASH", "plaintext-password")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a bcrypt hash")
}

func TestParse_RejectsUnknownStoreDriver(t *testing.T) {
	setCredentials(t)
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}
