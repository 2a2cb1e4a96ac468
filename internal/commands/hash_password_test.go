package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/routerchat/routerchat/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPassword_FromStdin(t *testing.T) {
	out, err := runRoot(t, "hunter2\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$2"), hash)
	assert.True(t, auth.CheckPasswordHash("hunter2", hash))
	assert.False(t, auth.CheckPasswordHash("hunter2\n", hash))
}

func TestHashPassword_WithoutTrailingNewline(t *testing.T) {
	out, err := runRoot(t, "hunter2", "hash-password")
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("hunter2", strings.TrimSpace(out)))
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := runRoot(t, "\n", "hash-password")
	assert.EqualError(t, err, "password cannot be empty")
}

func TestHashPassword_RejectsArgs(t *testing.T) {
	_, err := runRoot(t, "", "hash-password", "extra")
	assert.Error(t, err)
}

func TestRoot_Version(t *testing.T) {
	out, err := runRoot(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestServe_FailsFastWithoutCredentials(t *testing.T) {
	t.Setenv("APP_USER", "")
	t.Setenv("APP_PASSWORD_HASH", "")

	_, err := runRoot(t, "", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_USER")
}
