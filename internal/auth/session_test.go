package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
)

func newTestManager(t *testing.T) (*Manager, *clock.FakeClock) {
	t.Helper()
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: hash,
		SessionTTLMinutes: 60,
	}
	return NewManager(zap.NewNop(), cfg, clk), clk
}

func TestLoginIssuesValidSession(t *testing.T) {
	m, _ := newTestManager(t)

	token, err := m.Login(context.Background(), "admin@example.com", "correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, m.Validate(context.Background(), token))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Login(context.Background(), "admin@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Login(context.Background(), "someone@example.com", "correct horse battery staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	m, _ := newTestManager(t)

	token, err := m.Login(context.Background(), "Admin@Example.COM", "correct horse battery staple")
	require.NoError(t, err)
	assert.NoError(t, m.Validate(context.Background(), token))
}

func TestSessionExpires(t *testing.T) {
	m, clk := newTestManager(t)

	token, err := m.Login(context.Background(), "admin@example.com", "correct horse battery staple")
	require.NoError(t, err)

	clk.Advance(61 * time.Minute)
	assert.ErrorIs(t, m.Validate(context.Background(), token), ErrSessionNotFound)
}

func TestLogoutDestroysSession(t *testing.T) {
	m, _ := newTestManager(t)

	token, err := m.Login(context.Background(), "admin@example.com", "correct horse battery staple")
	require.NoError(t, err)

	m.Logout(context.Background(), token)
	assert.ErrorIs(t, m.Validate(context.Background(), token), ErrSessionNotFound)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "not-a-hash"))
	assert.False(t, VerifyPassword("anything", "$argon2id$v=19$m=bad$x$y"))
}

func TestVerifyPasswordRejectsEmptyDigest(t *testing.T) {
	// A trailing empty digest segment must never verify: comparing two
	// zero-length byte slices reports equality.
	assert.False(t, VerifyPassword("anything", "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHQ$"))
}
