package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
)

const sessionTokenBytes = 32

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrSessionNotFound    = errors.New("session_not_found")
)

// Manager holds admin sessions in memory. There is a single admin
// account, so sessions do not survive a restart on purpose: logging in
// again is cheaper than persisting tokens.
type Manager struct {
	log   *zap.Logger
	cfg   config.Config
	clock clock.Clock

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewManager(log *zap.Logger, cfg config.Config, clk clock.Clock) *Manager {
	return &Manager{
		log:      log.Named("auth.sessions"),
		cfg:      cfg,
		clock:    clk,
		sessions: make(map[string]time.Time),
	}
}

// Login verifies the admin credentials and returns a new session token.
func (m *Manager) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	if m.cfg.AdminEmail == "" || m.cfg.AdminPasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(strings.ToLower(m.cfg.AdminEmail))) == 1
	passwordOK := VerifyPassword(password, m.cfg.AdminPasswordHash)
	if !emailOK || !passwordOK {
		m.log.Warn("admin login rejected", zap.String("email", email))
		return "", ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	ttl := time.Duration(m.cfg.SessionTTLMinutes) * time.Minute
	m.mu.Lock()
	m.pruneLocked()
	m.sessions[token] = m.clock.Now().Add(ttl)
	m.mu.Unlock()

	m.log.Info("admin logged in")
	return token, nil
}

// Validate reports whether the token belongs to a live session.
func (m *Manager) Validate(ctx context.Context, token string) error {
	if token == "" {
		return ErrSessionNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	if m.clock.Now().After(expiry) {
		delete(m.sessions, token)
		return ErrSessionNotFound
	}
	return nil
}

// Logout destroys the session. Unknown tokens are a no-op.
func (m *Manager) Logout(ctx context.Context, token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

func (m *Manager) pruneLocked() {
	now := m.clock.Now()
	for token, expiry := range m.sessions {
		if now.After(expiry) {
			delete(m.sessions, token)
		}
	}
}

func newToken() (string, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
