// Package token implements the session token lifecycle: serving cached
// portal tokens while fresh and refreshing them through the portal when
// they are missing, expired, or about to expire.
package token

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/session"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

// Authenticator exchanges stored credentials for a fresh portal token.
type Authenticator interface {
	Authenticate(ctx context.Context, creds parent.Credentials) (value string, expiresAt time.Time, err error)
}

// CredentialsSource provides the stored portal credentials for a parent.
type CredentialsSource interface {
	GetCredentials(ctx context.Context, id parent.TelegramID) (*parent.Credentials, error)
}

// ManagerConfig contains configuration for the token manager.
type ManagerConfig struct {
	// SafetyBuffer is how long before nominal expiry a token is treated
	// as expired
	SafetyBuffer time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Now overrides the clock (tests only)
	Now func() time.Time
}

// Manager hands out portal session tokens. One refresh per parent at a
// time: concurrent requests for the same parent serialize on a
// per-parent lock and all but the first reuse the freshly saved token.
// Requests for different parents never block each other.
type Manager struct {
	store  session.Store
	creds  CredentialsSource
	auth   Authenticator
	buffer time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[parent.TelegramID]*sync.Mutex
}

// NewManager creates a token manager.
func NewManager(store session.Store, creds CredentialsSource, auth Authenticator, cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = timeutil.Now
	}
	if cfg.SafetyBuffer <= 0 {
		cfg.SafetyBuffer = 5 * time.Minute
	}

	return &Manager{
		store:  store,
		creds:  creds,
		auth:   auth,
		buffer: cfg.SafetyBuffer,
		logger: cfg.Logger,
		now:    cfg.Now,
		locks:  make(map[parent.TelegramID]*sync.Mutex),
	}
}

// EnsureToken returns a token that is guaranteed fresh for at least the
// safety buffer. The cached token is checked twice: once before taking
// the per-parent lock (the common case needs no lock contention at all)
// and once after (another caller may have refreshed it while this one
// waited).
func (m *Manager) EnsureToken(ctx context.Context, id parent.TelegramID) (string, error) {
	token, err := m.store.Load(ctx, id)
	if err != nil {
		return "", storeUnavailable(err)
	}
	if token.Fresh(m.now(), m.buffer) {
		return token.Value, nil
	}

	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	token, err = m.store.Load(ctx, id)
	if err != nil {
		return "", storeUnavailable(err)
	}
	if token.Fresh(m.now(), m.buffer) {
		return token.Value, nil
	}

	return m.refresh(ctx, id)
}

// refresh authenticates against the portal and persists the new token.
// Caller must hold the per-parent lock.
func (m *Manager) refresh(ctx context.Context, id parent.TelegramID) (string, error) {
	creds, err := m.creds.GetCredentials(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			// No stored credentials can never produce a token. Reported as
			// an authentication failure so the user is told to re-register,
			// not to wait out an outage.
			return "", shared.WrapError("session", "ensure_token", shared.ErrAuthenticationFailed,
				"no stored credentials", err)
		}
		return "", err
	}

	value, expiresAt, err := m.auth.Authenticate(ctx, *creds)
	if err != nil {
		return "", err
	}

	token := &session.Token{
		TelegramID: id,
		Value:      value,
		ExpiresAt:  expiresAt,
		ObtainedAt: m.now(),
	}

	logger := logctx.From(ctx, m.logger)

	if err := m.store.Save(ctx, token); err != nil {
		// The token is valid even if it could not be cached; failing the
		// user's request over a cache write would be strictly worse. The
		// next request pays for another refresh.
		logger.Warn("failed to persist refreshed token, serving it anyway",
			"telegram_id", id, "error", err)
	}

	logger.Info("session token refreshed",
		"telegram_id", id, "expires_at", expiresAt)

	return value, nil
}

// storeUnavailable classifies a token store failure. Callers only
// distinguish authentication failures from everything else, and a broken
// store is an outage, not a credentials problem.
func storeUnavailable(err error) error {
	return shared.WrapError("session", "ensure_token", shared.ErrUnavailable,
		"token store unavailable", err)
}

// lockFor returns the per-parent refresh lock, creating it on first use.
// Locks are never removed; the map grows with the number of distinct
// parents seen, which is bounded by the registered user count.
func (m *Manager) lockFor(id parent.TelegramID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}
