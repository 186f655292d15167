package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/session"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

// tokenKey namespaces session token cache entries.
func tokenKey(id parent.TelegramID) string {
	return fmt.Sprintf("session:token:%d", id)
}

// cachedToken is the Redis representation of a session token.
type cachedToken struct {
	Value      string    `json:"value"`
	ExpiresAt  time.Time `json:"expires_at"`
	ObtainedAt time.Time `json:"obtained_at"`
}

// CachedStore decorates a session.Store with a Redis read-through layer.
// Redis failures degrade to the primary store with a warning; the cache
// must never be the reason a parent cannot get a schedule.
type CachedStore struct {
	cache   *Cache
	primary session.Store
	logger  *slog.Logger
}

// NewCachedStore wraps the primary store with the Redis cache.
func NewCachedStore(cache *Cache, primary session.Store, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		cache:   cache,
		primary: primary,
		logger:  logger,
	}
}

// Load tries Redis first and falls back to the primary store, refilling
// the cache on a primary hit.
func (s *CachedStore) Load(ctx context.Context, id parent.TelegramID) (*session.Token, error) {
	var cached cachedToken
	err := s.cache.Get(ctx, tokenKey(id), &cached)
	switch {
	case err == nil:
		return &session.Token{
			TelegramID: id,
			Value:      cached.Value,
			ExpiresAt:  cached.ExpiresAt,
			ObtainedAt: cached.ObtainedAt,
		}, nil
	case errors.Is(err, ErrCacheMiss):
		// fall through to primary
	default:
		logctx.From(ctx, s.logger).Warn("token cache read failed, falling back to primary store",
			"telegram_id", id, "error", err)
	}

	token, err := s.primary.Load(ctx, id)
	if err != nil || token == nil {
		return token, err
	}

	s.refill(ctx, token)
	return token, nil
}

// Save writes through to the primary store first, then to Redis. A cache
// write failure is logged and swallowed: the durable copy already exists.
func (s *CachedStore) Save(ctx context.Context, token *session.Token) error {
	if err := s.primary.Save(ctx, token); err != nil {
		return err
	}

	s.refill(ctx, token)
	return nil
}

// refill writes the token to Redis with a TTL matching its remaining
// lifetime, so Redis never serves a token longer than the portal would.
func (s *CachedStore) refill(ctx context.Context, token *session.Token) {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return
	}

	entry := cachedToken{
		Value:      token.Value,
		ExpiresAt:  token.ExpiresAt,
		ObtainedAt: token.ObtainedAt,
	}
	if err := s.cache.Set(ctx, tokenKey(token.TelegramID), entry, ttl); err != nil {
		logctx.From(ctx, s.logger).Warn("token cache write failed",
			"telegram_id", token.TelegramID, "error", err)
	}
}
