// Package session contains the portal session token model and the store
// interface the token lifecycle manager refreshes through.
package session

import (
	"context"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
)

// Token is a time-bounded portal credential obtained by authentication
// and cached to avoid re-authenticating on every request. Its lifetime is
// bounded by the portal, not by this application.
type Token struct {
	// TelegramID is the owning parent. A token is never shared across
	// parents.
	TelegramID parent.TelegramID

	// Value is the opaque access token string.
	Value string

	// ExpiresAt is the absolute expiry timestamp. A zero value means the
	// expiry is unknown and the token must be treated as already expired.
	ExpiresAt time.Time

	// ObtainedAt records when the token was issued (diagnostics only).
	ObtainedAt time.Time
}

// Fresh reports whether the token is still usable at the given instant,
// keeping a safety buffer so the token cannot expire mid-use. Missing
// value or expiry counts as expired, never as "fresh forever".
func (t *Token) Fresh(now time.Time, buffer time.Duration) bool {
	if t == nil || t.Value == "" || t.ExpiresAt.IsZero() {
		return false
	}
	return t.ExpiresAt.Add(-buffer).After(now)
}

// Store persists cached session tokens per parent.
type Store interface {
	// Load returns the cached token for the parent, or (nil, nil) when
	// none is cached. A stored token that cannot be read back (corrupt
	// ciphertext, unparsable expiry) is also reported as (nil, nil):
	// the manager then refreshes instead of failing the request.
	Load(ctx context.Context, id parent.TelegramID) (*Token, error)

	// Save persists the token, replacing any previous one for the parent.
	Save(ctx context.Context, token *Token) error
}
