package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/session"
	"github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/crypto"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TOKEN STORE
// ══════════════════════════════════════════════════════════════════════════════

// TokenRepo implements session.Store on PostgreSQL, one row per parent.
// Token values are encrypted at rest with the same key as credentials.
//
// A row that cannot be decrypted is treated as a cache miss, not a
// failure: the session manager will simply re-authenticate. That keeps
// key rotation and the odd corrupted row from locking users out.
type TokenRepo struct {
	conn      *Connection
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// NewTokenRepo creates a new session token store.
func NewTokenRepo(conn *Connection, encryptor *crypto.Encryptor, logger *slog.Logger) *TokenRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenRepo{
		conn:      conn,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Load returns the cached token for the parent, or (nil, nil) when none
// is cached or the stored row is unreadable.
func (r *TokenRepo) Load(ctx context.Context, id parent.TelegramID) (*session.Token, error) {
	query := `
		SELECT token, expires_at, obtained_at
		FROM session_tokens
		WHERE telegram_id = $1
	`

	var t session.Token
	var encValue string
	err := r.conn.QueryRow(ctx, query, int64(id)).Scan(&encValue, &t.ExpiresAt, &t.ObtainedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: load session token: %w", err)
	}

	value, err := r.encryptor.Decrypt(encValue)
	if err != nil {
		logctx.From(ctx, r.logger).Warn("stored session token is unreadable, treating as absent",
			"telegram_id", id, "error", err)
		return nil, nil
	}

	t.TelegramID = id
	t.Value = value
	return &t, nil
}

// Save persists the token, replacing any previous one for the parent.
func (r *TokenRepo) Save(ctx context.Context, token *session.Token) error {
	encValue, err := r.encryptor.Encrypt(token.Value)
	if err != nil {
		return fmt.Errorf("postgres: encrypt session token: %w", err)
	}

	query := `
		INSERT INTO session_tokens (telegram_id, token, expires_at, obtained_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET token = EXCLUDED.token,
		    expires_at = EXCLUDED.expires_at,
		    obtained_at = EXCLUDED.obtained_at
	`

	if _, err := r.conn.Exec(ctx, query,
		int64(token.TelegramID), encValue, token.ExpiresAt, token.ObtainedAt); err != nil {
		return fmt.Errorf("postgres: save session token: %w", err)
	}

	return nil
}
