package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	"github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/crypto"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ParentRepo implements parent.Repository on PostgreSQL. Portal login and
// password columns hold ciphertext; decryption happens here so the rest
// of the application only ever sees plaintext credentials in memory,
// briefly, on the way to the portal.
type ParentRepo struct {
	conn      *Connection
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// NewParentRepo creates a new parent repository.
func NewParentRepo(conn *Connection, encryptor *crypto.Encryptor, logger *slog.Logger) *ParentRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParentRepo{
		conn:      conn,
		encryptor: encryptor,
		logger:    logger,
	}
}

// GetByTelegramID returns the parent registered under the Telegram account.
func (r *ParentRepo) GetByTelegramID(ctx context.Context, id parent.TelegramID) (*parent.Parent, error) {
	query := `
		SELECT id, telegram_id, username, first_name, last_name, created_at, updated_at
		FROM parents
		WHERE telegram_id = $1
	`

	var p parent.Parent
	err := r.conn.QueryRow(ctx, query, int64(id)).Scan(
		&p.ID,
		&p.TelegramID,
		&p.Username,
		&p.FirstName,
		&p.LastName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("parent", "get_by_telegram_id", shared.ErrNotFound,
				fmt.Sprintf("telegram id %d is not registered", id))
		}
		return nil, fmt.Errorf("postgres: get parent by telegram id: %w", err)
	}

	return &p, nil
}

// GetCredentials returns the decrypted portal credentials for the parent.
func (r *ParentRepo) GetCredentials(ctx context.Context, id parent.TelegramID) (*parent.Credentials, error) {
	query := `
		SELECT mesh_login, mesh_password
		FROM parents
		WHERE telegram_id = $1
	`

	var encLogin, encPassword string
	err := r.conn.QueryRow(ctx, query, int64(id)).Scan(&encLogin, &encPassword)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("parent", "get_credentials", shared.ErrNotFound,
				fmt.Sprintf("telegram id %d is not registered", id))
		}
		return nil, fmt.Errorf("postgres: get credentials: %w", err)
	}

	login, err := r.encryptor.Decrypt(encLogin)
	if err != nil {
		return nil, fmt.Errorf("postgres: decrypt login for %d: %w", id, err)
	}
	password, err := r.encryptor.Decrypt(encPassword)
	if err != nil {
		return nil, fmt.Errorf("postgres: decrypt password for %d: %w", id, err)
	}

	return &parent.Credentials{Login: login, Password: password}, nil
}

// ListChildren returns all children linked to the parent, oldest first.
func (r *ParentRepo) ListChildren(ctx context.Context, id parent.TelegramID) ([]parent.Child, error) {
	query := `
		SELECT student_id, parent_telegram_id, person_id, first_name, last_name, class_name
		FROM children
		WHERE parent_telegram_id = $1
		ORDER BY created_at
	`

	rows, err := r.conn.Query(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("postgres: list children: %w", err)
	}
	defer rows.Close()

	var children []parent.Child
	for rows.Next() {
		var c parent.Child
		if err := rows.Scan(
			&c.StudentID,
			&c.ParentTelegramID,
			&c.PersonID,
			&c.FirstName,
			&c.LastName,
			&c.ClassName,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan child: %w", err)
		}
		children = append(children, c)
	}

	return children, rows.Err()
}
