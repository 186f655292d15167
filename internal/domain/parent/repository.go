package parent

import "context"

// Repository provides access to registered parents, their portal
// credentials, and their linked children. Implementations live in
// internal/infrastructure/persistence.
type Repository interface {
	// GetByTelegramID returns the parent registered under the Telegram
	// account, or shared.ErrNotFound.
	GetByTelegramID(ctx context.Context, id TelegramID) (*Parent, error)

	// GetCredentials returns the decrypted portal credentials for the
	// parent, or shared.ErrNotFound if the parent is not registered.
	GetCredentials(ctx context.Context, id TelegramID) (*Credentials, error)

	// ListChildren returns all children linked to the parent, in the
	// order they were registered. An empty slice is not an error.
	ListChildren(ctx context.Context, id TelegramID) ([]Child, error)
}
