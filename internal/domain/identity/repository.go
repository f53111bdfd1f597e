package identity

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines persistence operations for accounts
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByEmail matches case-insensitively; emails are stored lowercased.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Save(ctx context.Context, a *Account) error
}
