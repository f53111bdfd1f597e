package library

import (
	"context"

	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
)

// EntitlementRepository defines persistence operations for entitlements
type EntitlementRepository interface {
	// Grant inserts the entitlement. A conflicting (account, book) pair is
	// success, not an error: created reports whether a new row was written.
	Grant(ctx context.Context, e *Entitlement) (created bool, err error)

	FindByAccountAndBook(ctx context.Context, accountID, bookID uuid.UUID) (*Entitlement, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Entitlement, int64, error)
}
