package order

import (
	"context"

	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines persistence operations for orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByPaymentReference resolves the merchant reference the gateway echoes
	// back in callbacks to the internal order
	FindByPaymentReference(ctx context.Context, reference string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]Order, int64, error)

	// Create inserts a new pending order
	Create(ctx context.Context, o *Order) error

	// Save updates a pending order's non-status fields (gateway handles)
	Save(ctx context.Context, o *Order) error

	// TransitionStatus persists the order's current state with a conditional
	// update guarded on the expected prior status. Two concurrent reconcile
	// calls for the same order serialize here: the loser gets
	// shared.ErrConcurrencyConflict and zero rows are written.
	TransitionStatus(ctx context.Context, o *Order, expected OrderStatus) error
}
