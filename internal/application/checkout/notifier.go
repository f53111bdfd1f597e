package checkout

import (
	"context"

	"github.com/google/uuid"
)

// GuestDelivery describes a paid guest order that needs out-of-band delivery
type GuestDelivery struct {
	OrderID   uuid.UUID `json:"order_id"`
	Email     string    `json:"email"`
	BookID    uuid.UUID `json:"book_id"`
	BookTitle string    `json:"book_title"`
}

// GuestFulfillmentNotifier signals the delivery collaborator for guest orders
// that have no account to attach an entitlement to. The collaborator owns the
// actual delivery (and its retries); this port only emits the signal.
type GuestFulfillmentNotifier interface {
	NotifyGuestFulfillment(ctx context.Context, delivery GuestDelivery) error
}
