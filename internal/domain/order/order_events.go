package order

import (
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderPaid      = "OrderPaid"
	EventTypeOrderFulfilled = "OrderFulfilled"
	EventTypeOrderFailed    = "OrderFailed"
)

// OrderCreatedEvent is raised when a checkout attempt creates a pending order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	BookID     uuid.UUID       `json:"book_id"`
	BuyerEmail string          `json:"buyer_email"`
	Amount     decimal.Decimal `json:"amount"`
	Guest      bool            `json:"guest"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		BookID:          o.BookID,
		BuyerEmail:      o.BuyerEmail,
		Amount:          o.Amount,
		Guest:           o.IsGuest(),
	}
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// OrderPaidEvent is raised when the gateway confirms payment
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	BookID     uuid.UUID       `json:"book_id"`
	PayerEmail string          `json:"payer_email"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		BookID:          o.BookID,
		PayerEmail:      o.PayerEmail,
		Amount:          o.Amount,
	}
}

// EventType returns the event type name
func (e *OrderPaidEvent) EventType() string {
	return EventTypeOrderPaid
}

// OrderFulfilledEvent is raised when a paid order has been delivered
// (entitlement granted or guest delivery signalled)
type OrderFulfilledEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	BookID  uuid.UUID `json:"book_id"`
	Guest   bool      `json:"guest"`
}

// NewOrderFulfilledEvent creates a new OrderFulfilledEvent
func NewOrderFulfilledEvent(o *Order) *OrderFulfilledEvent {
	return &OrderFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderFulfilled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		BookID:          o.BookID,
		Guest:           o.IsGuest(),
	}
}

// EventType returns the event type name
func (e *OrderFulfilledEvent) EventType() string {
	return EventTypeOrderFulfilled
}

// OrderFailedEvent is raised when the gateway reports a failed payment
type OrderFailedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// NewOrderFailedEvent creates a new OrderFailedEvent
func NewOrderFailedEvent(o *Order) *OrderFailedEvent {
	return &OrderFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderFailed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Reason:          o.FailureReason,
	}
}

// EventType returns the event type name
func (e *OrderFailedEvent) EventType() string {
	return EventTypeOrderFailed
}
