package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
// Transitions only move forward: PENDING -> PAID -> FULFILLED, or -> FAILED.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPaid || target == OrderStatusFailed
	case OrderStatusPaid:
		return target == OrderStatusFulfilled || target == OrderStatusFailed
	case OrderStatusFulfilled, OrderStatusFailed:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true for states that can never change again
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusFailed
}

// Order represents a purchase attempt aggregate root
// Only the fulfillment coordinator mutates an order after creation;
// clients never write to it directly.
type Order struct {
	shared.BaseAggregateRoot
	// BuyerID is nil for guest checkout
	BuyerID *uuid.UUID `gorm:"type:uuid;index"`
	// BuyerEmail is the contact email given at checkout
	BuyerEmail string `gorm:"type:varchar(254);not null;index"`
	// PayerEmail is the email verified by the gateway, set on MarkPaid
	PayerEmail string    `gorm:"type:varchar(254)"`
	BookID     uuid.UUID `gorm:"type:uuid;not null;index"`
	// BookTitle is a snapshot at purchase time
	BookTitle string               `gorm:"type:varchar(200);not null"`
	Amount    decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency  valueobject.Currency `gorm:"type:varchar(3);not null"`
	Status    OrderStatus          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	// PaymentReference is the merchant reference sent to the gateway, unique
	PaymentReference string `gorm:"type:varchar(40);not null;uniqueIndex"`
	// PollReference is the gateway poll handle, persisted at payment creation
	PollReference *string `gorm:"type:text"`
	// GatewayReference is the gateway's own payment id
	GatewayReference *string `gorm:"type:varchar(100)"`
	FailureReason    string  `gorm:"type:varchar(500)"`
	PaidAt           *time.Time
	FulfilledAt      *time.Time
	FailedAt         *time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new pending order for a single book
func NewOrder(bookID uuid.UUID, bookTitle string, price valueobject.Money, buyerEmail string, buyerID *uuid.UUID) (*Order, error) {
	if bookID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOK", "Book ID cannot be empty")
	}
	if strings.TrimSpace(bookTitle) == "" {
		return nil, shared.NewDomainError("INVALID_BOOK", "Book title cannot be empty")
	}
	buyerEmail = strings.TrimSpace(strings.ToLower(buyerEmail))
	if buyerEmail == "" || !strings.Contains(buyerEmail, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid buyer email is required")
	}
	if !price.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order amount must be positive")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BuyerID:           buyerID,
		BuyerEmail:        buyerEmail,
		BookID:            bookID,
		BookTitle:         bookTitle,
		Amount:            price.Amount(),
		Currency:          price.Currency(),
		Status:            OrderStatusPending,
	}
	o.PaymentReference = newPaymentReference(o.ID)

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

// newPaymentReference derives the merchant reference sent to the gateway.
// The reference maps back to the order through a persisted column, never
// by parsing the string.
func newPaymentReference(orderID uuid.UUID) string {
	return fmt.Sprintf("MAASIM-%s", strings.ToUpper(strings.ReplaceAll(orderID.String(), "-", "")[:12]))
}

// AttachPaymentCreated records the gateway's handles after payment creation
// Only allowed while the order is still pending.
func (o *Order) AttachPaymentCreated(pollReference, gatewayReference string) error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot attach payment to order in %s status", o.Status))
	}
	if strings.TrimSpace(pollReference) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Poll reference cannot be empty")
	}

	o.PollReference = &pollReference
	if gatewayReference != "" {
		o.GatewayReference = &gatewayReference
	}
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPaid transitions the order to PAID with the gateway-verified payer email
func (o *Order) MarkPaid(payerEmail string) error {
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order paid in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusPaid
	o.PayerEmail = strings.TrimSpace(strings.ToLower(payerEmail))
	if o.PayerEmail == "" {
		o.PayerEmail = o.BuyerEmail
	}
	o.PaidAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderPaidEvent(o))

	return nil
}

// Fulfill transitions the order to its successful terminal state
func (o *Order) Fulfill() error {
	if !o.Status.CanTransitionTo(OrderStatusFulfilled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fulfill order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusFulfilled
	o.FulfilledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderFulfilledEvent(o))

	return nil
}

// Fail transitions the order to its failed terminal state
func (o *Order) Fail(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusFailed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Failure reason is required")
	}

	now := time.Now()
	o.Status = OrderStatusFailed
	o.FailureReason = reason
	o.FailedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderFailedEvent(o))

	return nil
}

// IsGuest returns true when no authenticated buyer is attached
func (o *Order) IsGuest() bool {
	return o.BuyerID == nil
}

// IsTerminal returns true if the order reached a final state
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// AmountMoney returns the order amount as a Money value object
func (o *Order) AmountMoney() valueobject.Money {
	m, err := valueobject.NewMoney(o.Amount, o.Currency)
	if err != nil {
		return valueobject.NewMoneyUSD(o.Amount)
	}
	return m
}
