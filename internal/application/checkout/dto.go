package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StartCheckoutRequest represents a request to start a checkout attempt
type StartCheckoutRequest struct {
	BookID uuid.UUID `json:"book_id" binding:"required"`
	Email  string    `json:"email" binding:"required,email"`
	// BuyerID is filled from the authenticated session, never from the body
	BuyerID *uuid.UUID `json:"-"`
}

// StartCheckoutResponse carries the gateway redirect back to the client
type StartCheckoutResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	PaymentReference string    `json:"payment_reference"`
	RedirectURL      string    `json:"redirect_url"`
}

// FulfillmentOutcome is the result category of a reconcile pass
type FulfillmentOutcome string

const (
	OutcomeStillPending FulfillmentOutcome = "still-pending"
	OutcomeFulfilled    FulfillmentOutcome = "fulfilled"
	OutcomeFailed       FulfillmentOutcome = "failed"
)

// FulfillmentResult reports what reconciliation observed or did for an order
type FulfillmentResult struct {
	OrderID       uuid.UUID          `json:"order_id"`
	Outcome       FulfillmentOutcome `json:"outcome"`
	OrderStatus   string             `json:"order_status"`
	Guest         bool               `json:"guest"`
	FailureReason string             `json:"failure_reason,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID               uuid.UUID       `json:"id"`
	BuyerID          *uuid.UUID      `json:"buyer_id,omitempty"`
	BuyerEmail       string          `json:"buyer_email"`
	BookID           uuid.UUID       `json:"book_id"`
	BookTitle        string          `json:"book_title"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	PaymentReference string          `json:"payment_reference"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	FulfilledAt      *time.Time      `json:"fulfilled_at,omitempty"`
}
