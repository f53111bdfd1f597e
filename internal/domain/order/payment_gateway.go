package order

import (
	"context"
	"errors"

	"github.com/Ashtonex/maasim/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Gateway errors
var (
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrPaymentInvalidRequest  = errors.New("payment: invalid create payment request")
)

// PaymentStatus is the gateway-reported state of a payment
type PaymentStatus string

const (
	// PaymentStatusPaid means the gateway confirmed the funds
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusPending means the payment exists but is not confirmed
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusFailed means the payment was cancelled or rejected; terminal
	PaymentStatusFailed PaymentStatus = "FAILED"
	// PaymentStatusUnknown means the state could not be determined
	// (gateway unreachable, timeout, malformed response). Callers must treat
	// Unknown as "not yet confirmed", never as failed.
	PaymentStatusUnknown PaymentStatus = "UNKNOWN"
)

// CreatePaymentRequest describes a payment to register with the gateway
type CreatePaymentRequest struct {
	Reference  string // merchant payment reference, unique per order
	PayerEmail string
	ItemName   string
	Amount     valueobject.Money
	ReturnURL  string // where the buyer's browser lands after paying
	ResultURL  string // where the gateway posts the asynchronous callback
}

// Validate checks the request before it is sent to the gateway
func (r *CreatePaymentRequest) Validate() error {
	if r.Reference == "" || r.PayerEmail == "" || r.ItemName == "" {
		return ErrPaymentInvalidRequest
	}
	if !r.Amount.IsPositive() {
		return ErrPaymentInvalidRequest
	}
	return nil
}

// CreatePaymentResponse is the gateway's answer to payment creation
type CreatePaymentResponse struct {
	RedirectURL      string // buyer is sent here to pay
	PollReference    string // handle for later status polls
	GatewayReference string // gateway's own payment id, may be empty
}

// PollResult is the gateway's authoritative view of a payment
type PollResult struct {
	Status           PaymentStatus
	Amount           decimal.Decimal
	PayerEmail       string
	Reference        string // merchant reference echoed back
	GatewayReference string
}

// Covers reports whether the settled amount pays for expected. A zero
// amount means the gateway omitted the field and cannot be checked;
// overpayment covers.
func (r *PollResult) Covers(expected decimal.Decimal) bool {
	if !r.Amount.IsPositive() {
		return true
	}
	return r.Amount.GreaterThanOrEqual(expected)
}

// PaymentGateway is the port for the external payment provider
// PollPayment is a pure read and must never mutate order state.
type PaymentGateway interface {
	// CreatePayment registers a payment and returns the redirect and poll handles
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error)

	// PollPayment fetches the current payment state from the gateway.
	// Implementations return an error only for transport or verification
	// failures; callers map those to PaymentStatusUnknown.
	PollPayment(ctx context.Context, pollReference string) (*PollResult, error)
}
