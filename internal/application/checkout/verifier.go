package checkout

import (
	"context"

	"github.com/Ashtonex/maasim/internal/domain/order"
	"go.uber.org/zap"
)

// PaymentVerifier wraps the gateway's status poll as a pure, side-effect-free
// query. Transport failures, timeouts and verification errors all collapse to
// PaymentStatusUnknown so that no gateway hiccup can ever fail an order.
type PaymentVerifier struct {
	gateway order.PaymentGateway
	logger  *zap.Logger
}

// NewPaymentVerifier creates a new PaymentVerifier
func NewPaymentVerifier(gateway order.PaymentGateway, logger *zap.Logger) *PaymentVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentVerifier{gateway: gateway, logger: logger}
}

// Verify polls the gateway for the payment behind pollReference.
// It never returns an error: anything short of a well-formed gateway answer
// yields a result with PaymentStatusUnknown.
func (v *PaymentVerifier) Verify(ctx context.Context, pollReference string) *order.PollResult {
	result, err := v.gateway.PollPayment(ctx, pollReference)
	if err != nil {
		v.logger.Warn("Payment verification unavailable",
			zap.String("poll_reference", pollReference),
			zap.Error(err))
		return &order.PollResult{Status: order.PaymentStatusUnknown}
	}
	if result == nil {
		return &order.PollResult{Status: order.PaymentStatusUnknown}
	}
	return result
}
