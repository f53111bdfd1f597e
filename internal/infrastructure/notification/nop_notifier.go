package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ashtonex/maasim/internal/application/checkout"
)

// NopGuestNotifier logs guest deliveries instead of sending them. Used when
// notifications are disabled so guest orders still leave an operator trail.
type NopGuestNotifier struct {
	logger *zap.Logger
}

// NewNopGuestNotifier creates a NopGuestNotifier
func NewNopGuestNotifier(logger *zap.Logger) *NopGuestNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NopGuestNotifier{logger: logger}
}

// NotifyGuestFulfillment records the delivery in the log and succeeds
func (n *NopGuestNotifier) NotifyGuestFulfillment(ctx context.Context, delivery checkout.GuestDelivery) error {
	n.logger.Info("Guest fulfillment recorded (notifications disabled)",
		zap.String("order_id", delivery.OrderID.String()),
		zap.String("email", delivery.Email),
		zap.String("book_title", delivery.BookTitle))
	return nil
}

var _ checkout.GuestFulfillmentNotifier = (*NopGuestNotifier)(nil)
