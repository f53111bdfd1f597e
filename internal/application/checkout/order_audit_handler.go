package checkout

import (
	"context"
	"fmt"

	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderAuditHandler writes one structured audit line per order lifecycle
// event. Order state is durable before events fire, so the audit trail is a
// projection of committed transitions, not a source of truth.
type OrderAuditHandler struct {
	logger *zap.Logger
}

// NewOrderAuditHandler creates a new OrderAuditHandler
func NewOrderAuditHandler(logger *zap.Logger) *OrderAuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderAuditHandler{logger: logger.Named("order_audit")}
}

// EventTypes returns the order lifecycle events this handler audits
func (h *OrderAuditHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderPaid,
		order.EventTypeOrderFulfilled,
		order.EventTypeOrderFailed,
	}
}

// Handle logs the lifecycle transition carried by the event
func (h *OrderAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		h.logger.Info("Order created",
			zap.String("order_id", e.OrderID.String()),
			zap.String("book_id", e.BookID.String()),
			zap.String("amount", e.Amount.String()),
			zap.Bool("guest", e.Guest))

	case *order.OrderPaidEvent:
		h.logger.Info("Order paid",
			zap.String("order_id", e.OrderID.String()),
			zap.String("payer_email", e.PayerEmail),
			zap.String("amount", e.Amount.String()))

	case *order.OrderFulfilledEvent:
		h.logger.Info("Order fulfilled",
			zap.String("order_id", e.OrderID.String()),
			zap.String("book_id", e.BookID.String()),
			zap.Bool("guest", e.Guest))

	case *order.OrderFailedEvent:
		h.logger.Warn("Order failed",
			zap.String("order_id", e.OrderID.String()),
			zap.String("reason", e.Reason))

	default:
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}
	return nil
}
