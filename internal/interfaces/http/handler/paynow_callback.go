package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	checkoutapp "github.com/Ashtonex/maasim/internal/application/checkout"
	"github.com/Ashtonex/maasim/internal/domain/shared"
)

// callbackIdempotencyTTL bounds how long a settled payment reference is
// remembered for the duplicate fast path.
const callbackIdempotencyTTL = 24 * time.Hour

// PaynowCallbackHandler handles the Paynow result-URL callback. The
// endpoint is called by the gateway, not the storefront, and carries no
// authentication; nothing in the payload is trusted beyond the merchant
// reference, which only selects the order to reconcile.
type PaynowCallbackHandler struct {
	BaseHandler
	fulfillmentService *checkoutapp.FulfillmentService
	idempotencyStore   shared.IdempotencyStore
	logger             *zap.Logger
}

// NewPaynowCallbackHandler creates a new PaynowCallbackHandler
func NewPaynowCallbackHandler(
	fulfillmentService *checkoutapp.FulfillmentService,
	idempotencyStore shared.IdempotencyStore,
	logger *zap.Logger,
) *PaynowCallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaynowCallbackHandler{
		fulfillmentService: fulfillmentService,
		idempotencyStore:   idempotencyStore,
		logger:             logger,
	}
}

// HandleCallback processes a Paynow status post.
//
// The payload's status and amount are never read; the handler extracts the
// merchant reference and reconciles the matching order against the
// gateway's poll endpoint. A 500 tells Paynow to retry the delivery; 200
// acknowledges it, including the still-pending case.
func (h *PaynowCallbackHandler) HandleCallback(c *gin.Context) {
	reference := c.PostForm("reference")
	if reference == "" {
		h.BadRequest(c, "Missing merchant reference")
		return
	}

	ctx := c.Request.Context()

	// Duplicate fast path. Safe to skip the coordinator entirely: the
	// reference is only marked once its order is terminal.
	if processed, err := h.idempotencyStore.IsProcessed(ctx, h.idempotencyKey(reference)); err == nil && processed {
		c.String(http.StatusOK, "ok")
		return
	}

	result, err := h.fulfillmentService.ReconcileByPaymentReference(ctx, reference)
	if shared.IsConcurrencyConflict(err) {
		result, err = h.fulfillmentService.ReconcileByPaymentReference(ctx, reference)
	}
	if err != nil {
		if shared.IsNotFound(err) {
			h.NotFound(c, "No order for payment reference")
			return
		}
		h.logger.Error("Callback reconciliation failed",
			zap.String("payment_reference", reference),
			zap.Error(err))
		c.String(http.StatusInternalServerError, "error")
		return
	}

	if result.Outcome != checkoutapp.OutcomeStillPending {
		if _, err := h.idempotencyStore.MarkProcessed(ctx, h.idempotencyKey(reference), callbackIdempotencyTTL); err != nil {
			h.logger.Warn("Failed to record callback idempotency key",
				zap.String("payment_reference", reference),
				zap.Error(err))
		}
	}

	h.logger.Info("Paynow callback processed",
		zap.String("payment_reference", reference),
		zap.String("outcome", string(result.Outcome)))

	c.String(http.StatusOK, "ok")
}

func (h *PaynowCallbackHandler) idempotencyKey(reference string) string {
	return "paynow:" + reference
}
