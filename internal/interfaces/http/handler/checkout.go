package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	checkoutapp "github.com/Ashtonex/maasim/internal/application/checkout"
	"github.com/Ashtonex/maasim/internal/domain/shared"
)

// CheckoutHandler handles checkout initiation and the success-redirect
// confirmation poll.
type CheckoutHandler struct {
	BaseHandler
	checkoutService    *checkoutapp.CheckoutService
	fulfillmentService *checkoutapp.FulfillmentService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(
	checkoutService *checkoutapp.CheckoutService,
	fulfillmentService *checkoutapp.FulfillmentService,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:    checkoutService,
		fulfillmentService: fulfillmentService,
	}
}

// Start creates a pending order and returns the gateway redirect URL.
// Works for both authenticated buyers and guests; a guest is identified
// solely by the email in the request body.
func (h *CheckoutHandler) Start(c *gin.Context) {
	var req checkoutapp.StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid checkout request: "+err.Error())
		return
	}

	// The buyer identity comes from the token, never from the body
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid account identity")
		return
	}
	if accountID != uuid.Nil {
		req.BuyerID = &accountID
	}

	resp, err := h.checkoutService.Start(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// ConfirmResponse combines the reconcile outcome with the order view the
// success page renders.
type ConfirmResponse struct {
	Outcome checkoutapp.FulfillmentOutcome `json:"outcome"`
	Order   *checkoutapp.OrderResponse     `json:"order"`
}

// Confirm is the success-redirect poll path. The storefront lands here
// after the gateway redirects the buyer back; it reconciles the order and
// reports its state, including still-pending when the gateway has not
// settled yet.
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	orderID, err := uuid.Parse(c.Query("order_id"))
	if err != nil {
		h.BadRequest(c, "order_id must be a valid UUID")
		return
	}

	result, err := h.fulfillmentService.Reconcile(c.Request.Context(), orderID)
	if shared.IsConcurrencyConflict(err) {
		// Lost a race against the webhook; one retry observes the
		// winner's state and returns idempotently
		result, err = h.fulfillmentService.Reconcile(c.Request.Context(), orderID)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	order, err := h.checkoutService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ConfirmResponse{
		Outcome: result.Outcome,
		Order:   order,
	})
}

// GetOrder returns an order by ID for the status view. The order ID acts
// as the capability; guests hold it from their checkout redirect.
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	var req struct {
		ID string `uri:"id" binding:"required,uuid"`
	}
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "id must be a valid UUID")
		return
	}

	orderID := uuid.MustParse(req.ID)
	order, err := h.checkoutService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
