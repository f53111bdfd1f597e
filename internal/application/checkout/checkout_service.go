package checkout

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// URLConfig holds the endpoints handed to the gateway at payment creation
type URLConfig struct {
	// ReturnURL is where the buyer's browser lands after paying; the order id
	// is appended as a query parameter so the success page can confirm.
	ReturnURL string
	// ResultURL is where the gateway posts its asynchronous callback.
	ResultURL string
}

// CheckoutService creates orders and registers their payments with the gateway
type CheckoutService struct {
	bookRepo       catalog.BookRepository
	orderRepo      order.OrderRepository
	gateway        order.PaymentGateway
	urls           URLConfig
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	bookRepo catalog.BookRepository,
	orderRepo order.OrderRepository,
	gateway order.PaymentGateway,
	urls URLConfig,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		bookRepo:       bookRepo,
		orderRepo:      orderRepo,
		gateway:        gateway,
		urls:           urls,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Start creates a pending order for a published book and asks the gateway to
// create the payment, returning the redirect URL for the buyer's browser.
func (s *CheckoutService) Start(ctx context.Context, req StartCheckoutRequest) (*StartCheckoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "start",
		telemetry.WithAttribute(telemetry.SpanAttrBookID, req.BookID.String()))
	defer span.End()

	resp, err := s.start(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, resp.OrderID.String(),
		telemetry.SpanAttrPaymentReference, resp.PaymentReference,
	)
	return resp, nil
}

func (s *CheckoutService) start(ctx context.Context, req StartCheckoutRequest) (*StartCheckoutResponse, error) {
	book, err := s.bookRepo.FindPublishedByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(book.ID, book.Title, book.PriceMoney(), req.Email, req.BuyerID)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	payment, err := s.gateway.CreatePayment(ctx, &order.CreatePaymentRequest{
		Reference:  o.PaymentReference,
		PayerEmail: o.BuyerEmail,
		ItemName:   book.Title,
		Amount:     o.AmountMoney(),
		ReturnURL:  s.returnURLFor(o),
		ResultURL:  s.urls.ResultURL,
	})
	if err != nil {
		// The pending order row stays behind; it can never verify and simply
		// never fulfils.
		s.logger.Error("Payment creation failed",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return nil, shared.ErrVerificationUnavailable
	}

	if err := o.AttachPaymentCreated(payment.PollReference, payment.GatewayReference); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("Checkout started",
		zap.String("order_id", o.ID.String()),
		zap.String("book_id", book.ID.String()),
		zap.String("payment_reference", o.PaymentReference),
		zap.Bool("guest", o.IsGuest()))

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Error("Failed to publish domain events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
		o.ClearDomainEvents()
	}

	return &StartCheckoutResponse{
		OrderID:          o.ID,
		PaymentReference: o.PaymentReference,
		RedirectURL:      payment.RedirectURL,
	}, nil
}

// GetOrder returns an order for the status/confirmation views
func (s *CheckoutService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

func (s *CheckoutService) returnURLFor(o *order.Order) string {
	u, err := url.Parse(s.urls.ReturnURL)
	if err != nil {
		return fmt.Sprintf("%s?order_id=%s", s.urls.ReturnURL, o.ID)
	}
	q := u.Query()
	q.Set("order_id", o.ID.String())
	u.RawQuery = q.Encode()
	return u.String()
}

func toOrderResponse(o *order.Order) *OrderResponse {
	return &OrderResponse{
		ID:               o.ID,
		BuyerID:          o.BuyerID,
		BuyerEmail:       o.BuyerEmail,
		BookID:           o.BookID,
		BookTitle:        o.BookTitle,
		Amount:           o.Amount,
		Currency:         string(o.Currency),
		Status:           o.Status.String(),
		PaymentReference: o.PaymentReference,
		FailureReason:    o.FailureReason,
		CreatedAt:        o.CreatedAt,
		PaidAt:           o.PaidAt,
		FulfilledAt:      o.FulfilledAt,
	}
}
