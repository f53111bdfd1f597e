package checkout

import (
	"context"
	"fmt"

	"github.com/Ashtonex/maasim/internal/domain/identity"
	"github.com/Ashtonex/maasim/internal/domain/library"
	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FulfillmentService drives an order from pending to fulfilled or failed
// given the gateway's verified payment status. It is the only writer of
// order state after creation.
//
// Reconcile is idempotent and safe under concurrent and repeated delivery:
// terminal orders short-circuit with zero writes, and every status change
// goes through a conditional update keyed on the expected prior status, so
// two racing calls serialize in the storage layer rather than in process.
type FulfillmentService struct {
	orderRepo       order.OrderRepository
	entitlementRepo library.EntitlementRepository
	accountRepo     identity.AccountRepository
	verifier        *PaymentVerifier
	notifier        GuestFulfillmentNotifier
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// FulfillmentServiceConfig holds the dependencies of the fulfillment service
type FulfillmentServiceConfig struct {
	OrderRepo       order.OrderRepository
	EntitlementRepo library.EntitlementRepository
	AccountRepo     identity.AccountRepository
	Verifier        *PaymentVerifier
	Notifier        GuestFulfillmentNotifier
	EventPublisher  shared.EventPublisher
	Logger          *zap.Logger
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(config FulfillmentServiceConfig) *FulfillmentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentService{
		orderRepo:       config.OrderRepo,
		entitlementRepo: config.EntitlementRepo,
		accountRepo:     config.AccountRepo,
		verifier:        config.Verifier,
		notifier:        config.Notifier,
		eventPublisher:  config.EventPublisher,
		logger:          logger,
	}
}

// Reconcile advances the order identified by orderID based on the gateway's
// current view of its payment.
//
// Losing a compare-and-set race returns shared.ErrConcurrencyConflict; the
// caller retries Reconcile, which then observes the winner's state and
// returns idempotently.
func (s *FulfillmentService) Reconcile(ctx context.Context, orderID uuid.UUID) (*FulfillmentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()))
	defer span.End()

	result, err := s.reconcile(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderStatus, result.OrderStatus,
		"outcome", string(result.Outcome),
	)
	return result, nil
}

func (s *FulfillmentService) reconcile(ctx context.Context, orderID uuid.UUID) (*FulfillmentResult, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Terminal orders answer from the ledger alone: no gateway call, no writes.
	if o.IsTerminal() {
		return s.terminalResult(o), nil
	}

	if o.PollReference == nil {
		// Payment creation never completed; the order can only stay pending.
		return s.pendingResult(o), nil
	}

	verification := s.verifier.Verify(ctx, *o.PollReference)

	switch verification.Status {
	case order.PaymentStatusUnknown, order.PaymentStatusPending:
		return s.pendingResult(o), nil

	case order.PaymentStatusFailed:
		return s.failOrder(ctx, o, "payment reported failed by gateway")

	case order.PaymentStatusPaid:
		// A settled amount below the order amount never fulfils, no matter
		// what status the gateway attaches to it.
		if !verification.Covers(o.Amount) {
			s.logger.Warn("Paid amount below order amount",
				zap.String("order_id", o.ID.String()),
				zap.String("order_amount", o.Amount.String()),
				zap.String("paid_amount", verification.Amount.String()))
			return s.failOrder(ctx, o, fmt.Sprintf(
				"paid amount %s below order amount %s",
				verification.Amount, o.Amount))
		}
		return s.fulfillOrder(ctx, o, verification)

	default:
		s.logger.Error("Unexpected payment status from verifier",
			zap.String("order_id", o.ID.String()),
			zap.String("status", string(verification.Status)))
		return s.pendingResult(o), nil
	}
}

// ReconcileByPaymentReference resolves the merchant reference echoed in a
// gateway callback and reconciles the matching order.
func (s *FulfillmentService) ReconcileByPaymentReference(ctx context.Context, reference string) (*FulfillmentResult, error) {
	o, err := s.orderRepo.FindByPaymentReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, o.ID)
}

func (s *FulfillmentService) failOrder(ctx context.Context, o *order.Order, reason string) (*FulfillmentResult, error) {
	prior := o.Status
	if err := o.Fail(reason); err != nil {
		return nil, err
	}
	if err := s.orderRepo.TransitionStatus(ctx, o, prior); err != nil {
		return nil, err
	}

	s.logger.Info("Order failed",
		zap.String("order_id", o.ID.String()),
		zap.String("prior_status", string(prior)))
	s.publishEvents(ctx, o)

	return s.terminalResult(o), nil
}

func (s *FulfillmentService) fulfillOrder(ctx context.Context, o *order.Order, verification *order.PollResult) (*FulfillmentResult, error) {
	if o.Status == order.OrderStatusPending {
		if err := o.MarkPaid(verification.PayerEmail); err != nil {
			return nil, err
		}
		if err := s.orderRepo.TransitionStatus(ctx, o, order.OrderStatusPending); err != nil {
			return nil, err
		}
		s.logger.Info("Order paid",
			zap.String("order_id", o.ID.String()),
			zap.String("payer_email", o.PayerEmail))
	}

	account, err := s.resolveBuyer(ctx, o)
	if err != nil {
		return nil, err
	}

	if account != nil {
		entitlement, err := library.NewEntitlement(account.ID, o.BookID, o.ID)
		if err != nil {
			return nil, err
		}
		created, err := s.entitlementRepo.Grant(ctx, entitlement)
		if err != nil {
			return nil, fmt.Errorf("granting entitlement for order %s: %w", o.ID, err)
		}
		if created {
			s.logger.Info("Entitlement granted",
				zap.String("account_id", account.ID.String()),
				zap.String("book_id", o.BookID.String()),
				zap.String("order_id", o.ID.String()))
			telemetry.AddEvent(telemetry.SpanFromContext(ctx), "entitlement_granted",
				telemetry.SpanAttrAccountID, account.ID.String(),
				telemetry.SpanAttrBookID, o.BookID.String())
		}
	}

	if err := o.Fulfill(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.TransitionStatus(ctx, o, order.OrderStatusPaid); err != nil {
		return nil, err
	}

	// Winning the paid -> fulfilled transition makes this invocation the single
	// owner of the guest delivery signal.
	if account == nil && s.notifier != nil {
		delivery := GuestDelivery{
			OrderID:   o.ID,
			Email:     o.PayerEmail,
			BookID:    o.BookID,
			BookTitle: o.BookTitle,
		}
		if err := s.notifier.NotifyGuestFulfillment(ctx, delivery); err != nil {
			// The delivery collaborator owns retries; a lost signal is recoverable
			// through support, a double grant is not.
			s.logger.Error("Guest fulfillment notification failed",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Order fulfilled",
		zap.String("order_id", o.ID.String()),
		zap.Bool("guest", account == nil))
	s.publishEvents(ctx, o)

	result := s.terminalResult(o)
	result.Guest = account == nil
	return result, nil
}

// resolveBuyer finds the account the entitlement should attach to: the
// authenticated buyer when the order has one, otherwise a registered account
// matching the gateway-verified payer email. No match means a guest order.
func (s *FulfillmentService) resolveBuyer(ctx context.Context, o *order.Order) (*identity.Account, error) {
	if o.BuyerID != nil {
		account, err := s.accountRepo.FindByID(ctx, *o.BuyerID)
		if err != nil {
			if shared.IsNotFound(err) {
				// Buyer reference is stale; fall through to email matching.
				s.logger.Warn("Order buyer account missing",
					zap.String("order_id", o.ID.String()),
					zap.String("buyer_id", o.BuyerID.String()))
			} else {
				return nil, err
			}
		} else {
			return account, nil
		}
	}

	account, err := s.accountRepo.FindByEmail(ctx, o.PayerEmail)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

func (s *FulfillmentService) pendingResult(o *order.Order) *FulfillmentResult {
	return &FulfillmentResult{
		OrderID:     o.ID,
		Outcome:     OutcomeStillPending,
		OrderStatus: o.Status.String(),
		Guest:       o.IsGuest(),
	}
}

func (s *FulfillmentService) terminalResult(o *order.Order) *FulfillmentResult {
	outcome := OutcomeFulfilled
	if o.Status == order.OrderStatusFailed {
		outcome = OutcomeFailed
	}
	return &FulfillmentResult{
		OrderID:       o.ID,
		Outcome:       outcome,
		OrderStatus:   o.Status.String(),
		Guest:         o.IsGuest(),
		FailureReason: o.FailureReason,
	}
}

func (s *FulfillmentService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
	o.ClearDomainEvents()
}
