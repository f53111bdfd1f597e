package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/Ashtonex/maasim/internal/domain/identity"
	"github.com/Ashtonex/maasim/internal/domain/library"
	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newPendingOrder(t *testing.T, buyerID *uuid.UUID) *order.Order {
	o, err := order.NewOrder(uuid.New(), "The Silent River", valueobject.NewMoneyUSDFromFloat(12.50), "reader@example.com", buyerID)
	require.NoError(t, err)
	require.NoError(t, o.AttachPaymentCreated("https://gateway.example/poll/"+o.PaymentReference, "gw-1"))
	o.ClearDomainEvents()
	return o
}

func newService(orderRepo order.OrderRepository, entRepo library.EntitlementRepository, accountRepo identity.AccountRepository, gateway order.PaymentGateway, notifier GuestFulfillmentNotifier) *FulfillmentService {
	return NewFulfillmentService(FulfillmentServiceConfig{
		OrderRepo:       orderRepo,
		EntitlementRepo: entRepo,
		AccountRepo:     accountRepo,
		Verifier:        NewPaymentVerifier(gateway, nil),
		Notifier:        notifier,
	})
}

func paidPoll(payerEmail string) *order.PollResult {
	return &order.PollResult{
		Status:     order.PaymentStatusPaid,
		PayerEmail: payerEmail,
	}
}

func TestReconcile_OrderNotFound(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), new(MockPaymentGateway), nil)

	_, err := svc.Reconcile(context.Background(), uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestReconcile_TerminalFulfilled_NoGatewayCallNoWrites(t *testing.T) {
	o := newPendingOrder(t, nil)
	require.NoError(t, o.MarkPaid("reader@example.com"))
	require.NoError(t, o.Fulfill())

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	gateway := new(MockPaymentGateway)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), gateway, nil)

	// Repeated calls return the same stored result every time
	for i := 0; i < 3; i++ {
		result, err := svc.Reconcile(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFulfilled, result.Outcome)
		assert.Equal(t, "FULFILLED", result.OrderStatus)
	}

	gateway.AssertNotCalled(t, "PollPayment", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_TerminalFailed_ReturnsStoredReason(t *testing.T) {
	o := newPendingOrder(t, nil)
	require.NoError(t, o.Fail("payment reported failed by gateway"))

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	gateway := new(MockPaymentGateway)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "payment reported failed by gateway", result.FailureReason)
	gateway.AssertNotCalled(t, "PollPayment", mock.Anything, mock.Anything)
}

func TestReconcile_VerifierUnavailable_StaysPending(t *testing.T) {
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(nil, order.ErrGatewayUnavailable)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStillPending, result.Outcome)
	assert.Equal(t, "PENDING", result.OrderStatus)
	orderRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_GatewayPending_StaysPending(t *testing.T) {
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(&order.PollResult{Status: order.PaymentStatusPending}, nil)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStillPending, result.Outcome)
	orderRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_NoPollReference_StaysPending(t *testing.T) {
	o, err := order.NewOrder(uuid.New(), "The Silent River", valueobject.NewMoneyUSDFromFloat(12.50), "reader@example.com", nil)
	require.NoError(t, err)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	gateway := new(MockPaymentGateway)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStillPending, result.Outcome)
	gateway.AssertNotCalled(t, "PollPayment", mock.Anything, mock.Anything)
}

func TestReconcile_FailedVerification_FailsOrder(t *testing.T) {
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(nil)
	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(&order.PollResult{Status: order.PaymentStatusFailed}, nil)

	entRepo := new(MockEntitlementRepository)
	svc := newService(orderRepo, entRepo, new(MockAccountRepository), gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, order.OrderStatusFailed, o.Status)
	entRepo.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	orderRepo.AssertExpectations(t)
}

func TestReconcile_PaidBelowOrderAmount_FailsOrder(t *testing.T) {
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(nil)

	// Gateway says Paid but only a fraction of the 12.50 price settled.
	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(&order.PollResult{
		Status:     order.PaymentStatusPaid,
		Amount:     decimal.NewFromFloat(0.01),
		PayerEmail: "reader@example.com",
	}, nil)

	entRepo := new(MockEntitlementRepository)
	accountRepo := new(MockAccountRepository)
	svc := newService(orderRepo, entRepo, accountRepo, gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, order.OrderStatusFailed, o.Status)
	assert.Contains(t, result.FailureReason, "below order amount")
	entRepo.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	accountRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	orderRepo.AssertExpectations(t)
}

func TestReconcile_PaidAmountCoversOrder_Fulfills(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"exact amount", decimal.NewFromFloat(12.50)},
		{"overpayment", decimal.NewFromFloat(20.00)},
		{"amount omitted by gateway", decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newPendingOrder(t, nil)

			orderRepo := new(MockOrderRepository)
			orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
			orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(nil).Once()
			orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPaid).Return(nil).Once()

			gateway := new(MockPaymentGateway)
			gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(&order.PollResult{
				Status:     order.PaymentStatusPaid,
				Amount:     tt.amount,
				PayerEmail: "reader@example.com",
			}, nil)

			accountRepo := new(MockAccountRepository)
			accountRepo.On("FindByEmail", mock.Anything, "reader@example.com").Return(nil, shared.ErrNotFound)

			notifier := new(MockGuestNotifier)
			notifier.On("NotifyGuestFulfillment", mock.Anything, mock.Anything).Return(nil)

			svc := newService(orderRepo, new(MockEntitlementRepository), accountRepo, gateway, notifier)

			result, err := svc.Reconcile(context.Background(), o.ID)
			require.NoError(t, err)
			assert.Equal(t, OutcomeFulfilled, result.Outcome)
			assert.Equal(t, order.OrderStatusFulfilled, o.Status)
			orderRepo.AssertExpectations(t)
		})
	}
}

func TestReconcile_Paid_AuthenticatedBuyer_GrantsEntitlement(t *testing.T) {
	buyer, err := identity.NewAccount("reader@example.com", "Reader")
	require.NoError(t, err)
	buyerID := buyer.ID
	o := newPendingOrder(t, &buyerID)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(nil).Once()
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPaid).Return(nil).Once()

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByID", mock.Anything, buyerID).Return(buyer, nil)

	entRepo := new(MockEntitlementRepository)
	entRepo.On("Grant", mock.Anything, mock.MatchedBy(func(e *library.Entitlement) bool {
		return e.AccountID == buyerID && e.BookID == o.BookID && e.SourceOrderID == o.ID
	})).Return(true, nil)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("reader@example.com"), nil)

	notifier := new(MockGuestNotifier)
	svc := newService(orderRepo, entRepo, accountRepo, gateway, notifier)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)
	assert.False(t, result.Guest)
	assert.Equal(t, order.OrderStatusFulfilled, o.Status)

	notifier.AssertNotCalled(t, "NotifyGuestFulfillment", mock.Anything, mock.Anything)
	orderRepo.AssertExpectations(t)
	entRepo.AssertExpectations(t)
}

func TestReconcile_Paid_GuestEmailMatchesAccount(t *testing.T) {
	account, err := identity.NewAccount("payer@example.com", "Payer")
	require.NoError(t, err)
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(nil).Once()
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPaid).Return(nil).Once()

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByEmail", mock.Anything, "payer@example.com").Return(account, nil)

	entRepo := new(MockEntitlementRepository)
	entRepo.On("Grant", mock.Anything, mock.Anything).Return(true, nil)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("Payer@Example.com"), nil)

	notifier := new(MockGuestNotifier)
	svc := newService(orderRepo, entRepo, accountRepo, gateway, notifier)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)
	assert.False(t, result.Guest)
	notifier.AssertNotCalled(t, "NotifyGuestFulfillment", mock.Anything, mock.Anything)
	entRepo.AssertExpectations(t)
}

func TestReconcile_Paid_GuestWithoutAccount_SignalsDelivery(t *testing.T) {
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(nil).Once()
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPaid).Return(nil).Once()

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByEmail", mock.Anything, "payer@example.com").Return(nil, shared.ErrNotFound)

	entRepo := new(MockEntitlementRepository)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("payer@example.com"), nil)

	notifier := new(MockGuestNotifier)
	notifier.On("NotifyGuestFulfillment", mock.Anything, mock.MatchedBy(func(d GuestDelivery) bool {
		return d.OrderID == o.ID && d.Email == "payer@example.com" && d.BookID == o.BookID
	})).Return(nil).Once()

	svc := newService(orderRepo, entRepo, accountRepo, gateway, notifier)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)
	assert.True(t, result.Guest)
	assert.Equal(t, order.OrderStatusFulfilled, o.Status)

	entRepo.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	notifier.AssertExpectations(t)
}

func TestReconcile_Paid_EntitlementConflictIsSuccess(t *testing.T) {
	buyer, err := identity.NewAccount("reader@example.com", "Reader")
	require.NoError(t, err)
	buyerID := buyer.ID
	o := newPendingOrder(t, &buyerID)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, mock.Anything).Return(nil)

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByID", mock.Anything, buyerID).Return(buyer, nil)

	entRepo := new(MockEntitlementRepository)
	// An existing (account, book) pair reports created=false, never an error
	entRepo.On("Grant", mock.Anything, mock.Anything).Return(false, nil)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("reader@example.com"), nil)

	svc := newService(orderRepo, entRepo, accountRepo, gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)
}

func TestReconcile_AlreadyPaid_ResumesWithoutRepayTransition(t *testing.T) {
	// Crash recovery: the order was marked paid but fulfillment never finished
	buyer, err := identity.NewAccount("reader@example.com", "Reader")
	require.NoError(t, err)
	buyerID := buyer.ID
	o := newPendingOrder(t, &buyerID)
	require.NoError(t, o.MarkPaid("reader@example.com"))
	o.ClearDomainEvents()

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPaid).Return(nil).Once()

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByID", mock.Anything, buyerID).Return(buyer, nil)

	entRepo := new(MockEntitlementRepository)
	entRepo.On("Grant", mock.Anything, mock.Anything).Return(false, nil)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("reader@example.com"), nil)

	svc := newService(orderRepo, entRepo, accountRepo, gateway, nil)

	result, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)
	orderRepo.AssertNumberOfCalls(t, "TransitionStatus", 1)
}

func TestReconcile_LostRace_SurfacesConcurrencyConflict(t *testing.T) {
	o := newPendingOrder(t, nil)

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orderRepo.On("TransitionStatus", mock.Anything, o, order.OrderStatusPending).Return(shared.ErrConcurrencyConflict)

	accountRepo := new(MockAccountRepository)
	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("reader@example.com"), nil)

	svc := newService(orderRepo, new(MockEntitlementRepository), accountRepo, gateway, nil)

	_, err := svc.Reconcile(context.Background(), o.ID)
	assert.True(t, shared.IsConcurrencyConflict(err))
}

func TestReconcileByPaymentReference(t *testing.T) {
	o := newPendingOrder(t, nil)
	require.NoError(t, o.MarkPaid("reader@example.com"))
	require.NoError(t, o.Fulfill())

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByPaymentReference", mock.Anything, o.PaymentReference).Return(o, nil)
	orderRepo.On("FindByPaymentReference", mock.Anything, "MAASIM-UNKNOWN").Return(nil, shared.ErrNotFound)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), new(MockPaymentGateway), nil)

	result, err := svc.ReconcileByPaymentReference(context.Background(), o.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)

	_, err = svc.ReconcileByPaymentReference(context.Background(), "MAASIM-UNKNOWN")
	assert.Error(t, err)
}

// reconcileUntilSettled retries through compare-and-set conflicts the way the
// HTTP layer does: a losing call re-enters Reconcile and adopts the winner's
// outcome.
func reconcileUntilSettled(t *testing.T, svc *FulfillmentService, orderID uuid.UUID) *FulfillmentResult {
	for i := 0; i < 10; i++ {
		result, err := svc.Reconcile(context.Background(), orderID)
		if err == nil {
			return result
		}
		if !shared.IsConcurrencyConflict(err) {
			t.Errorf("reconcile failed with non-conflict error: %v", err)
			return nil
		}
	}
	t.Error("reconcile did not settle after 10 attempts")
	return nil
}

func TestReconcile_ConcurrentCalls_SingleEntitlement(t *testing.T) {
	account, err := identity.NewAccount("reader@example.com", "Reader")
	require.NoError(t, err)
	accountID := account.ID
	o := newPendingOrder(t, &accountID)

	orders := newFakeOrderStore(o)
	entitlements := newFakeEntitlementStore()

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByID", mock.Anything, accountID).Return(account, nil)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("reader@example.com"), nil)

	svc := newService(orders, entitlements, accountRepo, gateway, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*FulfillmentResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reconcileUntilSettled(t, svc, o.ID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, entitlements.count(), "exactly one entitlement row")
	assert.Equal(t, order.OrderStatusFulfilled, orders.get(o.ID).Status)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, OutcomeFulfilled, r.Outcome)
	}
}

func TestReconcile_ConcurrentGuestCalls_SingleDeliverySignal(t *testing.T) {
	o := newPendingOrder(t, nil)

	orders := newFakeOrderStore(o)
	entitlements := newFakeEntitlementStore()

	accountRepo := new(MockAccountRepository)
	accountRepo.On("FindByEmail", mock.Anything, "payer@example.com").Return(nil, shared.ErrNotFound)

	gateway := new(MockPaymentGateway)
	gateway.On("PollPayment", mock.Anything, *o.PollReference).Return(paidPoll("payer@example.com"), nil)

	notifier := &countingNotifier{}
	svc := newService(orders, entitlements, accountRepo, gateway, notifier)

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reconcileUntilSettled(t, svc, o.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, notifier.count(), "guest delivery signalled exactly once")
	assert.Equal(t, 0, entitlements.count())
	assert.Equal(t, order.OrderStatusFulfilled, orders.get(o.ID).Status)
}

func TestReconcile_EmitsServiceSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	o := newPendingOrder(t, nil)
	require.NoError(t, o.MarkPaid("reader@example.com"))
	require.NoError(t, o.Fulfill())

	orderRepo := new(MockOrderRepository)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	svc := newService(orderRepo, new(MockEntitlementRepository), new(MockAccountRepository), new(MockPaymentGateway), nil)

	_, err := svc.Reconcile(context.Background(), o.ID)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "fulfillment.reconcile", spans[0].Name)
}
