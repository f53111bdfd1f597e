package checkout

import (
	"context"
	"sync"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/Ashtonex/maasim/internal/domain/identity"
	"github.com/Ashtonex/maasim/internal/domain/library"
	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Payment Gateway
// =============================================================================

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req *order.CreatePaymentRequest) (*order.CreatePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CreatePaymentResponse), args.Error(1)
}

func (m *MockPaymentGateway) PollPayment(ctx context.Context, pollReference string) (*order.PollResult, error) {
	args := m.Called(ctx, pollReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PollResult), args.Error(1)
}

// =============================================================================
// Mock Order Repository
// =============================================================================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentReference(ctx context.Context, reference string) (*order.Order, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, buyerID, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) TransitionStatus(ctx context.Context, o *order.Order, expected order.OrderStatus) error {
	args := m.Called(ctx, o, expected)
	return args.Error(0)
}

// =============================================================================
// Mock Entitlement Repository
// =============================================================================

type MockEntitlementRepository struct {
	mock.Mock
}

func (m *MockEntitlementRepository) Grant(ctx context.Context, e *library.Entitlement) (bool, error) {
	args := m.Called(ctx, e)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntitlementRepository) FindByAccountAndBook(ctx context.Context, accountID, bookID uuid.UUID) (*library.Entitlement, error) {
	args := m.Called(ctx, accountID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*library.Entitlement), args.Error(1)
}

func (m *MockEntitlementRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]library.Entitlement, int64, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).([]library.Entitlement), args.Get(1).(int64), args.Error(2)
}

// =============================================================================
// Mock Account Repository
// =============================================================================

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, a *identity.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// =============================================================================
// Mock Book Repository
// =============================================================================

type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Book), args.Error(1)
}

func (m *MockBookRepository) FindPublishedByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Book), args.Error(1)
}

func (m *MockBookRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Book, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Book), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookRepository) FindPublished(ctx context.Context, filter shared.Filter) ([]catalog.Book, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Book), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookRepository) Save(ctx context.Context, book *catalog.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Mock Guest Notifier
// =============================================================================

type MockGuestNotifier struct {
	mock.Mock
}

func (m *MockGuestNotifier) NotifyGuestFulfillment(ctx context.Context, delivery GuestDelivery) error {
	args := m.Called(ctx, delivery)
	return args.Error(0)
}

// =============================================================================
// In-memory fakes for concurrency tests
//
// testify mocks are not safe to assert against from multiple goroutines, so
// the concurrent reconcile tests use real little stores with the same
// serialization semantics the SQL layer provides: a conditional update for
// order status and a unique (account, book) pair for entitlements.
// =============================================================================

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]order.Order
}

func newFakeOrderStore(orders ...*order.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[uuid.UUID]order.Order)}
	for _, o := range orders {
		s.orders[o.ID] = *o
	}
	return s
}

func (s *fakeOrderStore) get(id uuid.UUID) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *fakeOrderStore) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := o
	return &copied, nil
}

func (s *fakeOrderStore) FindByPaymentReference(_ context.Context, reference string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentReference == reference {
			copied := o
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *fakeOrderStore) FindAll(_ context.Context, _ shared.Filter) ([]order.Order, int64, error) {
	return nil, 0, nil
}

func (s *fakeOrderStore) FindByBuyer(_ context.Context, _ uuid.UUID, _ shared.Filter) ([]order.Order, int64, error) {
	return nil, 0, nil
}

func (s *fakeOrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *o
	return nil
}

func (s *fakeOrderStore) Save(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *o
	return nil
}

func (s *fakeOrderStore) TransitionStatus(_ context.Context, o *order.Order, expected order.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Status != expected {
		return shared.ErrConcurrencyConflict
	}
	s.orders[o.ID] = *o
	return nil
}

type fakeEntitlementStore struct {
	mu     sync.Mutex
	grants map[[2]uuid.UUID]library.Entitlement
}

func newFakeEntitlementStore() *fakeEntitlementStore {
	return &fakeEntitlementStore{grants: make(map[[2]uuid.UUID]library.Entitlement)}
}

func (s *fakeEntitlementStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grants)
}

func (s *fakeEntitlementStore) Grant(_ context.Context, e *library.Entitlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{e.AccountID, e.BookID}
	if _, exists := s.grants[key]; exists {
		return false, nil
	}
	s.grants[key] = *e
	return true, nil
}

func (s *fakeEntitlementStore) FindByAccountAndBook(_ context.Context, accountID, bookID uuid.UUID) (*library.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.grants[[2]uuid.UUID{accountID, bookID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := e
	return &copied, nil
}

func (s *fakeEntitlementStore) FindByAccount(_ context.Context, _ uuid.UUID, _ shared.Filter) ([]library.Entitlement, int64, error) {
	return nil, 0, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls []GuestDelivery
}

func (n *countingNotifier) NotifyGuestFulfillment(_ context.Context, delivery GuestDelivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, delivery)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
