package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByPaymentReference resolves the merchant reference echoed back by the
// gateway to the internal order
func (r *GormOrderRepository) FindByPaymentReference(ctx context.Context, reference string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		First(&o, "payment_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAll finds all orders with filtering
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	return r.findPage(ctx, r.db.WithContext(ctx).Model(&order.Order{}), filter)
}

// FindByBuyer finds orders placed by an authenticated buyer
func (r *GormOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("buyer_id = ?", buyerID)
	return r.findPage(ctx, query, filter)
}

// Create inserts a new pending order
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// Save updates an order's non-status fields
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	result := r.db.WithContext(ctx).Save(o)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TransitionStatus persists the order's current state with a conditional
// update guarded on the expected prior status. Concurrent reconcilers
// serialize here: whoever hits zero affected rows lost the race and gets
// shared.ErrConcurrencyConflict with nothing written.
func (r *GormOrderRepository) TransitionStatus(ctx context.Context, o *order.Order, expected order.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("id = ? AND status = ?", o.ID, expected).
		Updates(map[string]interface{}{
			"status":         o.Status,
			"payer_email":    o.PayerEmail,
			"failure_reason": o.FailureReason,
			"paid_at":        o.PaidAt,
			"fulfilled_at":   o.FulfilledAt,
			"failed_at":      o.FailedAt,
			"updated_at":     o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a lost race from a missing row
		var count int64
		if err := r.db.WithContext(ctx).Model(&order.Order{}).
			Where("id = ?", o.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var orderSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"status":       true,
	"amount":       true,
	"paid_at":      true,
	"fulfilled_at": true,
}

func (r *GormOrderRepository) findPage(ctx context.Context, query *gorm.DB, filter shared.Filter) ([]order.Order, int64, error) {
	if filter.Search != "" {
		pattern := "%" + strings.TrimSpace(filter.Search) + "%"
		query = query.Where("buyer_email ILIKE ? OR book_title ILIKE ? OR payment_reference ILIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, orderSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var orders []order.Order
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
