package persistence

import (
	"context"
	"errors"

	"github.com/Ashtonex/maasim/internal/domain/library"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEntitlementRepository implements library.EntitlementRepository using GORM
type GormEntitlementRepository struct {
	db *gorm.DB
}

// NewGormEntitlementRepository creates a new GormEntitlementRepository
func NewGormEntitlementRepository(db *gorm.DB) *GormEntitlementRepository {
	return &GormEntitlementRepository{db: db}
}

// Grant inserts the entitlement. The (account_id, book_id) uniqueness
// constraint absorbs duplicate grants: a conflicting insert affects zero
// rows and reports created=false, which callers treat as success.
func (r *GormEntitlementRepository) Grant(ctx context.Context, e *library.Entitlement) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "book_id"}},
			DoNothing: true,
		}).
		Create(e)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByAccountAndBook finds the entitlement for an (account, book) pair
func (r *GormEntitlementRepository) FindByAccountAndBook(ctx context.Context, accountID, bookID uuid.UUID) (*library.Entitlement, error) {
	var e library.Entitlement
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND book_id = ?", accountID, bookID).
		First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// FindByAccount finds all entitlements held by an account
func (r *GormEntitlementRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]library.Entitlement, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&library.Entitlement{}).
		Where("account_id = ?", accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, entitlementSortFields, "granted_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var entitlements []library.Entitlement
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&entitlements).Error; err != nil {
		return nil, 0, err
	}
	return entitlements, total, nil
}

var entitlementSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"granted_at": true,
	"book_id":    true,
}
