package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBookRepository implements catalog.BookRepository using GORM
type GormBookRepository struct {
	db *gorm.DB
}

// NewGormBookRepository creates a new GormBookRepository
func NewGormBookRepository(db *gorm.DB) *GormBookRepository {
	return &GormBookRepository{db: db}
}

// FindByID finds a book by its ID
func (r *GormBookRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var book catalog.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

// FindPublishedByID returns the book only if it is published.
// Unpublished books are indistinguishable from missing ones to buyers.
func (r *GormBookRepository) FindPublishedByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var book catalog.Book
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_published = ?", id, true).
		First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

// FindAll finds all books with filtering
func (r *GormBookRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Book, int64, error) {
	return r.findPage(ctx, r.db.WithContext(ctx).Model(&catalog.Book{}), filter)
}

// FindPublished finds published books with filtering
func (r *GormBookRepository) FindPublished(ctx context.Context, filter shared.Filter) ([]catalog.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Book{}).Where("is_published = ?", true)
	return r.findPage(ctx, query, filter)
}

// Save creates or updates a book
func (r *GormBookRepository) Save(ctx context.Context, book *catalog.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

// Delete deletes a book
func (r *GormBookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Book{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var bookSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"title":        true,
	"price":        true,
	"published_at": true,
}

func (r *GormBookRepository) findPage(ctx context.Context, query *gorm.DB, filter shared.Filter) ([]catalog.Book, int64, error) {
	if filter.Search != "" {
		pattern := "%" + strings.TrimSpace(filter.Search) + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, bookSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var books []catalog.Book
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}
