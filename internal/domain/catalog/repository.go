package catalog

import (
	"context"

	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
)

// BookRepository defines persistence operations for books
type BookRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Book, error)
	// FindPublishedByID returns the book only if it is published
	FindPublishedByID(ctx context.Context, id uuid.UUID) (*Book, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Book, int64, error)
	FindPublished(ctx context.Context, filter shared.Filter) ([]Book, int64, error)
	Save(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id uuid.UUID) error
}
