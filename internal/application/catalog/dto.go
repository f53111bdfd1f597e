package catalog

import (
	"time"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBookRequest represents a request to create a new book
type CreateBookRequest struct {
	Title       string          `json:"title" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Currency    string          `json:"currency" binding:"omitempty,oneof=USD ZWG ZAR GBP EUR"`
	// Content types for the presigned upload URLs
	CoverContentType string `json:"cover_content_type" binding:"omitempty,max=100"`
	FileContentType  string `json:"file_content_type" binding:"omitempty,max=100"`
}

// UpdateBookRequest represents a request to update a book
type UpdateBookRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency" binding:"omitempty,oneof=USD ZWG ZAR GBP EUR"`
}

// UploadTarget is a presigned upload URL for a single object
type UploadTarget struct {
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// BookResponse represents a book in API responses
type BookResponse struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CoverURL    string          `json:"cover_url,omitempty"`
	IsPublished bool            `json:"is_published"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateBookResponse carries the new book plus its upload targets
type CreateBookResponse struct {
	Book        BookResponse  `json:"book"`
	CoverUpload *UploadTarget `json:"cover_upload,omitempty"`
	FileUpload  *UploadTarget `json:"file_upload,omitempty"`
}

// BookListFilter represents filter options for the book list
type BookListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func toBookResponse(book *catalog.Book) BookResponse {
	return BookResponse{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		Price:       book.Price,
		Currency:    string(book.Currency),
		CoverURL:    book.CoverURL,
		IsPublished: book.IsPublished,
		PublishedAt: book.PublishedAt,
		CreatedAt:   book.CreatedAt,
		UpdatedAt:   book.UpdatedAt,
	}
}
