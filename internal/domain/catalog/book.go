package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const maxTitleLength = 200

// Book represents a sellable e-book aggregate root
// It owns the catalog entry: pricing, cover art and the private file key.
// Purchase and entitlement state live in the order and library contexts.
type Book struct {
	shared.BaseAggregateRoot
	Title       string               `gorm:"type:varchar(200);not null"`
	Description string               `gorm:"type:text"`
	Price       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency    valueobject.Currency `gorm:"type:varchar(3);not null"`
	CoverURL    string               `gorm:"type:text"`
	// FileKey is the object-storage key of the private book file
	FileKey     string `gorm:"type:varchar(255)"`
	IsPublished bool   `gorm:"not null;default:false;index"`
	PublishedAt *time.Time
}

// TableName returns the table name for GORM
func (Book) TableName() string {
	return "books"
}

// NewBook creates a new unpublished book
func NewBook(title, description string, price valueobject.Money) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Book title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return nil, shared.NewDomainError("INVALID_TITLE", fmt.Sprintf("Book title cannot exceed %d characters", maxTitleLength))
	}
	if !price.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Book price must be positive")
	}

	book := &Book{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Description:       strings.TrimSpace(description),
		Price:             price.Amount(),
		Currency:          price.Currency(),
	}

	book.AddDomainEvent(NewBookCreatedEvent(book))

	return book, nil
}

// UpdateDetails updates the title and description
func (b *Book) UpdateDetails(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Book title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return shared.NewDomainError("INVALID_TITLE", fmt.Sprintf("Book title cannot exceed %d characters", maxTitleLength))
	}

	b.Title = title
	b.Description = strings.TrimSpace(description)
	b.UpdatedAt = time.Now()
	return nil
}

// SetPrice updates the sale price
// Existing orders keep the price they were created at.
func (b *Book) SetPrice(price valueobject.Money) error {
	if !price.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Book price must be positive")
	}
	b.Price = price.Amount()
	b.Currency = price.Currency()
	b.UpdatedAt = time.Now()
	return nil
}

// AttachCover records the public cover image URL
func (b *Book) AttachCover(coverURL string) error {
	if strings.TrimSpace(coverURL) == "" {
		return shared.NewDomainError("INVALID_COVER", "Cover URL cannot be empty")
	}
	b.CoverURL = coverURL
	b.UpdatedAt = time.Now()
	return nil
}

// AttachFile records the private object-storage key of the book file
func (b *Book) AttachFile(fileKey string) error {
	if strings.TrimSpace(fileKey) == "" {
		return shared.NewDomainError("INVALID_FILE", "File key cannot be empty")
	}
	b.FileKey = fileKey
	b.UpdatedAt = time.Now()
	return nil
}

// Publish makes the book visible and sellable on the storefront
// A book cannot be published without a file to deliver.
func (b *Book) Publish() error {
	if b.IsPublished {
		return nil
	}
	if b.FileKey == "" {
		return shared.NewDomainError("INVALID_STATE", "Cannot publish a book without a file")
	}

	now := time.Now()
	b.IsPublished = true
	b.PublishedAt = &now
	b.UpdatedAt = now

	b.AddDomainEvent(NewBookPublishedEvent(b))

	return nil
}

// Unpublish removes the book from the storefront
// Existing entitlements keep access to the file.
func (b *Book) Unpublish() {
	if !b.IsPublished {
		return
	}
	b.IsPublished = false
	b.PublishedAt = nil
	b.UpdatedAt = time.Now()
}

// PriceMoney returns the price as a Money value object
func (b *Book) PriceMoney() valueobject.Money {
	m, err := valueobject.NewMoney(b.Price, b.Currency)
	if err != nil {
		return valueobject.NewMoneyUSD(b.Price)
	}
	return m
}
