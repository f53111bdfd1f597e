package catalog

import (
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeBook = "Book"

// Event type constants
const (
	EventTypeBookCreated   = "BookCreated"
	EventTypeBookPublished = "BookPublished"
)

// BookCreatedEvent is raised when a new book is added to the catalog
type BookCreatedEvent struct {
	shared.BaseDomainEvent
	BookID uuid.UUID       `json:"book_id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
}

// NewBookCreatedEvent creates a new BookCreatedEvent
func NewBookCreatedEvent(book *Book) *BookCreatedEvent {
	return &BookCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookCreated, AggregateTypeBook, book.ID),
		BookID:          book.ID,
		Title:           book.Title,
		Price:           book.Price,
	}
}

// EventType returns the event type name
func (e *BookCreatedEvent) EventType() string {
	return EventTypeBookCreated
}

// BookPublishedEvent is raised when a book becomes sellable
type BookPublishedEvent struct {
	shared.BaseDomainEvent
	BookID uuid.UUID `json:"book_id"`
	Title  string    `json:"title"`
}

// NewBookPublishedEvent creates a new BookPublishedEvent
func NewBookPublishedEvent(book *Book) *BookPublishedEvent {
	return &BookPublishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookPublished, AggregateTypeBook, book.ID),
		BookID:          book.ID,
		Title:           book.Title,
	}
}

// EventType returns the event type name
func (e *BookPublishedEvent) EventType() string {
	return EventTypeBookPublished
}
