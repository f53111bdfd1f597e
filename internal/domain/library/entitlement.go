package library

import (
	"time"

	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
)

// Entitlement is a durable grant of one account's access to one book.
// Identity is the (AccountID, BookID) pair: granting an existing pair again
// is a no-op, enforced by a uniqueness constraint rather than a pre-check.
type Entitlement struct {
	shared.BaseEntity
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entitlement_account_book,priority:1"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entitlement_account_book,priority:2"`
	// SourceOrderID is the traceability link to the granting order
	SourceOrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	GrantedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Entitlement) TableName() string {
	return "entitlements"
}

// NewEntitlement creates a new entitlement grant
func NewEntitlement(accountID, bookID, sourceOrderID uuid.UUID) (*Entitlement, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if bookID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOK", "Book ID cannot be empty")
	}
	if sourceOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Source order ID cannot be empty")
	}

	now := time.Now()
	return &Entitlement{
		BaseEntity:    shared.NewBaseEntity(),
		AccountID:     accountID,
		BookID:        bookID,
		SourceOrderID: sourceOrderID,
		GrantedAt:     now,
	}, nil
}
