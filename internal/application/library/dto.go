package library

import (
	"time"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/Ashtonex/maasim/internal/domain/library"
	"github.com/google/uuid"
)

// LibraryItem is one purchased book in a reader's library
type LibraryItem struct {
	BookID      uuid.UUID `json:"book_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverURL    string    `json:"cover_url,omitempty"`
	GrantedAt   time.Time `json:"granted_at"`
}

// DownloadLinkResponse carries a short-lived presigned download URL
type DownloadLinkResponse struct {
	BookID    uuid.UUID `json:"book_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toLibraryItem(e *library.Entitlement, book *catalog.Book) LibraryItem {
	return LibraryItem{
		BookID:      book.ID,
		Title:       book.Title,
		Description: book.Description,
		CoverURL:    book.CoverURL,
		GrantedAt:   e.GrantedAt,
	}
}
