package library

import (
	"context"
	"time"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/Ashtonex/maasim/internal/domain/library"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Download links are short-lived on purpose: the reader fetches the file
// immediately, the link is never meant to be shared.
const downloadURLExpiry = 60 * time.Second

// DownloadURLGenerator issues presigned download URLs from the private bucket
type DownloadURLGenerator interface {
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// LibraryService exposes a reader's purchased books and their download links
type LibraryService struct {
	entitlementRepo library.EntitlementRepository
	bookRepo        catalog.BookRepository
	storage         DownloadURLGenerator
	logger          *zap.Logger
}

// NewLibraryService creates a new LibraryService
func NewLibraryService(
	entitlementRepo library.EntitlementRepository,
	bookRepo catalog.BookRepository,
	storage DownloadURLGenerator,
	logger *zap.Logger,
) *LibraryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryService{
		entitlementRepo: entitlementRepo,
		bookRepo:        bookRepo,
		storage:         storage,
		logger:          logger,
	}
}

// ListForAccount returns the books the account is entitled to
func (s *LibraryService) ListForAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[LibraryItem], error) {
	entitlements, total, err := s.entitlementRepo.FindByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]LibraryItem, 0, len(entitlements))
	for i := range entitlements {
		e := &entitlements[i]
		book, err := s.bookRepo.FindByID(ctx, e.BookID)
		if err != nil {
			if shared.IsNotFound(err) {
				// Entitlement outlived the catalog entry; skip rather than fail
				// the whole library view.
				s.logger.Warn("Entitled book missing from catalog",
					zap.String("book_id", e.BookID.String()),
					zap.String("account_id", accountID.String()))
				continue
			}
			return nil, err
		}
		items = append(items, toLibraryItem(e, book))
	}

	result := shared.NewPaginated(items, total, filter.Page, filter.Limit())
	return &result, nil
}

// HasAccess reports whether the account holds an entitlement for the book
func (s *LibraryService) HasAccess(ctx context.Context, accountID, bookID uuid.UUID) (bool, error) {
	_, err := s.entitlementRepo.FindByAccountAndBook(ctx, accountID, bookID)
	if err != nil {
		if shared.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DownloadLink returns a short-lived presigned URL for an entitled book.
// No entitlement means Forbidden, even when the book exists.
func (s *LibraryService) DownloadLink(ctx context.Context, accountID, bookID uuid.UUID) (*DownloadLinkResponse, error) {
	hasAccess, err := s.HasAccess(ctx, accountID, bookID)
	if err != nil {
		return nil, err
	}
	if !hasAccess {
		return nil, shared.ErrForbidden
	}

	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.FileKey == "" {
		return nil, shared.NewDomainError("FILE_MISSING", "Book has no file attached")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, book.FileKey, downloadURLExpiry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Download link issued",
		zap.String("account_id", accountID.String()),
		zap.String("book_id", bookID.String()))

	return &DownloadLinkResponse{
		BookID:    bookID,
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}
