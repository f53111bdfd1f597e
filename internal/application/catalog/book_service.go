package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/Ashtonex/maasim/internal/domain/catalog"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload URLs live long enough for an admin to push a file from the browser
const uploadURLExpiry = 15 * time.Minute

// ObjectStorageService abstracts the S3-compatible object store
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error
}

// BookService handles catalog management for the admin surface and the
// public storefront listing
type BookService struct {
	bookRepo catalog.BookRepository
	storage  ObjectStorageService
	logger   *zap.Logger
}

// NewBookService creates a new BookService
func NewBookService(bookRepo catalog.BookRepository, storage ObjectStorageService, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{
		bookRepo: bookRepo,
		storage:  storage,
		logger:   logger,
	}
}

// Create inserts an unpublished book and issues presigned upload URLs for
// its cover and file. The book is published separately, once the file
// upload has completed.
func (s *BookService) Create(ctx context.Context, req CreateBookRequest) (*CreateBookResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if req.Currency == "" {
		currency = valueobject.DefaultCurrency
	}
	price, err := valueobject.NewMoney(req.Price, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", err.Error())
	}

	book, err := catalog.NewBook(req.Title, req.Description, price)
	if err != nil {
		return nil, err
	}

	resp := &CreateBookResponse{}

	if req.FileContentType != "" {
		fileKey := fmt.Sprintf("books/%s/book", book.ID)
		uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, fileKey, req.FileContentType, uploadURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("generating file upload URL: %w", err)
		}
		if err := book.AttachFile(fileKey); err != nil {
			return nil, err
		}
		resp.FileUpload = &UploadTarget{StorageKey: fileKey, UploadURL: uploadURL, ExpiresAt: expiresAt}
	}

	if req.CoverContentType != "" {
		coverKey := fmt.Sprintf("covers/%s/cover", book.ID)
		uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, coverKey, req.CoverContentType, uploadURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("generating cover upload URL: %w", err)
		}
		resp.CoverUpload = &UploadTarget{StorageKey: coverKey, UploadURL: uploadURL, ExpiresAt: expiresAt}
	}

	if err := s.bookRepo.Save(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("Book created",
		zap.String("book_id", book.ID.String()),
		zap.String("title", book.Title))

	resp.Book = toBookResponse(book)
	return resp, nil
}

// Update changes a book's details and price
func (s *BookService) Update(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil || req.Description != nil {
		title := book.Title
		description := book.Description
		if req.Title != nil {
			title = *req.Title
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := book.UpdateDetails(title, description); err != nil {
			return nil, err
		}
	}

	if req.Price != nil {
		currency := book.Currency
		if req.Currency != nil {
			currency = valueobject.Currency(*req.Currency)
		}
		price, err := valueobject.NewMoney(*req.Price, currency)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_PRICE", err.Error())
		}
		if err := book.SetPrice(price); err != nil {
			return nil, err
		}
	}

	if err := s.bookRepo.Save(ctx, book); err != nil {
		return nil, err
	}

	resp := toBookResponse(book)
	return &resp, nil
}

// SetCover records the public cover URL after the upload completed
func (s *BookService) SetCover(ctx context.Context, id uuid.UUID, coverURL string) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := book.AttachCover(coverURL); err != nil {
		return nil, err
	}
	if err := s.bookRepo.Save(ctx, book); err != nil {
		return nil, err
	}
	resp := toBookResponse(book)
	return &resp, nil
}

// Publish makes the book visible on the storefront
func (s *BookService) Publish(ctx context.Context, id uuid.UUID) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := book.Publish(); err != nil {
		return nil, err
	}
	if err := s.bookRepo.Save(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("Book published", zap.String("book_id", book.ID.String()))

	resp := toBookResponse(book)
	return &resp, nil
}

// Unpublish removes the book from the storefront
func (s *BookService) Unpublish(ctx context.Context, id uuid.UUID) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	book.Unpublish()
	if err := s.bookRepo.Save(ctx, book); err != nil {
		return nil, err
	}
	resp := toBookResponse(book)
	return &resp, nil
}

// GetByID returns a single book for the admin view
func (s *BookService) GetByID(ctx context.Context, id uuid.UUID) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toBookResponse(book)
	return &resp, nil
}

// GetPublishedByID returns a single published book for the storefront
func (s *BookService) GetPublishedByID(ctx context.Context, id uuid.UUID) (*BookResponse, error) {
	book, err := s.bookRepo.FindPublishedByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toBookResponse(book)
	return &resp, nil
}

// List returns books for the admin (all) or the storefront (published only)
func (s *BookService) List(ctx context.Context, filter BookListFilter, publishedOnly bool) (*shared.Paginated[BookResponse], error) {
	f := shared.DefaultFilter()
	f.Search = filter.Search
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}

	var (
		books []catalog.Book
		total int64
		err   error
	)
	if publishedOnly {
		books, total, err = s.bookRepo.FindPublished(ctx, f)
	} else {
		books, total, err = s.bookRepo.FindAll(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	items := make([]BookResponse, 0, len(books))
	for i := range books {
		items = append(items, toBookResponse(&books[i]))
	}
	result := shared.NewPaginated(items, total, f.Page, f.Limit())
	return &result, nil
}

// Delete removes an unpublished book and its stored objects
func (s *BookService) Delete(ctx context.Context, id uuid.UUID) error {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if book.IsPublished {
		return shared.NewDomainError("INVALID_STATE", "Cannot delete a published book")
	}

	if book.FileKey != "" {
		if err := s.storage.DeleteObject(ctx, book.FileKey); err != nil {
			s.logger.Warn("Failed to delete book file",
				zap.String("book_id", book.ID.String()),
				zap.String("file_key", book.FileKey),
				zap.Error(err))
		}
	}

	return s.bookRepo.Delete(ctx, id)
}
