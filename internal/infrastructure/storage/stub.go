package storage

import (
	"context"
	"errors"
	"time"

	catalogapp "github.com/Ashtonex/maasim/internal/application/catalog"
	libraryapp "github.com/Ashtonex/maasim/internal/application/library"
)

// StubObjectStorage fakes the object store for local development, when no
// S3-compatible backend is configured. URLs it returns are not fetchable.
type StubObjectStorage struct {
	// BaseURL prefixes every generated URL
	BaseURL string
}

// NewStubObjectStorage creates a StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{
		BaseURL: "https://storage.invalid",
	}
}

// GenerateUploadURL returns a fake upload URL
func (s *StubObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/upload/" + storageKey, expiresAt, nil
}

// GenerateDownloadURL returns a fake download URL
func (s *StubObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/download/" + storageKey, expiresAt, nil
}

// DeleteObject succeeds without doing anything
func (s *StubObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	return nil
}

// ObjectExists reports every key as uploaded so attach flows keep working
func (s *StubObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	return true, nil
}

var (
	_ catalogapp.ObjectStorageService = (*StubObjectStorage)(nil)
	_ libraryapp.DownloadURLGenerator = (*StubObjectStorage)(nil)
)
