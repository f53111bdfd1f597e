package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which external deliveries have already been
// fully processed, so repeated gateway callbacks can be answered without
// re-running fulfillment.
type IdempotencyStore interface {
	// MarkProcessed records a delivery key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a delivery key has been recorded and not expired
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases any resources held by the store
	Close() error
}
