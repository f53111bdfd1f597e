package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "MAASIM-AAA111BBB222", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "MAASIM-AAA111BBB222", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired keys can be re-marked", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "MAASIM-CCC333DDD444", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "MAASIM-CCC333DDD444", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("unknown key", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "MAASIM-UNKNOWN00000")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("recorded key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "MAASIM-EEE555FFF666", time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "MAASIM-EEE555FFF666")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "MAASIM-GGG777HHH888", 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "MAASIM-GGG777HHH888")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "short-1", 10*time.Millisecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "short-2", 10*time.Millisecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	processed, err := store.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMarks(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "MAASIM-RACE000000000", time.Hour)
			results <- err == nil && isNew
		}()
	}

	winners := 0
	for i := 0; i < workers; i++ {
		if <-results {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller should record the key")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestInMemoryIdempotencyStore_DistinctKeys(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		isNew, err := store.MarkProcessed(ctx, fmt.Sprintf("MAASIM-REF%09d", i), time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	}
	assert.Equal(t, 5, store.Size())
}
