package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	t.Run("marks a new submission", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		marked, err := store.MarkProcessed(context.Background(), "batch-1", time.Minute)
		assert.NoError(t, err)
		assert.True(t, marked)
	})

	t.Run("rejects a duplicate submission", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "batch-1", time.Minute)
		require.NoError(t, err)

		marked, err := store.MarkProcessed(context.Background(), "batch-1", time.Minute)
		assert.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("accepts again after the TTL elapses", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "batch-1", time.Nanosecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		marked, err := store.MarkProcessed(context.Background(), "batch-1", time.Minute)
		assert.NoError(t, err)
		assert.True(t, marked)
	})

	t.Run("only one concurrent caller wins", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		const goroutines = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				marked, err := store.MarkProcessed(context.Background(), "batch-contended", time.Minute)
				require.NoError(t, err)
				if marked {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	processed, err := store.IsProcessed(context.Background(), "batch-1")
	assert.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(context.Background(), "batch-1", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(context.Background(), "batch-1")
	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	for i := 0; i < 5; i++ {
		_, err := store.MarkProcessed(context.Background(), fmt.Sprintf("batch-%d", i), time.Nanosecond)
		require.NoError(t, err)
	}
	require.Equal(t, 5, store.Size())
	time.Sleep(5 * time.Millisecond)

	store.cleanup()

	assert.Equal(t, 0, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
