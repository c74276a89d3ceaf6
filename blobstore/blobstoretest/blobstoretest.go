// Package blobstoretest provides a behavioural test suite shared by all
// blobstore.BlobStore implementations.
package blobstoretest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup/blobstore"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, store blobstore.BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.True(t, blobstore.IsNotFound(err), "got %v", err)

		ok, err := store.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "col_256", []byte("first")))
		got, err := store.Get(ctx, "col_256")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)

		ok, err := store.Exists(ctx, "col_256")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "col_256", []byte("second, longer")))
		got, err := store.Get(ctx, "col_256")
		require.NoError(t, err)
		assert.Equal(t, []byte("second, longer"), got)

		require.NoError(t, store.Put(ctx, "col_256", []byte("3")))
		got, err = store.Get(ctx, "col_256")
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), got)
	})

	t.Run("EmptyBlob", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "empty_8", nil))
		got, err := store.Get(ctx, "empty_8")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "col_144", []byte("x")))
		require.NoError(t, store.Put(ctx, "other_256", []byte("y")))

		names, err := store.List(ctx, "col_")
		require.NoError(t, err)
		assert.Equal(t, []string{"col_144", "col_256"}, names)

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"col_144", "col_256", "empty_8", "other_256"}, all)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "other_256"))
		require.NoError(t, store.Delete(ctx, "other_256"))
		_, err := store.Get(ctx, "other_256")
		assert.True(t, blobstore.IsNotFound(err))
	})

	t.Run("ConcurrentPutsNeverTear", func(t *testing.T) {
		payloads := make([][]byte, 4)
		for i := range payloads {
			payloads[i] = []byte(fmt.Sprintf("%d-%s", i, string(make([]byte, 4096))))
		}
		var wg sync.WaitGroup
		for i := range payloads {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for range 10 {
					assert.NoError(t, store.Put(ctx, "race_1", payloads[i]))
					got, err := store.Get(ctx, "race_1")
					if assert.NoError(t, err) {
						assert.Contains(t, payloads, got)
					}
				}
			}(i)
		}
		wg.Wait()
		require.NoError(t, store.Delete(ctx, "race_1"))
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, store.Put(cctx, "never_1", []byte("x")), context.Canceled)
	})
}
