//go:build unix

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup/blobstore"
	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/index"
	"github.com/hupe1980/imgdedup/lock"
)

func TestUpdate_SharedDirectoryAcrossStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	locks, err := lock.NewFileLocker(dir)
	require.NoError(t, err)

	// Two Store values stand in for two processes sharing one directory.
	newStore := func() *Store {
		blobs, err := blobstore.NewLocalStore(dir)
		require.NoError(t, err)
		return New(blobs, WithLocker(locks))
	}
	a, b := newStore(), newStore()

	var wg sync.WaitGroup
	for _, s := range []*Store{a, b} {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			for range 10 {
				err := s.Update(ctx, "shared", 8, func(idx *index.Flat) error {
					_, err := idx.Insert(fingerprint.MustCode(8, []byte{0x5A}), "")
					return err
				})
				assert.NoError(t, err)
			}
		}(s)
	}
	wg.Wait()

	idx, err := a.Load(ctx, "shared", 8)
	require.NoError(t, err)
	assert.Equal(t, 20, idx.Len())
}
