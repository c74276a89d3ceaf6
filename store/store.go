package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/imgdedup/blobstore"
	"github.com/hupe1980/imgdedup/index"
	"github.com/hupe1980/imgdedup/lock"
	"github.com/hupe1980/imgdedup/persistence"
)

// Store loads and saves collections.
type Store struct {
	blobs  blobstore.BlobStore
	local  *lock.KeyedMutex
	locker lock.Locker
	retry  RetryConfig
	encode persistence.Options
	logger *slog.Logger
}

// New creates a Store over blobs.
func New(blobs blobstore.BlobStore, optFns ...Option) *Store {
	opts := options{
		retry:  DefaultRetryConfig(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		blobs:  blobs,
		local:  lock.NewKeyedMutex(),
		retry:  opts.retry,
		encode: persistence.Options{Compression: opts.compression},
		logger: opts.logger,
	}
	s.locker = s.local
	if opts.locker != nil {
		s.locker = lock.Chain(s.local, opts.locker)
	}
	return s
}

// Load returns the collection for (name, bitWidth), or an empty one if it
// was never saved.
func (s *Store) Load(ctx context.Context, name string, bitWidth int) (*index.Flat, error) {
	key, err := NewKey(name, bitWidth)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, key)
}

// Save writes idx as the collection for (name, bitWidth), replacing any
// previous snapshot atomically.
func (s *Store) Save(ctx context.Context, name string, bitWidth int, idx *index.Flat) (err error) {
	key, err := NewKey(name, bitWidth)
	if err != nil {
		return err
	}
	if idx.BitWidth() != bitWidth {
		return &index.ErrDimensionMismatch{Expected: bitWidth, Actual: idx.BitWidth()}
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, unlock()) }()

	return s.save(ctx, key, idx)
}

// Update runs fn on the current collection and saves the result while
// holding the key's lock. If fn returns an error nothing is saved.
//
// A lease-based lock that expires before the save completes no longer
// guarantees exclusion; Update then reports ErrUnavailable wrapping
// lock.ErrNotHeld even though the snapshot was written, and another
// writer may have overwritten it.
func (s *Store) Update(ctx context.Context, name string, bitWidth int, fn func(idx *index.Flat) error) (err error) {
	key, err := NewKey(name, bitWidth)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, unlock()) }()

	idx, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if err := fn(idx); err != nil {
		return err
	}
	return s.save(ctx, key, idx)
}

// Stats describes a persisted collection.
type Stats struct {
	Key
	Exists      bool
	Count       uint64
	SizeBytes   int
	Compression persistence.CompressionType
}

// Stats reads the snapshot header of a collection.
func (s *Store) Stats(ctx context.Context, name string, bitWidth int) (Stats, error) {
	key, err := NewKey(name, bitWidth)
	if err != nil {
		return Stats{}, err
	}
	data, found, err := s.get(ctx, key)
	if err != nil || !found {
		return Stats{Key: key}, err
	}
	h, err := persistence.ReadHeader(data)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	if int(h.BitWidth) != key.BitWidth {
		return Stats{}, fmt.Errorf("%w: %s: snapshot holds %d-bit codes", ErrCorrupt, key, h.BitWidth)
	}
	return Stats{
		Key:         key,
		Exists:      true,
		Count:       h.Count,
		SizeBytes:   len(data),
		Compression: h.Compression,
	}, nil
}

// List returns the keys of all persisted collections.
func (s *Store) List(ctx context.Context) ([]Key, error) {
	var names []string
	err := s.retry.retry(ctx, "list", func() error {
		var err error
		names, err = s.blobs.List(ctx, "")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	keys := make([]Key, 0, len(names))
	for _, n := range names {
		if k, ok := ParseBlobName(n); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// lock acquires the key's lock. The returned release reports a lost lease;
// other release failures are only logged.
func (s *Store) lock(ctx context.Context, key Key) (func() error, error) {
	u, err := s.locker.Lock(ctx, key.BlobName())
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %w", ErrUnavailable, key, err)
	}
	return func() error {
		err := u.Unlock(context.WithoutCancel(ctx))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, lock.ErrNotHeld):
			s.logger.Error("collection lock expired while held", "collection", key.String(), "error", err)
			return fmt.Errorf("%w: lock %s: %w", ErrUnavailable, key, err)
		default:
			s.logger.Warn("failed to release collection lock", "collection", key.String(), "error", err)
			return nil
		}
	}, nil
}

func (s *Store) get(ctx context.Context, key Key) ([]byte, bool, error) {
	var data []byte
	err := s.retry.retry(ctx, "get "+key.String(), func() error {
		var err error
		data, err = s.blobs.Get(ctx, key.BlobName())
		return err
	})
	switch {
	case err == nil:
		return data, true, nil
	case blobstore.IsNotFound(err):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (s *Store) load(ctx context.Context, key Key) (*index.Flat, error) {
	data, found, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Debug("collection not found, starting empty", "collection", key.String())
		return index.NewFlat(key.BitWidth)
	}

	idx, err := persistence.Unmarshal(data)
	if err != nil {
		s.logger.Error("collection snapshot is corrupt", "collection", key.String(), "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	if idx.BitWidth() != key.BitWidth {
		return nil, fmt.Errorf("%w: %s: snapshot holds %d-bit codes", ErrCorrupt, key, idx.BitWidth())
	}
	s.logger.Debug("collection loaded", "collection", key.String(), "count", idx.Len(), "bytes", len(data))
	return idx, nil
}

func (s *Store) save(ctx context.Context, key Key, idx *index.Flat) error {
	data, err := persistence.Marshal(idx, s.encode)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	err = s.retry.retry(ctx, "put "+key.String(), func() error {
		return s.blobs.Put(ctx, key.BlobName(), data)
	})
	if err != nil {
		var ine *blobstore.InvalidNameError
		if errors.As(err, &ine) {
			return fmt.Errorf("%w: %w", ErrInvalidName, err)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.logger.Info("collection saved", "collection", key.String(), "count", idx.Len(), "bytes", len(data))
	return nil
}
