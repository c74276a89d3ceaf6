package redis

import (
	"context"
	"errors"
	"slices"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hupe1980/imgdedup/blobstore"
)

// DefaultPrefix namespaces blob keys.
const DefaultPrefix = "imgdedup:"

const scanCount = 256

// Store implements blobstore.BlobStore on Redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// NewStore creates a Redis blob store. An empty prefix selects DefaultPrefix.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(name string) string { return s.prefix + name }

// Get returns the blob value.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, blobstore.ErrNotFound
	}
	return data, err
}

// Put stores data with SET.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	return s.client.Set(ctx, s.key(name), data, 0).Err()
}

// Exists reports whether the key exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}

// List scans keys under the prefix. SCAN may report a key more than once;
// duplicates are removed.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.prefix+prefix) + "*"

	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		name := strings.TrimPrefix(iter.Val(), s.prefix)
		if isLockKey(name) {
			continue
		}
		seen[name] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// isLockKey skips lease keys written by lock/redis under the same prefix.
func isLockKey(name string) bool {
	return strings.HasPrefix(name, "lock:")
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
