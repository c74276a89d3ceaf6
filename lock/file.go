package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by FileLocker on platforms without flock(2).
var ErrUnsupported = errors.New("lock: file locks are not supported on this platform")

// FileLocksSupported reports whether FileLocker can take locks on this
// platform.
func FileLocksSupported() bool { return fileLocksSupported }

// FileLocker takes advisory flock(2) locks on <dir>/<key>.lock. It
// serializes processes that share a LocalStore directory. Lock files are
// left in place.
type FileLocker struct {
	dir     string
	backoff Backoff
}

// NewFileLocker creates a FileLocker for dir, creating it if needed.
func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileLocker{dir: dir, backoff: DefaultBackoff}, nil
}

// Lock polls for the exclusive lock until it is held or ctx is done.
func (l *FileLocker) Lock(ctx context.Context, key string) (Unlocker, error) {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, fmt.Errorf("lock: invalid key %q", key)
	}
	path := filepath.Join(l.dir, key+".lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	err = Poll(ctx, l.backoff, func(context.Context) (bool, error) {
		return tryFlock(f)
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return UnlockFunc(func(context.Context) error {
		err := unflock(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}), nil
}
