package store

import (
	"context"
	"errors"

	"github.com/hupe1980/imgdedup/blobstore"
)

var (
	// ErrInvalidName is returned for empty collection names or names that
	// contain path separators.
	ErrInvalidName = errors.New("store: invalid collection name")

	// ErrInvalidBitWidth is returned for non-positive bit widths.
	ErrInvalidBitWidth = errors.New("store: invalid bit width")

	// ErrCorrupt is returned when a persisted collection exists but cannot be
	// decoded, fails its checksum, or disagrees with the requested bit width.
	ErrCorrupt = errors.New("store: corrupt collection")

	// ErrUnavailable is returned when the backend cannot be read or written.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// isTransient reports whether a backend error is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if blobstore.IsNotFound(err) {
		return false
	}
	var ine *blobstore.InvalidNameError
	if errors.As(err, &ine) {
		return false
	}
	return true // network and I/O errors
}
