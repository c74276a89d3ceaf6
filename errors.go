package imgdedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/imgdedup/extract"
	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/index"
	"github.com/hupe1980/imgdedup/store"
)

var (
	// ErrDecode is returned when an upload cannot be decoded as an image or
	// read as an asset.
	ErrDecode = errors.New("decode error")

	// ErrConfig is returned for invalid hash sizes, bit widths, thresholds
	// or collection names.
	ErrConfig = errors.New("config error")

	// ErrDimensionMismatch is matched by every *DimensionError.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStoreCorrupt is returned when a persisted collection exists but
	// cannot be read back. It is never replaced by an empty collection.
	ErrStoreCorrupt = errors.New("store corrupt")

	// ErrStoreUnavailable is returned when the storage backend cannot be
	// reached after retries.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DimensionError indicates a fingerprint/collection bit-width mismatch.
//
// The original underlying error can be accessed via errors.Unwrap.
type DimensionError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d bits, got %d", e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return e.cause }

// Is makes DimensionError match ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool { return target == ErrDimensionMismatch }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Storage first: corrupt snapshots wrap decoder errors of their own.
	if errors.Is(err, store.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	}
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var dm *fingerprint.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &DimensionError{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	switch {
	case errors.Is(err, fingerprint.ErrDecode),
		errors.Is(err, extract.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrDecode, err)
	case errors.Is(err, fingerprint.ErrConfig),
		errors.Is(err, index.ErrInvalidBitWidth),
		errors.Is(err, index.ErrInvalidThreshold),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, store.ErrInvalidBitWidth):
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return err
}

// KindOf names the error kind of err for transports: "decode_error",
// "config_error", "dimension_mismatch", "store_corrupt",
// "store_unavailable", "canceled" or "internal".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrConfig):
		return "config_error"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrStoreCorrupt):
		return "store_corrupt"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
