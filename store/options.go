package store

import (
	"log/slog"

	"github.com/hupe1980/imgdedup/lock"
	"github.com/hupe1980/imgdedup/persistence"
)

type options struct {
	locker      lock.Locker
	retry       RetryConfig
	compression persistence.CompressionType
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithLocker adds a cross-process locker (file, Redis or DynamoDB). It is
// acquired after the in-process lock.
func WithLocker(l lock.Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

// WithRetry sets the retry policy for transient backend errors.
func WithRetry(cfg RetryConfig) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithCompression selects snapshot payload compression.
func WithCompression(ct persistence.CompressionType) Option {
	return func(o *options) {
		o.compression = ct
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
