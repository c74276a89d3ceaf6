package imgdedup

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/imgdedup/fingerprint"
)

const (
	// DefaultCollection is the collection used when an upload names none.
	DefaultCollection = "faiss_index"

	// DefaultHashSize is the perceptual hash size used when an upload
	// names none. It yields 256-bit codes.
	DefaultHashSize = fingerprint.DefaultHashSize
)

type options struct {
	hashSize         int
	collection       string
	maxParallel      int
	maxPixels        int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Service.
type Option func(*options)

// WithDefaultHashSize sets the hash size for uploads that leave it zero.
func WithDefaultHashSize(n int) Option {
	return func(o *options) {
		o.hashSize = n
	}
}

// WithDefaultCollection sets the collection for uploads that leave it empty.
func WithDefaultCollection(name string) Option {
	return func(o *options) {
		o.collection = name
	}
}

// WithMaxParallel bounds how many images of one upload are hashed
// concurrently. Values < 1 mean one at a time.
func WithMaxParallel(n int) Option {
	return func(o *options) {
		o.maxParallel = n
	}
}

// WithMaxPixels rejects images larger than n pixels before decoding them.
func WithMaxPixels(n int) Option {
	return func(o *options) {
		o.maxPixels = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &imgdedup.BasicMetricsCollector{}
//	svc := imgdedup.New(st, imgdedup.WithMetricsCollector(metrics))
//	// ... use svc ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		hashSize:         DefaultHashSize,
		collection:       DefaultCollection,
		maxParallel:      runtime.GOMAXPROCS(0),
		maxPixels:        fingerprint.DefaultMaxPixels,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.maxParallel < 1 {
		o.maxParallel = 1
	}
	return o
}
