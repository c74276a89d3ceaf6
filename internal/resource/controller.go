package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var (
	// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// ErrRateLimited is returned when the request rate is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Config holds resource limits. Zero values disable the limit.
type Config struct {
	// MemoryLimitBytes is the hard limit for upload bytes held at once.
	MemoryLimitBytes int64

	// MaxInFlight is the maximum number of concurrently admitted requests.
	MaxInFlight int64

	// RequestsPerSecond is the sustained admission rate.
	RequestsPerSecond float64

	// Burst is the token bucket size. If 0, defaults to
	// max(1, RequestsPerSecond).
	Burst int
}

// Controller manages process-wide admission.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	inflight *semaphore.Weighted // nil if unlimited
	active   atomic.Int64

	// Rate
	limiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.MaxInFlight > 0 {
		c.inflight = semaphore.NewWeighted(cfg.MaxInFlight)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// Admit reserves a rate token, a concurrency slot and bytes of memory.
// It fails fast on rate and memory and waits for a slot until ctx ends.
// The returned func releases the reservation and must be called once.
func (c *Controller) Admit(ctx context.Context, bytes int64) (func(), error) {
	if c == nil {
		return func() {}, nil
	}
	if c.limiter != nil && !c.limiter.AllowN(time.Now(), 1) {
		return nil, ErrRateLimited
	}
	if err := c.AcquireMemory(bytes); err != nil {
		return nil, err
	}
	if c.inflight != nil {
		if err := c.inflight.Acquire(ctx, 1); err != nil {
			c.ReleaseMemory(bytes)
			return nil, err
		}
	}
	c.active.Add(1)

	var once atomic.Bool
	return func() {
		if !once.CompareAndSwap(false, true) {
			return
		}
		c.active.Add(-1)
		if c.inflight != nil {
			c.inflight.Release(1)
		}
		c.ReleaseMemory(bytes)
	}, nil
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// InFlight returns the number of admitted, unreleased requests.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.active.Load()
}
