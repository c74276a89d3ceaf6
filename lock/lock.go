package lock

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrNotHeld is returned by Unlock when the lease was lost before release,
// for example because it expired.
var ErrNotHeld = errors.New("lock: lease no longer held")

// Unlocker releases a held lock.
type Unlocker interface {
	Unlock(ctx context.Context) error
}

// UnlockFunc adapts a function to Unlocker.
type UnlockFunc func(ctx context.Context) error

// Unlock calls f.
func (f UnlockFunc) Unlock(ctx context.Context) error { return f(ctx) }

// Locker acquires exclusive access to a key. Lock blocks until the lock is
// held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlocker, error)
}

// Backoff controls polling for contended locks.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff polls from 10ms up to 500ms.
var DefaultBackoff = Backoff{Initial: 10 * time.Millisecond, Max: 500 * time.Millisecond}

// Poll calls try until it reports success, fails, or ctx is done. Waits
// between attempts grow exponentially with jitter.
func Poll(ctx context.Context, b Backoff, try func(ctx context.Context) (bool, error)) error {
	if b.Initial <= 0 {
		b = DefaultBackoff
	}
	wait := b.Initial
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		sleep := wait/2 + rand.N(wait/2+1)
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait = min(wait*2, b.Max)
	}
}

// Chain acquires every locker in order and releases them in reverse.
func Chain(lockers ...Locker) Locker {
	return chain(lockers)
}

type chain []Locker

func (c chain) Lock(ctx context.Context, key string) (Unlocker, error) {
	held := make([]Unlocker, 0, len(c))
	release := func(ctx context.Context) error {
		var errs []error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for _, l := range c {
		u, err := l.Lock(ctx, key)
		if err != nil {
			_ = release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, u)
	}
	return UnlockFunc(release), nil
}
