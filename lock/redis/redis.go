// Package redis implements lock.Locker with Redis leases.
//
// A lease is a key set with SET NX PX to a random owner token. Release
// deletes the key only if it still carries the owner's token, so a holder
// whose lease expired cannot release a successor's lock.
//
// Leases are not renewed and writes are not fenced. Exclusion holds only
// while a load-modify-save cycle finishes within the TTL; a holder that
// overruns it gets lock.ErrNotHeld from Unlock, which the store reports
// as a failed update. Set the TTL well above the slowest expected save.
package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hupe1980/imgdedup/lock"
)

// DefaultTTL bounds how long a crashed holder blocks a key.
const DefaultTTL = 30 * time.Second

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker acquires leases in Redis.
type Locker struct {
	client  goredis.UniversalClient
	prefix  string
	ttl     time.Duration
	backoff lock.Backoff
}

// Option configures a Locker.
type Option func(*Locker)

// WithTTL sets the lease duration.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		l.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Lease keys are <prefix>lock:<key>.
func WithPrefix(prefix string) Option {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// WithBackoff sets the polling schedule for contended keys.
func WithBackoff(b lock.Backoff) Option {
	return func(l *Locker) {
		l.backoff = b
	}
}

// New creates a Redis locker.
func New(client goredis.UniversalClient, optFns ...Option) *Locker {
	l := &Locker{
		client:  client,
		prefix:  "imgdedup:",
		ttl:     DefaultTTL,
		backoff: lock.DefaultBackoff,
	}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

func (l *Locker) key(key string) string { return l.prefix + "lock:" + key }

// Lock polls SET NX until the lease is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (lock.Unlocker, error) {
	k := l.key(key)
	token := uuid.NewString()

	err := lock.Poll(ctx, l.backoff, func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, k, token, l.ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	return lock.UnlockFunc(func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{k}, token).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return lock.ErrNotHeld
		}
		return nil
	}), nil
}
