// Package locks provides the best-effort per-contract lock taken by the
// expiration sweep.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrHeld reports that another sweeper owns the lock.
var ErrHeld = errors.New("lock held elsewhere")

// Release frees a lock obtained with TryLock.
type Release func(ctx context.Context) error

// Locker hands out short-lived exclusive locks keyed by name. TryLock never
// blocks: it returns ErrHeld when the key is taken and any other error when
// the backend is unavailable.
type Locker interface {
	TryLock(ctx context.Context, key string) (Release, error)
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

var releaseLock = func(ctx context.Context, l *redislock.Lock) error {
	return l.Release(ctx)
}

// RedisLocker implements Locker with bsm/redislock.
type RedisLocker struct {
	client obtainer
	prefix string
	ttl    time.Duration
}

// NewRedisLocker wraps rdb. Keys are stored as prefix + key and expire after
// ttl even if the holder dies.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), prefix: prefix, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (Release, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrHeld
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		return releaseLock(ctx, lock)
	}, nil
}

// Noop grants every lock. It is used when no Redis is configured.
type Noop struct{}

func (Noop) TryLock(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
