package engine

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/streamplus/internal/cache"
)

const (
	lockTTL       = 2 * time.Minute
	lockRetryWait = 200 * time.Millisecond
)

// redisLocker adapts the cache package's SETNX lock to the blocking
// Locker interface by polling. The TTL guards against a crashed holder
// leaving a channel locked forever.
type redisLocker struct {
	redis *cache.Redis
}

// NewRedisLocker returns a Locker backed by a distributed Redis lock,
// for deployments where multiple instances share one catalog.
func NewRedisLocker(r *cache.Redis) Locker {
	return &redisLocker{redis: r}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		unlock, err := cache.TryLock(ctx, l.redis, key, lockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, cache.ErrLocked) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
}
