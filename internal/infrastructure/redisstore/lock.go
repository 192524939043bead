package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when the lock stays held by another owner
// for the whole acquisition window.
var ErrLockNotAcquired = errors.New("resource lock not acquired")

type LockConfig struct {
	TTL        time.Duration
	RetryDelay time.Duration
	MaxRetries int
}

// ResourceLock is a SET NX lock with an owner token per acquisition, so a
// release can never drop a lock a later acquirer holds.
type ResourceLock struct {
	client *redis.Client
	cfg    LockConfig
	logger *slog.Logger

	mu     sync.Mutex
	owners map[string]string
}

func NewResourceLock(client *redis.Client, cfg LockConfig, logger *slog.Logger) *ResourceLock {
	return &ResourceLock{
		client: client,
		cfg:    cfg,
		logger: logger,
		owners: make(map[string]string),
	}
}

func (l *ResourceLock) Acquire(ctx context.Context, key string) error {
	owner := uuid.New().String()

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, owner, l.cfg.TTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %q: %w", key, err)
		}
		if ok {
			l.mu.Lock()
			l.owners[key] = owner
			l.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.RetryDelay):
		}
	}

	return ErrLockNotAcquired
}

// releaseScript deletes the key only when it still holds our owner token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *ResourceLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	owner, ok := l.owners[key]
	delete(l.owners, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, owner).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %q: %w", key, err)
	}
	if deleted == 0 {
		l.logger.Warn("lock expired before release", "key", key)
	}

	return nil
}
