package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/instance"
)

// defaultLockTTL outlives one sweep, so a crashed worker frees the lock by
// the next tick.
const defaultLockTTL = 10 * time.Minute

// ErrLeaseLost means the lease expired while the cycle was still running and
// another worker may have taken it.
var ErrLeaseLost = errors.New("cron lock: lease lost before release")

// Lock keeps a single replica running the job registry per tick.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLock is a single-key lease whose value names the holding instance plus
// a per-acquire nonce, so only the acquiring call can release it.
type RedisLock struct {
	store  lockStore
	key    string
	ttl    time.Duration
	holder string
	lease  string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil || key == "" {
		return nil, errors.New("cron lock: store and key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, holder: instance.GetID()}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lease := l.holder + "/" + uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, lease, l.ttl)
	switch {
	case err != nil:
		return false, fmt.Errorf("cron lock %s: acquire: %w", l.key, err)
	case won:
		l.lease = lease
	}
	return won, nil
}

// Release drops a held lease. Without one it does nothing.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.lease == "" {
		return nil
	}
	lease := l.lease
	l.lease = ""
	deleted, err := l.store.ReleaseIfOwner(ctx, l.key, lease)
	if err != nil {
		return fmt.Errorf("cron lock %s: release: %w", l.key, err)
	}
	if !deleted {
		return ErrLeaseLost
	}
	return nil
}

// Held reports whether this instance believes it holds the lease.
func (l *RedisLock) Held() bool { return l.lease != "" }
