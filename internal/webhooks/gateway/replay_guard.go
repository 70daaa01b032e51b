package gatewaywebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/redis"
)

const replayScope = "gateway:notification"

// ReplayGuard short-circuits exact duplicate notifications. Keys look like
// `rentmarket:idempotency:gateway:notification:<order>|<status>|<code>`.
type ReplayGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewReplayGuard(store redis.IdempotencyStore, ttl time.Duration) (*ReplayGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &ReplayGuard{store: store, ttl: ttl}, nil
}

// ReplayKey identifies a notification by order, status and status code.
func ReplayKey(n gateway.Notification) string {
	return strings.Join([]string{n.OrderID, n.TransactionStatus, n.StatusCode}, "|")
}

// CheckAndMark reports whether the notification was already seen and marks it
// otherwise.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, n gateway.Notification) (bool, error) {
	if n.OrderID == "" {
		return false, errors.New("order id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(replayScope, ReplayKey(n)), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set replay key: %w", err)
	}
	return !set, nil
}

// Release forgets a notification so a redelivery is processed again.
func (g *ReplayGuard) Release(ctx context.Context, n gateway.Notification) error {
	if n.OrderID == "" {
		return errors.New("order id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(replayScope, ReplayKey(n)))
}
