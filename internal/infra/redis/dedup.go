package redis

import (
	"context"
	"fmt"
	"time"

	"growth-subscription-service/internal/domain/ports/repository"
)

var _ repository.IdempotencyGuard = (*DedupGuard)(nil)

// DedupGuard remembers applied webhook deliveries via SETNX so re-deliveries
// of the same transactionId+eventType become no-ops.
type DedupGuard struct {
	client RedisClient
	ttl    time.Duration
}

func NewDedupGuard(client RedisClient, ttl time.Duration) *DedupGuard {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &DedupGuard{client: client, ttl: ttl}
}

func (g *DedupGuard) dedupKey(key string) string {
	return fmt.Sprintf("webhook_applied:%s", key)
}

// FirstApplication reports true exactly once per key within the TTL window.
func (g *DedupGuard) FirstApplication(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.dedupKey(key), 1, g.ttl)
}

// Release drops a claimed key so the next delivery counts as first again.
func (g *DedupGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.dedupKey(key))
}
