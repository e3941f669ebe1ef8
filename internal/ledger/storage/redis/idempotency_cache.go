package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Replay cache keys are scoped to the ledger service so a shared Redis can
// also serve other OrchexPay services without collisions.
const idempotencyPrefix = "orchexpay:ledger:idem:"

// defaultReplayWindow bounds cached responses when a caller passes no TTL.
const defaultReplayWindow = 24 * time.Hour

// IdempotencyCache implements ports.IdempotencyCache on Redis. It stores the
// serialized HTTP response for a processed idempotency key so a replay can
// return the original response without re-executing the movement.
type IdempotencyCache struct {
	client *goredis.Client
}

// NewIdempotencyCache creates a Redis-backed replay cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the cached response for key, or nil, nil when the key has not
// been seen inside the replay window.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency cache get: %w", err)
	}
	return val, nil
}

// Set stores a response under key for ttl. A non-positive ttl falls back to
// the default replay window so entries never persist unbounded.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultReplayWindow
	}
	if err := c.client.Set(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency cache set: %w", err)
	}
	return nil
}
