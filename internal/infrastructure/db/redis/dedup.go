package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = time.Hour

// DedupChecker provides publish idempotency backed by Redis.
// Key format: publish:<idempotency_key>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
// Keys expire after ttl (one hour when ttl <= 0).
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// IsDuplicate reports whether a publish with this key was already accepted.
func (d *DedupChecker) IsDuplicate(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that the publish was accepted.
func (d *DedupChecker) Mark(ctx context.Context, key string) error {
	return d.client.Set(ctx, dedupKey(key), "1", d.ttl).Err()
}

func dedupKey(key string) string {
	return "publish:" + key
}
