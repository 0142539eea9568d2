// Package cache provides the response cache used by the aggregation client.
// Entries are opaque serialized responses keyed by (operation, parameters)
// and bounded by a freshness window; a refresh replaces an entry wholesale,
// entries are never mutated in place.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized responses with a TTL. Get returns false for a
// missing or expired entry; backends never return partially written values.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
