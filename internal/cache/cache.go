// Package cache implements the Cache Adapter: get/set/delete with TTLs and a
// sentinel for negative entries, best-effort on write.
package cache

import (
	"context"
	"time"

	"routectl.dev/internal/domain"
)

// Cache is the interface the resolver and consumers depend on. RedisCache is
// the production implementation; MemoryCache is the in-memory implementation
// the resolver and consumer tests use.
type Cache interface {
	// GetRoute returns the cached value for route. found is false on a
	// cache miss (absent key); a hit with value == domain.NotFoundSentinel
	// is a negative cache entry and is returned as such, letting the caller
	// decide how to treat it.
	GetRoute(ctx context.Context, route domain.RouteIdentifier) (value string, found bool, err error)

	// SetRoute writes the positive cache entry with ttl.
	SetRoute(ctx context.Context, route domain.RouteIdentifier, url string, ttl time.Duration) error

	// SetNegative writes the negative sentinel with ttl.
	SetNegative(ctx context.Context, route domain.RouteIdentifier, ttl time.Duration) error

	// Invalidate deletes the cache entry for route, positive or negative.
	Invalidate(ctx context.Context, route domain.RouteIdentifier) error
}
