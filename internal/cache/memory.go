package cache

import (
	"context"
	"sync"
	"time"

	"routectl.dev/internal/domain"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryCache is an in-memory Cache used by resolver/consumer unit tests so
// they don't need a live Redis. RedisCache has no tests in this repository.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[domain.RouteIdentifier]memoryEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[domain.RouteIdentifier]memoryEntry)}
}

func (m *MemoryCache) GetRoute(_ context.Context, route domain.RouteIdentifier) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[route]
	if !ok {
		return "", false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		delete(m.entries, route)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryCache) SetRoute(_ context.Context, route domain.RouteIdentifier, url string, ttl time.Duration) error {
	return m.set(route, url, ttl)
}

func (m *MemoryCache) SetNegative(_ context.Context, route domain.RouteIdentifier, ttl time.Duration) error {
	return m.set(route, domain.NotFoundSentinel, ttl)
}

func (m *MemoryCache) set(route domain.RouteIdentifier, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.entries[route] = memoryEntry{value: value, expires: expires}
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, route domain.RouteIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, route)
	return nil
}
