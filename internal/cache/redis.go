package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"routectl.dev/internal/domain"
)

// RedisCache implements Cache over a go-redis client. Keys are the
// literal "route:<identifier>" strings from domain.RouteIdentifier.CacheKey,
// with no additional namespace prefix, per the external cache key format.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache parses url and verifies connectivity.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to cache: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an already-constructed client without
// checking connectivity.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetRoute(ctx context.Context, route domain.RouteIdentifier) (string, bool, error) {
	val, err := c.client.Get(ctx, route.CacheKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cache entry: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) SetRoute(ctx context.Context, route domain.RouteIdentifier, url string, ttl time.Duration) error {
	if err := c.client.Set(ctx, route.CacheKey(), url, ttl).Err(); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (c *RedisCache) SetNegative(ctx context.Context, route domain.RouteIdentifier, ttl time.Duration) error {
	if err := c.client.Set(ctx, route.CacheKey(), domain.NotFoundSentinel, ttl).Err(); err != nil {
		return fmt.Errorf("set negative cache entry: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, route domain.RouteIdentifier) error {
	if err := c.client.Del(ctx, route.CacheKey()).Err(); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
