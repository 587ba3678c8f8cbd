package content

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces every content cache key.
const RedisKeyPrefix = "learn:content:"

// RedisCache stores resolver results in Redis/Dragonfly with a TTL so that
// several server replicas share one cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("content cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, RedisKeyPrefix+key, value, c.ttl).Err(); err != nil {
		slog.Warn("content cache write failed", "key", key, "error", err)
	}
}
