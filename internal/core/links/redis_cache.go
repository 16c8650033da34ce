package links

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

const (
	redisKeyPrefix   = "affiliate:shorturl:"
	redisPingTimeout = 5 * time.Second
)

// RedisCache shares resolved short URLs between bot instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, shortURL string) (string, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+shortURL).Result()
	if errors.Is(err, redis.Nil) {
		return "", errors.ErrCacheNotFound
	}

	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, shortURL, resolved string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, redisKeyPrefix+shortURL, resolved, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
