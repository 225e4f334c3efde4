package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores responses as plain string keys without expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Locate(content string) (string, error) {
	return c.key(content), nil
}

func (c *RedisCache) Load(ctx context.Context, content string) (string, bool, error) {
	body, err := c.client.Get(ctx, c.key(content)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return body, true, nil
}

func (c *RedisCache) Store(ctx context.Context, content, body string) error {
	if err := c.client.Set(ctx, c.key(content), body, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *RedisCache) key(content string) string {
	return c.prefix + EntryName(Key(content))
}
