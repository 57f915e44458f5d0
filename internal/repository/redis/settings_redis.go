package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository"
)

const keyPrefix = "settings:"

type SettingsCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewSettingsCache(client *redis.Client, logger *slog.Logger) *SettingsCache {
	return &SettingsCache{
		client: client,
		logger: logger,
	}
}

// keyFor returns the Redis key for a settings entry.
func (c *SettingsCache) keyFor(key string) string {
	return fmt.Sprintf("%s%s", keyPrefix, key)
}

// Get returns the stored value or repository.ErrNotFound.
func (c *SettingsCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, c.keyFor(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to read setting from redis", "key", key, "error", err)
		return "", err
	}
	return value, nil
}

// Set stores the value without expiration.
func (c *SettingsCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.keyFor(key), value, 0).Err(); err != nil {
		c.logger.Error("failed to write setting to redis", "key", key, "error", err)
		return err
	}
	return nil
}
