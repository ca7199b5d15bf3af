package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"clearquest/internal/model"
)

const discretionConfigKey = "config:discretion"

// ConfigCache caches the discretion policy so interview turns do not hit
// Mongo for configuration on every probe. Admin saves invalidate it.
type ConfigCache interface {
	Set(ctx context.Context, cfg *model.DiscretionConfig) error
	Get(ctx context.Context) (*model.DiscretionConfig, error)
	Invalidate(ctx context.Context) error
}

type configCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConfigCache creates a new discretion config cache
func NewConfigCache(client *redis.Client) ConfigCache {
	return &configCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (c *configCache) Set(ctx context.Context, cfg *model.DiscretionConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, discretionConfigKey, data, c.ttl).Err()
}

func (c *configCache) Get(ctx context.Context) (*model.DiscretionConfig, error) {
	data, err := c.client.Get(ctx, discretionConfigKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg model.DiscretionConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *configCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, discretionConfigKey).Err()
}
