package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	SetWorkspace(ctx context.Context, ws *models.Workspace, ttl time.Duration) error
	GetWorkspace(ctx context.Context, tenantID string) (*models.Workspace, bool, error)
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// SetWorkspace caches a resolved workspace under its tenant id. The TTL must
// stay short: a cached entry can outlive a soft deletion until it expires.
func (c *RedisCache) SetWorkspace(ctx context.Context, ws *models.Workspace, ttl time.Duration) error {
	b, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, WorkspaceKey(ws.TenantID), b, ttl).Err()
}

func (c *RedisCache) GetWorkspace(ctx context.Context, tenantID string) (*models.Workspace, bool, error) {
	val, err := c.client.Get(ctx, WorkspaceKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ws models.Workspace
	if err := json.Unmarshal(val, &ws); err != nil {
		return nil, false, err
	}
	return &ws, true, nil
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
