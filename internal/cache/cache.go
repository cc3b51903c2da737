package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/finsight/finsight/pkg/models"
)

// Cache is the caching interface. Implementations must be safe for concurrent
// use. Cached job views are a best-effort projection; the job store stays the
// source of truth, so callers only cache records that can no longer change.
type Cache interface {
	Ping(ctx context.Context) error
	SetJobView(ctx context.Context, jobID uuid.UUID, view *models.JobView, ttl time.Duration) error
	GetJobView(ctx context.Context, jobID uuid.UUID) (*models.JobView, bool, error)
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

func (c *RedisCache) SetJobView(ctx context.Context, jobID uuid.UUID, view *models.JobView, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, JobViewKey(jobID), data, ttl).Err()
}

func (c *RedisCache) GetJobView(ctx context.Context, jobID uuid.UUID) (*models.JobView, bool, error) {
	data, err := c.client.Get(ctx, JobViewKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var view models.JobView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, false, err
	}
	return &view, true, nil
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
