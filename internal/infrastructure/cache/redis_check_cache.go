package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/application/billing"
	"github.com/hrms/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const checkKeyPrefix = "credit:checked:"

// RedisCheckCache implements the credit check guard on Redis. Suitable for
// multi-instance deployments where every replica must see the same marks.
// Entries expire on their own, a mark only means "a deduction attempt ran
// within the last TTL".
type RedisCheckCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCheckCache connects to Redis and returns a check cache
func NewRedisCheckCache(cfg config.RedisConfig, ttl time.Duration) (*RedisCheckCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCheckCacheWithClient(client, ttl), nil
}

// NewRedisCheckCacheWithClient creates a check cache with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisCheckCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCheckCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCheckCache{
		client:    client,
		keyPrefix: checkKeyPrefix,
		ttl:       ttl,
	}
}

// MarkChecked records that the tenant was checked. SETNX makes the mark
// atomic across replicas: exactly one caller per TTL window gets true.
func (c *RedisCheckCache) MarkChecked(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	result, err := c.client.SetNX(ctx, c.key(tenantID), "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark tenant as checked: %w", err)
	}
	return result, nil
}

// IsChecked reports whether the tenant currently has an unexpired mark
func (c *RedisCheckCache) IsChecked(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	exists, err := c.client.Exists(ctx, c.key(tenantID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check tenant mark: %w", err)
	}
	return exists > 0, nil
}

// Clear removes the mark for one tenant
func (c *RedisCheckCache) Clear(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to clear tenant mark: %w", err)
	}
	return nil
}

// ClearAll removes every mark. SCAN is used instead of KEYS so a large
// keyspace never blocks Redis.
func (c *RedisCheckCache) ClearAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to clear tenant marks: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan tenant marks: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisCheckCache) Close() error {
	return c.client.Close()
}

func (c *RedisCheckCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

var _ billing.CheckCache = (*RedisCheckCache)(nil)
