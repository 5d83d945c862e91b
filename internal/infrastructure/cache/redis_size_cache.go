package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for Redis cache configuration
const (
	defaultScanBatchSize = 100
	sizeKeyPrefix        = "ref_size:"
)

// RedisSizeCache implements SizeCache using Redis. It is the shared
// tier: every instance sees the same entries.
type RedisSizeCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	config     SizeCacheConfig
	logger     *zap.Logger
}

// RedisSizeCacheOption is a functional option for configuring the cache
type RedisSizeCacheOption func(*RedisSizeCache)

// WithRedisConfig sets the cache configuration
func WithRedisConfig(config SizeCacheConfig) RedisSizeCacheOption {
	return func(c *RedisSizeCache) {
		c.config = config
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisSizeCacheOption {
	return func(c *RedisSizeCache) {
		c.logger = logger
	}
}

// NewRedisSizeCache creates a new Redis-based size cache
func NewRedisSizeCache(cfg RedisConfig, opts ...RedisSizeCacheOption) (*RedisSizeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisSizeCache{
		client:     client,
		ownsClient: true,
		config:     DefaultSizeCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisSizeCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisSizeCacheWithClient(client *redis.Client, opts ...RedisSizeCacheOption) *RedisSizeCache {
	cache := &RedisSizeCache{
		client:     client,
		ownsClient: false,
		config:     DefaultSizeCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// cacheKey generates the Redis key for a brand and device name
func (c *RedisSizeCache) cacheKey(brand, deviceName string) string {
	return sizeKeyPrefix + sizeKey(brand, deviceName)
}

// Get retrieves a cached size category
func (c *RedisSizeCache) Get(ctx context.Context, brand, deviceName string) (string, error) {
	size, err := c.client.Get(ctx, c.cacheKey(brand, deviceName)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		c.logger.Error("Failed to get size from cache",
			zap.String("brand", brand),
			zap.String("device", deviceName),
			zap.Error(err))
		return "", fmt.Errorf("failed to get size from cache: %w", err)
	}

	return size, nil
}

// Set stores a size category
func (c *RedisSizeCache) Set(ctx context.Context, brand, deviceName, size string, ttl time.Duration) error {
	if size == "" {
		return nil
	}

	if ttl == 0 {
		ttl = c.config.TTL
	}

	if err := c.client.Set(ctx, c.cacheKey(brand, deviceName), size, ttl).Err(); err != nil {
		c.logger.Error("Failed to set size in cache",
			zap.String("brand", brand),
			zap.String("device", deviceName),
			zap.Error(err))
		return fmt.Errorf("failed to set size in cache: %w", err)
	}

	return nil
}

// Delete removes a cached size category
func (c *RedisSizeCache) Delete(ctx context.Context, brand, deviceName string) error {
	if err := c.client.Del(ctx, c.cacheKey(brand, deviceName)).Err(); err != nil {
		c.logger.Error("Failed to delete size from cache",
			zap.String("brand", brand),
			zap.String("device", deviceName),
			zap.Error(err))
		return fmt.Errorf("failed to delete size from cache: %w", err)
	}
	return nil
}

// InvalidateAll removes all cached sizes. SCAN keeps Redis responsive
// while the keyspace is walked.
func (c *RedisSizeCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, sizeKeyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Error("Failed to scan size cache keys", zap.Error(err))
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Error("Failed to delete size cache keys", zap.Error(err))
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Invalidated all cached sizes",
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases any resources held by the cache
func (c *RedisSizeCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisSizeCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisSizeCache implements SizeCache
var _ SizeCache = (*RedisSizeCache)(nil)
