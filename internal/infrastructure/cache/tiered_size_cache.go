package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TieredSizeCache implements a two-tier caching strategy.
// L1: local in-memory cache, fast but private to the instance.
// L2: Redis, slower but shared across instances.
// Reads fall through L1 to L2; hits in L2 are promoted back into L1.
// A Pub/Sub invalidator keeps the L1 tiers of other instances honest
// after reference master changes.
type TieredSizeCache struct {
	l1Cache     *InMemorySizeCache
	l2Cache     *RedisSizeCache
	invalidator *RedisSizeCacheInvalidator
	config      SizeCacheConfig
	logger      *zap.Logger

	// Stats for monitoring
	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// TieredSizeCacheOption is a functional option for configuring the cache
type TieredSizeCacheOption func(*TieredSizeCache)

// WithTieredConfig sets the cache configuration
func WithTieredConfig(config SizeCacheConfig) TieredSizeCacheOption {
	return func(c *TieredSizeCache) {
		c.config = config
	}
}

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredSizeCacheOption {
	return func(c *TieredSizeCache) {
		c.logger = logger
	}
}

// NewTieredSizeCache creates a new tiered size cache. invalidator may
// be nil for single-instance deployments.
func NewTieredSizeCache(
	l1Cache *InMemorySizeCache,
	l2Cache *RedisSizeCache,
	invalidator *RedisSizeCacheInvalidator,
	opts ...TieredSizeCacheOption,
) *TieredSizeCache {
	cache := &TieredSizeCache{
		l1Cache:     l1Cache,
		l2Cache:     l2Cache,
		invalidator: invalidator,
		config:      DefaultSizeCacheConfig(),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// StartInvalidationSubscription starts listening for invalidation
// messages. It blocks, so call it in a goroutine after creating the
// cache.
func (c *TieredSizeCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}

	return c.invalidator.Subscribe(ctx, func(msg InvalidationMessage) {
		c.handleInvalidationMessage(msg)
	})
}

// handleInvalidationMessage drops L1 entries named by a Pub/Sub message
func (c *TieredSizeCache) handleInvalidationMessage(msg InvalidationMessage) {
	ctx := context.Background()

	switch msg.Action {
	case InvalidateEntry:
		if err := c.l1Cache.Delete(ctx, msg.Brand, msg.DeviceName); err != nil {
			c.logger.Error("Failed to invalidate L1 size entry",
				zap.String("brand", msg.Brand),
				zap.String("device", msg.DeviceName),
				zap.Error(err))
		}
	case InvalidateAll:
		if err := c.l1Cache.InvalidateAll(ctx); err != nil {
			c.logger.Error("Failed to invalidate L1 size cache", zap.Error(err))
		}
	default:
		c.logger.Warn("Unknown invalidation action", zap.String("action", msg.Action))
	}
}

// Get reads through L1 then L2, promoting L2 hits into L1
func (c *TieredSizeCache) Get(ctx context.Context, brand, deviceName string) (string, error) {
	size, err := c.l1Cache.Get(ctx, brand, deviceName)
	if err == nil && size != "" {
		atomic.AddInt64(&c.l1Hits, 1)
		return size, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	size, err = c.l2Cache.Get(ctx, brand, deviceName)
	if err != nil {
		return "", err
	}
	if size == "" {
		atomic.AddInt64(&c.l2Misses, 1)
		return "", nil
	}
	atomic.AddInt64(&c.l2Hits, 1)

	if err := c.l1Cache.Set(ctx, brand, deviceName, size, c.config.L1TTL); err != nil {
		c.logger.Warn("Failed to promote size into L1 cache",
			zap.String("brand", brand),
			zap.String("device", deviceName),
			zap.Error(err))
	}

	return size, nil
}

// Set writes to both tiers
func (c *TieredSizeCache) Set(ctx context.Context, brand, deviceName, size string, ttl time.Duration) error {
	if err := c.l1Cache.Set(ctx, brand, deviceName, size, c.config.L1TTL); err != nil {
		c.logger.Warn("Failed to set size in L1 cache", zap.Error(err))
	}
	return c.l2Cache.Set(ctx, brand, deviceName, size, ttl)
}

// Delete removes the entry from both tiers and tells other instances
// to drop theirs
func (c *TieredSizeCache) Delete(ctx context.Context, brand, deviceName string) error {
	if err := c.l1Cache.Delete(ctx, brand, deviceName); err != nil {
		c.logger.Warn("Failed to delete size from L1 cache", zap.Error(err))
	}
	if err := c.l2Cache.Delete(ctx, brand, deviceName); err != nil {
		return err
	}

	if c.invalidator != nil {
		if err := c.invalidator.PublishEntryInvalidation(ctx, brand, deviceName); err != nil {
			c.logger.Warn("Failed to publish size invalidation",
				zap.String("brand", brand),
				zap.String("device", deviceName),
				zap.Error(err))
		}
	}
	return nil
}

// InvalidateAll clears both tiers and broadcasts the invalidation
func (c *TieredSizeCache) InvalidateAll(ctx context.Context) error {
	if err := c.l1Cache.InvalidateAll(ctx); err != nil {
		c.logger.Warn("Failed to invalidate L1 size cache", zap.Error(err))
	}
	if err := c.l2Cache.InvalidateAll(ctx); err != nil {
		return err
	}

	if c.invalidator != nil {
		if err := c.invalidator.PublishInvalidateAll(ctx); err != nil {
			c.logger.Warn("Failed to publish invalidate-all", zap.Error(err))
		}
	}
	return nil
}

// Close releases both tiers and the invalidator
func (c *TieredSizeCache) Close() error {
	var firstErr error
	if err := c.l1Cache.Close(); err != nil {
		firstErr = err
	}
	if err := c.l2Cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.invalidator != nil {
		if err := c.invalidator.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetStats returns per-tier hit and miss counts
func (c *TieredSizeCache) GetStats() (l1Hits, l1Misses, l2Hits, l2Misses int64) {
	return atomic.LoadInt64(&c.l1Hits),
		atomic.LoadInt64(&c.l1Misses),
		atomic.LoadInt64(&c.l2Hits),
		atomic.LoadInt64(&c.l2Misses)
}

// Ensure TieredSizeCache implements SizeCache
var _ SizeCache = (*TieredSizeCache)(nil)
