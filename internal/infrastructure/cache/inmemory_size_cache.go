package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemorySizeCache implements SizeCache using in-memory storage.
// It is designed to be used as the L1 tier in front of Redis.
type InMemorySizeCache struct {
	entries sync.Map // map[string]*sizeEntry
	config  SizeCacheConfig
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
	count  int64
}

// sizeEntry wraps a cached size with its expiration time
type sizeEntry struct {
	size      string
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *sizeEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemorySizeCacheOption is a functional option for configuring the cache
type InMemorySizeCacheOption func(*InMemorySizeCache)

// WithInMemoryConfig sets the cache configuration
func WithInMemoryConfig(config SizeCacheConfig) InMemorySizeCacheOption {
	return func(c *InMemorySizeCache) {
		c.config = config
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemorySizeCacheOption {
	return func(c *InMemorySizeCache) {
		c.logger = logger
	}
}

// NewInMemorySizeCache creates a new in-memory size cache
func NewInMemorySizeCache(opts ...InMemorySizeCacheOption) *InMemorySizeCache {
	cache := &InMemorySizeCache{
		config: DefaultSizeCacheConfig(),
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a cached size category
func (c *InMemorySizeCache) Get(ctx context.Context, brand, deviceName string) (string, error) {
	key := sizeKey(brand, deviceName)

	if value, ok := c.entries.Load(key); ok {
		entry := value.(*sizeEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.size, nil
		}
		c.entries.Delete(key)
		atomic.AddInt64(&c.count, -1)
	}

	atomic.AddInt64(&c.misses, 1)
	return "", nil
}

// Set stores a size category. When the cache is full the entry is
// dropped rather than evicting older entries; the short L1 TTL keeps
// turnover high enough.
func (c *InMemorySizeCache) Set(ctx context.Context, brand, deviceName, size string, ttl time.Duration) error {
	if size == "" {
		return nil
	}

	if ttl == 0 {
		ttl = c.config.L1TTL
	}

	if c.config.MaxItems > 0 && atomic.LoadInt64(&c.count) >= int64(c.config.MaxItems) {
		c.doCleanup()
		if atomic.LoadInt64(&c.count) >= int64(c.config.MaxItems) {
			c.logger.Debug("L1 size cache full, dropping entry",
				zap.String("brand", brand),
				zap.String("device", deviceName))
			return nil
		}
	}

	key := sizeKey(brand, deviceName)
	if _, loaded := c.entries.Swap(key, &sizeEntry{size: size, expiresAt: time.Now().Add(ttl)}); !loaded {
		atomic.AddInt64(&c.count, 1)
	}
	return nil
}

// Delete removes a cached size category
func (c *InMemorySizeCache) Delete(ctx context.Context, brand, deviceName string) error {
	if _, loaded := c.entries.LoadAndDelete(sizeKey(brand, deviceName)); loaded {
		atomic.AddInt64(&c.count, -1)
	}
	return nil
}

// InvalidateAll removes all cached sizes
func (c *InMemorySizeCache) InvalidateAll(ctx context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	atomic.StoreInt64(&c.count, 0)

	c.logger.Info("Invalidated all L1 size cache entries")
	return nil
}

// Close releases any resources held by the cache
func (c *InMemorySizeCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemorySizeCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// ResetStats resets the cache statistics
func (c *InMemorySizeCache) ResetStats() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Count returns the number of entries in the cache
func (c *InMemorySizeCache) Count() int {
	return int(atomic.LoadInt64(&c.count))
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemorySizeCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in size cache cleanup",
							zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemorySizeCache) doCleanup() {
	var removed int

	c.entries.Range(func(key, value any) bool {
		entry := value.(*sizeEntry)
		if entry.isExpired() {
			if _, loaded := c.entries.LoadAndDelete(key); loaded {
				atomic.AddInt64(&c.count, -1)
				removed++
			}
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired L1 size cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemorySizeCache implements SizeCache
var _ SizeCache = (*InMemorySizeCache)(nil)
