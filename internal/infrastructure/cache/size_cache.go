// Package cache holds the caching layer for the device size reference
// master and the idempotency stores used to deduplicate batch
// submissions. Size lookups dominate batch enrichment, so resolved
// sizes are cached in front of the database.
package cache

import (
	"context"
	"strings"
	"time"
)

// SizeCache caches resolved size categories keyed by brand and device
// name. A miss is (empty, nil); errors are reserved for backend
// failures.
type SizeCache interface {
	Get(ctx context.Context, brand, deviceName string) (string, error)
	Set(ctx context.Context, brand, deviceName, size string, ttl time.Duration) error
	Delete(ctx context.Context, brand, deviceName string) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

// SizeCacheConfig holds tuning knobs shared by the cache tiers
type SizeCacheConfig struct {
	// TTL applies to entries in the shared (Redis) tier
	TTL time.Duration
	// L1TTL applies to entries in the local in-memory tier
	L1TTL time.Duration
	// MaxItems bounds the in-memory tier; 0 means unbounded
	MaxItems int
	// PubSubChannel carries cross-instance invalidation messages
	PubSubChannel string
}

// DefaultSizeCacheConfig returns the default cache configuration
func DefaultSizeCacheConfig() SizeCacheConfig {
	return SizeCacheConfig{
		TTL:           10 * time.Minute,
		L1TTL:         30 * time.Second,
		MaxItems:      10000,
		PubSubChannel: "orderhub:size_cache:invalidate",
	}
}

// sizeKey builds the cache key for a brand and device name. Device
// names arrive in mixed case from marketplace exports, so the key is
// folded.
func sizeKey(brand, deviceName string) string {
	return strings.ToLower(strings.TrimSpace(brand)) + ":" + strings.ToLower(strings.TrimSpace(deviceName))
}

// Invalidation actions carried over Pub/Sub
const (
	InvalidateEntry = "entry"
	InvalidateAll   = "all"
)

// InvalidationMessage tells other instances to drop cached sizes after
// a reference master change
type InvalidationMessage struct {
	Action     string `json:"action"`
	Brand      string `json:"brand,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}
