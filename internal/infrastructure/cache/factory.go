package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

// Factory creates caches and idempotency stores based on configuration.
// Redis is preferred; in-memory fallbacks cover single-instance and
// test deployments.
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           SizeCacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithSizeCacheConfig sets the size cache configuration
func WithSizeCacheConfig(cfg SizeCacheConfig) FactoryOption {
	return func(f *Factory) {
		f.cacheConfig = cfg
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory
// implementations when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		cacheConfig:           DefaultSizeCacheConfig(),
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// redisConnConfig converts the application Redis settings
func (f *Factory) redisConnConfig() RedisConfig {
	return RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}
}

// CreateSizeCache builds the size cache: tiered over Redis when Redis
// is reachable, in-memory only otherwise (subject to the fallback
// setting).
func (f *Factory) CreateSizeCache() (SizeCache, error) {
	l1 := NewInMemorySizeCache(
		WithInMemoryConfig(f.cacheConfig),
		WithInMemoryLogger(f.logger),
	)

	l2, err := NewRedisSizeCache(f.redisConnConfig(),
		WithRedisConfig(f.cacheConfig),
		WithRedisLogger(f.logger),
	)
	if err != nil {
		if !f.allowInMemoryFallback {
			l1.Close()
			return nil, fmt.Errorf("Redis required for size cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, using in-memory size cache only. "+
			"Instances will not share cached sizes.",
			zap.Error(err),
		)
		return l1, nil
	}

	invalidator := NewRedisSizeCacheInvalidatorWithClient(l2.GetClient(),
		WithInvalidatorChannel(f.cacheConfig.PubSubChannel),
		WithInvalidatorLogger(f.logger),
	)

	f.logger.Info("using tiered size cache")
	return NewTieredSizeCache(l1, l2, invalidator,
		WithTieredConfig(f.cacheConfig),
		WithTieredLogger(f.logger),
	), nil
}

// CreateIdempotencyStore builds the batch submission dedupe store,
// preferring Redis so duplicate submissions are caught across
// instances.
func (f *Factory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(f.redisConnConfig())
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Duplicate batch submissions may slip through in distributed deployments.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
