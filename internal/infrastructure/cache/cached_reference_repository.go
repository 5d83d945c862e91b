package cache

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
)

// Lookup key prefixes keep exact-key and fragment hits apart in the cache
const (
	keyLookupPrefix      = "k/"
	fragmentLookupPrefix = "f/"
)

// CachedReferenceRepository decorates a ReferenceRepository with a size
// cache. Batch enrichment hits the same handful of devices thousands of
// times per file, so FindByKey and FindByDeviceFragment answer from
// cache when they can. Writes invalidate, then delegate.
//
// Cache failures degrade to the underlying repository; a broken cache
// must never break resolution.
type CachedReferenceRepository struct {
	inner  matching.ReferenceRepository
	sizes  SizeCache
	logger *zap.Logger
}

// NewCachedReferenceRepository wraps repo with the given size cache
func NewCachedReferenceRepository(inner matching.ReferenceRepository, sizes SizeCache, logger *zap.Logger) *CachedReferenceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReferenceRepository{
		inner:  inner,
		sizes:  sizes,
		logger: logger,
	}
}

var _ matching.ReferenceRepository = (*CachedReferenceRepository)(nil)

// Upsert writes through and drops any cached sizes for the brand
func (r *CachedReferenceRepository) Upsert(ctx context.Context, entry *matching.ReferenceEntry) (*matching.ReferenceEntry, error) {
	saved, err := r.inner.Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}

	// Fragment lookups can match this entry under many different
	// fragments, so the whole cache goes rather than one key.
	if err := r.sizes.InvalidateAll(ctx); err != nil {
		r.logger.Warn("Failed to invalidate size cache after upsert",
			zap.String("brand", entry.Brand),
			zap.Error(err))
	}
	return saved, nil
}

// FindByKey answers exact-key lookups from cache when possible
func (r *CachedReferenceRepository) FindByKey(ctx context.Context, brand, normalizedKey string) (*matching.ReferenceEntry, error) {
	if size, err := r.sizes.Get(ctx, brand, keyLookupPrefix+normalizedKey); err == nil && size != "" {
		return cachedEntry(brand, normalizedKey, size), nil
	}

	entry, err := r.inner.FindByKey(ctx, brand, normalizedKey)
	if err != nil {
		return nil, err
	}

	if entry.SizeCategory != "" {
		if err := r.sizes.Set(ctx, brand, keyLookupPrefix+normalizedKey, entry.SizeCategory, 0); err != nil {
			r.logger.Warn("Failed to cache size", zap.String("brand", brand), zap.Error(err))
		}
	}
	return entry, nil
}

// FindByDeviceFragment answers fragment lookups from cache when possible
func (r *CachedReferenceRepository) FindByDeviceFragment(ctx context.Context, brand, fragment string) (*matching.ReferenceEntry, error) {
	if size, err := r.sizes.Get(ctx, brand, fragmentLookupPrefix+fragment); err == nil && size != "" {
		return cachedEntry(brand, fragment, size), nil
	}

	entry, err := r.inner.FindByDeviceFragment(ctx, brand, fragment)
	if err != nil {
		return nil, err
	}

	if entry.SizeCategory != "" {
		if err := r.sizes.Set(ctx, brand, fragmentLookupPrefix+fragment, entry.SizeCategory, 0); err != nil {
			r.logger.Warn("Failed to cache size", zap.String("brand", brand), zap.Error(err))
		}
	}
	return entry, nil
}

// List is an admin operation and always reads the repository
func (r *CachedReferenceRepository) List(ctx context.Context, brand string) ([]*matching.ReferenceEntry, error) {
	return r.inner.List(ctx, brand)
}

// Delete removes the entry and drops the cache
func (r *CachedReferenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.sizes.InvalidateAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("Failed to invalidate size cache after delete", zap.Error(err))
	}
	return nil
}

// cachedEntry rebuilds the part of a reference entry that lookups
// consume. Only the size category survives a trip through the cache.
func cachedEntry(brand, deviceName, size string) *matching.ReferenceEntry {
	return &matching.ReferenceEntry{
		BaseEntity:   shared.BaseEntity{},
		Brand:        brand,
		DeviceName:   deviceName,
		SizeCategory: size,
	}
}
