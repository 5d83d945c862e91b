package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
)

// countingReferenceRepo records how often each lookup reaches the database
type countingReferenceRepo struct {
	entries       []*matching.ReferenceEntry
	keyCalls      int
	fragmentCalls int
}

func (r *countingReferenceRepo) Upsert(ctx context.Context, entry *matching.ReferenceEntry) (*matching.ReferenceEntry, error) {
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *countingReferenceRepo) FindByKey(ctx context.Context, brand, normalizedKey string) (*matching.ReferenceEntry, error) {
	r.keyCalls++
	for _, e := range r.entries {
		if e.Brand == brand && e.NormalizedKey == normalizedKey {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *countingReferenceRepo) FindByDeviceFragment(ctx context.Context, brand, fragment string) (*matching.ReferenceEntry, error) {
	r.fragmentCalls++
	for _, e := range r.entries {
		if e.Brand == brand && e.DeviceName == fragment {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *countingReferenceRepo) List(ctx context.Context, brand string) ([]*matching.ReferenceEntry, error) {
	return r.entries, nil
}

func (r *countingReferenceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func newCachedRepoFixture(t *testing.T) (*CachedReferenceRepository, *countingReferenceRepo, *InMemorySizeCache) {
	inner := &countingReferenceRepo{}
	sizes := NewInMemorySizeCache()
	t.Cleanup(func() { sizes.Close() })
	return NewCachedReferenceRepository(inner, sizes, nil), inner, sizes
}

func seedEntry(t *testing.T, inner *countingReferenceRepo, brand, device, size string) *matching.ReferenceEntry {
	entry, err := matching.NewReferenceEntry(brand, device, size)
	require.NoError(t, err)
	inner.entries = append(inner.entries, entry)
	return entry
}

func TestCachedReferenceRepository_FindByKey(t *testing.T) {
	t.Run("second lookup is served from cache", func(t *testing.T) {
		repo, inner, _ := newCachedRepoFixture(t)
		entry := seedEntry(t, inner, "iPhone", "iPhone 15 Pro", "i6s")

		first, err := repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
		require.NoError(t, err)
		assert.Equal(t, "i6s", first.SizeCategory)

		second, err := repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
		require.NoError(t, err)
		assert.Equal(t, "i6s", second.SizeCategory)

		assert.Equal(t, 1, inner.keyCalls)
	})

	t.Run("misses pass through every time", func(t *testing.T) {
		repo, inner, _ := newCachedRepoFixture(t)

		_, err := repo.FindByKey(context.Background(), "iPhone", "nosuchkey")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = repo.FindByKey(context.Background(), "iPhone", "nosuchkey")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		assert.Equal(t, 2, inner.keyCalls)
	})

	t.Run("entries without a size are not cached", func(t *testing.T) {
		repo, inner, _ := newCachedRepoFixture(t)
		entry := seedEntry(t, inner, "iPhone", "iPhone 15 Pro", "")

		_, err := repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
		require.NoError(t, err)
		_, err = repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.keyCalls)
	})
}

func TestCachedReferenceRepository_FindByDeviceFragment(t *testing.T) {
	repo, inner, _ := newCachedRepoFixture(t)
	seedEntry(t, inner, "Galaxy", "A54 5G", "gm")

	first, err := repo.FindByDeviceFragment(context.Background(), "Galaxy", "A54 5G")
	require.NoError(t, err)
	assert.Equal(t, "gm", first.SizeCategory)

	second, err := repo.FindByDeviceFragment(context.Background(), "Galaxy", "A54 5G")
	require.NoError(t, err)
	assert.Equal(t, "gm", second.SizeCategory)

	assert.Equal(t, 1, inner.fragmentCalls)
}

func TestCachedReferenceRepository_UpsertInvalidates(t *testing.T) {
	repo, inner, _ := newCachedRepoFixture(t)
	entry := seedEntry(t, inner, "iPhone", "iPhone 15 Pro", "i6s")

	_, err := repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
	require.NoError(t, err)

	// Same brand and device, corrected size
	entry.SizeCategory = "i6sp"
	_, err = repo.Upsert(context.Background(), entry)
	require.NoError(t, err)

	refreshed, err := repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
	require.NoError(t, err)
	assert.Equal(t, "i6sp", refreshed.SizeCategory)
	assert.Equal(t, 2, inner.keyCalls)
}

func TestCachedReferenceRepository_DeleteInvalidates(t *testing.T) {
	repo, inner, _ := newCachedRepoFixture(t)
	entry := seedEntry(t, inner, "iPhone", "iPhone 15 Pro", "i6s")

	_, err := repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), entry.ID))

	_, err = repo.FindByKey(context.Background(), "iPhone", entry.NormalizedKey)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
