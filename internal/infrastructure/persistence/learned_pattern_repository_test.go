package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend/internal/domain/matching"
)

func newPatternTestRepo(t *testing.T) *GormLearnedPatternRepository {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	return NewGormLearnedPatternRepository(db.DB)
}

func mustPattern(t *testing.T, kind matching.TargetKind, pattern, value string, source matching.PatternSource) *matching.LearnedPattern {
	t.Helper()
	p, err := matching.NewLearnedPattern(kind, pattern, value, source)
	require.NoError(t, err)
	return p
}

func TestGormLearnedPatternRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a new pattern", func(t *testing.T) {
		repo := newPatternTestRepo(t)

		saved, err := repo.Upsert(ctx, mustPattern(t, matching.TargetProductType, "手帳型", "手帳型カバー", matching.SourceManual))
		require.NoError(t, err)

		assert.Equal(t, "手帳型カバー", saved.Value)
		assert.Equal(t, matching.SourceManual, saved.Source)
		assert.Equal(t, 1, saved.UsageCount)
		assert.InDelta(t, matching.ManualInitialConfidence, saved.Confidence, 1e-9)
	})

	t.Run("re-learning the same pattern confirms it", func(t *testing.T) {
		repo := newPatternTestRepo(t)

		first, err := repo.Upsert(ctx, mustPattern(t, matching.TargetDevice, "iPhone 15 Pro", "iPhone 15 Pro", matching.SourceAuto))
		require.NoError(t, err)

		second, err := repo.Upsert(ctx, mustPattern(t, matching.TargetDevice, "iPhone 15 Pro", "iPhone 15 Pro", matching.SourceAuto))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.UsageCount)
		assert.InDelta(t, matching.AutoInitialConfidence+matching.ConfidenceStep, second.Confidence, 1e-9)
	})

	t.Run("a contradicting correction overwrites the stored value", func(t *testing.T) {
		repo := newPatternTestRepo(t)

		first, err := repo.Upsert(ctx, mustPattern(t, matching.TargetProductType, "手帳型", "手帳型カバー", matching.SourceManual))
		require.NoError(t, err)
		assert.Equal(t, "手帳型カバー", first.Value)

		second, err := repo.Upsert(ctx, mustPattern(t, matching.TargetProductType, "手帳型", "手帳型ケース", matching.SourceManual))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "手帳型ケース", second.Value)
		assert.Equal(t, 2, second.UsageCount)

		reread, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "手帳型ケース", reread.Value)
	})

	t.Run("a manual correction over an auto pattern takes manual strength", func(t *testing.T) {
		repo := newPatternTestRepo(t)

		_, err := repo.Upsert(ctx, mustPattern(t, matching.TargetDevice, "ぎゃらくしーA54", "Galaxy A54 5G", matching.SourceAuto))
		require.NoError(t, err)

		manual := mustPattern(t, matching.TargetDevice, "ぎゃらくしーA54", "Galaxy A54", matching.SourceManual)
		manual.Brand = "Galaxy"
		saved, err := repo.Upsert(ctx, manual)
		require.NoError(t, err)

		assert.Equal(t, "Galaxy A54", saved.Value)
		assert.Equal(t, matching.SourceManual, saved.Source)
		assert.Equal(t, "Galaxy", saved.Brand)
		assert.InDelta(t, matching.ManualInitialConfidence, saved.Confidence, 1e-9)
	})

	t.Run("confidence saturates at the cap", func(t *testing.T) {
		repo := newPatternTestRepo(t)

		var saved *matching.LearnedPattern
		var err error
		for range 10 {
			saved, err = repo.Upsert(ctx, mustPattern(t, matching.TargetSize, "手帳型カバー/iPhone 8", "i6", matching.SourceManual))
			require.NoError(t, err)
		}
		assert.InDelta(t, matching.MaxConfidence, saved.Confidence, 1e-9)
		assert.Equal(t, 10, saved.UsageCount)
	})
}

func TestGormLearnedPatternRepository_RecordUse(t *testing.T) {
	ctx := context.Background()
	repo := newPatternTestRepo(t)

	saved, err := repo.Upsert(ctx, mustPattern(t, matching.TargetSize, "手帳型カバー/iPhone 8", "i6", matching.SourceAuto))
	require.NoError(t, err)

	require.NoError(t, repo.RecordUse(ctx, saved.ID))

	reread, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reread.UsageCount)
	assert.InDelta(t, matching.AutoInitialConfidence+matching.ConfidenceStep, reread.Confidence, 1e-9)
}
