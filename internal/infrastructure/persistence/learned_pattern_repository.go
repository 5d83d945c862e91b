package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
)

// GormLearnedPatternRepository implements LearnedPatternRepository using GORM
type GormLearnedPatternRepository struct {
	db *gorm.DB
}

// NewGormLearnedPatternRepository creates a new GormLearnedPatternRepository
func NewGormLearnedPatternRepository(db *gorm.DB) *GormLearnedPatternRepository {
	return &GormLearnedPatternRepository{db: db}
}

var _ matching.LearnedPatternRepository = (*GormLearnedPatternRepository)(nil)

// Upsert inserts the pattern or, when the kind and pattern text already
// exist, merges into the stored row: the value, source and scope follow
// the incoming pattern so a contradicting correction overwrites what was
// learned before, usage increments, and confidence rises by one step,
// capped, never landing below the incoming pattern's initial score. The
// conflict update runs in SQL so concurrent batches cannot lose
// confirmations.
func (r *GormLearnedPatternRepository) Upsert(ctx context.Context, pattern *matching.LearnedPattern) (*matching.LearnedPattern, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "pattern"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":       pattern.Value,
			"source":      pattern.Source,
			"brand":       pattern.Brand,
			"device_name": pattern.DeviceName,
			"usage_count": gorm.Expr("learned_patterns.usage_count + 1"),
			"confidence": gorm.Expr(
				"CASE WHEN learned_patterns.confidence + ? > ? THEN ? WHEN learned_patterns.confidence + ? < ? THEN ? ELSE learned_patterns.confidence + ? END",
				matching.ConfidenceStep, matching.MaxConfidence, matching.MaxConfidence,
				matching.ConfidenceStep, pattern.Confidence, pattern.Confidence,
				matching.ConfidenceStep,
			),
			"updated_at": time.Now(),
		}),
	}).Create(pattern).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the confirmed row, not the insert attempt
	var saved matching.LearnedPattern
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND pattern = ?", pattern.Kind, pattern.Pattern).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// RecordUse registers one confirmed reuse of a pattern
func (r *GormLearnedPatternRepository) RecordUse(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&matching.LearnedPattern{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"confidence": gorm.Expr(
				"CASE WHEN confidence + ? > ? THEN ? ELSE confidence + ? END",
				matching.ConfidenceStep, matching.MaxConfidence, matching.MaxConfidence, matching.ConfidenceStep,
			),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a pattern by its ID
func (r *GormLearnedPatternRepository) FindByID(ctx context.Context, id uuid.UUID) (*matching.LearnedPattern, error) {
	var pattern matching.LearnedPattern
	if err := r.db.WithContext(ctx).First(&pattern, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &pattern, nil
}

// FindByKind returns all patterns of a kind in the predictor's
// tie-break order
func (r *GormLearnedPatternRepository) FindByKind(ctx context.Context, kind matching.TargetKind) ([]*matching.LearnedPattern, error) {
	var patterns []*matching.LearnedPattern
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("confidence DESC, usage_count DESC, updated_at DESC").
		Find(&patterns).Error; err != nil {
		return nil, err
	}
	return patterns, nil
}

// FindByKindAndValue returns the patterns resolving to one value
func (r *GormLearnedPatternRepository) FindByKindAndValue(ctx context.Context, kind matching.TargetKind, value string) ([]*matching.LearnedPattern, error) {
	var patterns []*matching.LearnedPattern
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND value = ?", kind, value).
		Order("confidence DESC, usage_count DESC").
		Find(&patterns).Error; err != nil {
		return nil, err
	}
	return patterns, nil
}

// Delete removes a pattern
func (r *GormLearnedPatternRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&matching.LearnedPattern{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Statistics aggregates counters for one pattern kind
func (r *GormLearnedPatternRepository) Statistics(ctx context.Context, kind matching.TargetKind) (*matching.PatternStatistics, error) {
	var row struct {
		Total  int64
		Manual int64
		Auto   int64
		Usage  int64
	}
	err := r.db.WithContext(ctx).
		Model(&matching.LearnedPattern{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0) AS manual, "+
				"COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0) AS auto, "+
				"COALESCE(SUM(usage_count), 0) AS usage",
			matching.SourceManual, matching.SourceAuto,
		).
		Where("kind = ?", kind).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &matching.PatternStatistics{
		Kind:           kind,
		TotalPatterns:  row.Total,
		ManualPatterns: row.Manual,
		AutoPatterns:   row.Auto,
		TotalUsage:     row.Usage,
	}, nil
}
