package matching

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/shared"
)

// TargetKind names the attribute a learned pattern resolves
type TargetKind string

// Supported target kinds
const (
	TargetDevice      TargetKind = "device"
	TargetSize        TargetKind = "size"
	TargetProductType TargetKind = "product_type"
)

// PatternSource records where a pattern came from
type PatternSource string

// Pattern sources
const (
	SourceManual PatternSource = "manual"
	SourceAuto   PatternSource = "auto"
)

// Confidence scoring constants. Manual corrections start near-certain,
// automatic extractions start lower, and every confirmed reuse nudges a
// pattern upward until it saturates. Confidence never decreases.
const (
	ManualInitialConfidence = 0.9
	AutoInitialConfidence   = 0.7
	ConfidenceStep          = 0.05
	MaxConfidence           = 1.0
)

// LearnedPattern is a text fragment that, when contained in an incoming
// row's text, resolves to a canonical attribute value. Patterns accrue
// confidence and usage as they are confirmed by later rows.
type LearnedPattern struct {
	shared.BaseEntity
	Kind       TargetKind    `gorm:"type:varchar(32);not null;uniqueIndex:idx_learned_patterns_kind_pattern"`
	Pattern    string        `gorm:"type:varchar(255);not null;uniqueIndex:idx_learned_patterns_kind_pattern"`
	Value      string        `gorm:"type:varchar(255);not null"`
	Brand      string        `gorm:"type:varchar(64)"`
	DeviceName string        `gorm:"type:varchar(128);index"`
	Confidence float64       `gorm:"not null"`
	Source     PatternSource `gorm:"type:varchar(16);not null"`
	UsageCount int           `gorm:"not null;default:1"`
}

// TableName returns the table name for LearnedPattern
func (LearnedPattern) TableName() string {
	return "learned_patterns"
}

// NewLearnedPattern creates a learned pattern with the source-appropriate
// initial confidence. Empty or whitespace-only patterns and values are
// rejected with ErrInvalidPattern.
func NewLearnedPattern(kind TargetKind, pattern, value string, source PatternSource) (*LearnedPattern, error) {
	pattern = strings.TrimSpace(pattern)
	value = strings.TrimSpace(value)
	if pattern == "" || value == "" {
		return nil, shared.ErrInvalidPattern
	}

	confidence := AutoInitialConfidence
	if source == SourceManual {
		confidence = ManualInitialConfidence
	}

	return &LearnedPattern{
		BaseEntity: shared.NewBaseEntity(),
		Kind:       kind,
		Pattern:    pattern,
		Value:      value,
		Confidence: confidence,
		Source:     source,
		UsageCount: 1,
	}, nil
}

// ConfirmUse registers one confirmed reuse: usage increments and
// confidence rises by one step, capped at MaxConfidence.
func (p *LearnedPattern) ConfirmUse() {
	p.UsageCount++
	if p.Confidence < MaxConfidence {
		p.Confidence = min(p.Confidence+ConfidenceStep, MaxConfidence)
	}
}

// Absorb merges a re-learned pattern into the stored row. The value,
// source and scope follow the newer pattern, so a correction that
// contradicts the stored value overwrites it. Usage and confidence
// count the reuse, and confidence never lands below the newer
// pattern's initial score.
func (p *LearnedPattern) Absorb(in *LearnedPattern) {
	p.Value = in.Value
	p.Source = in.Source
	p.Brand = in.Brand
	p.DeviceName = in.DeviceName
	p.ConfirmUse()
	if p.Confidence < in.Confidence {
		p.Confidence = in.Confidence
	}
}

// DerivePattern returns the pattern text to store when an attribute is
// learned. Device and product type patterns are the canonical value
// itself. Size patterns keep the part of the original text that
// precedes the size token, so the next row of the same product line
// matches regardless of which size it carries; when the text has no
// size token the prefix runs to the end of the device name, and as a
// last resort the leading 30 characters are used. Returns "" when no
// usable pattern can be derived.
func DerivePattern(kind TargetKind, originalText, value, deviceName string) string {
	value = strings.TrimSpace(value)
	if kind != TargetSize {
		return value
	}

	originalText = strings.TrimSpace(originalText)
	if originalText == "" || value == "" {
		return ""
	}

	if idx := strings.Index(originalText, "_"+value); idx >= 0 {
		if prefix := originalText[:idx]; len([]rune(prefix)) >= 3 {
			return prefix
		}
	}

	if deviceName != "" {
		if idx := strings.Index(originalText, deviceName); idx >= 0 {
			if prefix := originalText[:idx+len(deviceName)]; len([]rune(prefix)) >= 3 {
				return prefix
			}
		}
	}

	compact := []rune(strings.Join(strings.Fields(originalText), ""))
	if len(compact) > 30 {
		compact = compact[:30]
	}
	if len(compact) < 3 {
		return ""
	}
	return string(compact)
}

// PatternStatistics summarizes the learned pattern store for one kind
type PatternStatistics struct {
	Kind           TargetKind `json:"kind"`
	TotalPatterns  int64      `json:"total_patterns"`
	ManualPatterns int64      `json:"manual_patterns"`
	AutoPatterns   int64      `json:"auto_patterns"`
	TotalUsage     int64      `json:"total_usage"`
}

// LearnedPatternRepository defines persistence for learned patterns.
// FindByKind returns patterns ordered by confidence desc, usage count
// desc, updated-at desc, which is the predictor's tie-break order.
type LearnedPatternRepository interface {
	Upsert(ctx context.Context, pattern *LearnedPattern) (*LearnedPattern, error)
	RecordUse(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*LearnedPattern, error)
	FindByKind(ctx context.Context, kind TargetKind) ([]*LearnedPattern, error)
	FindByKindAndValue(ctx context.Context, kind TargetKind, value string) ([]*LearnedPattern, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context, kind TargetKind) (*PatternStatistics, error)
}
