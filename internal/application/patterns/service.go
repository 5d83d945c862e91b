// Package patterns manages the learned pattern store: operator
// corrections, pattern administration and usage statistics.
package patterns

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
)

// Service handles learned pattern operations
type Service struct {
	patterns matching.LearnedPatternRepository
	logger   *zap.Logger
}

// NewService creates a new pattern service
func NewService(patterns matching.LearnedPatternRepository, logger *zap.Logger) *Service {
	return &Service{patterns: patterns, logger: logger}
}

// LearnCorrection records an operator correction as a manual pattern.
// The stored pattern is derived from the corrected value, not from the
// original text wholesale. Re-learning an existing pattern merges into
// it instead of duplicating it, overwriting the value when the
// correction contradicts what was learned.
func (s *Service) LearnCorrection(ctx context.Context, req LearnCorrectionRequest) (*PatternResponse, error) {
	kind, err := parseKind(req.Kind)
	if err != nil {
		return nil, err
	}

	patternText := matching.DerivePattern(kind, req.OriginalText, req.Value, req.DeviceName)
	pattern, err := matching.NewLearnedPattern(kind, patternText, req.Value, matching.SourceManual)
	if err != nil {
		return nil, err
	}
	pattern.Brand = req.Brand
	pattern.DeviceName = req.DeviceName

	saved, err := s.patterns.Upsert(ctx, pattern)
	if err != nil {
		return nil, err
	}

	s.logger.Info("correction learned",
		zap.String("kind", req.Kind),
		zap.String("pattern", patternText),
		zap.String("value", req.Value),
	)

	return ToPatternResponse(saved), nil
}

// List returns all patterns of one kind, strongest first
func (s *Service) List(ctx context.Context, kind string) ([]*PatternResponse, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}

	patterns, err := s.patterns.FindByKind(ctx, k)
	if err != nil {
		return nil, err
	}
	return ToPatternResponses(patterns), nil
}

// Get returns a single pattern by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatternResponse, error) {
	pattern, err := s.patterns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToPatternResponse(pattern), nil
}

// Delete removes a pattern
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patterns.FindByID(ctx, id); err != nil {
		return err
	}
	return s.patterns.Delete(ctx, id)
}

// Statistics returns aggregate counters for one pattern kind
func (s *Service) Statistics(ctx context.Context, kind string) (*matching.PatternStatistics, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.patterns.Statistics(ctx, k)
}

func parseKind(kind string) (matching.TargetKind, error) {
	switch matching.TargetKind(kind) {
	case matching.TargetDevice, matching.TargetSize, matching.TargetProductType:
		return matching.TargetKind(kind), nil
	default:
		return "", shared.NewDomainError("INVALID_KIND", "kind must be device, size or product_type")
	}
}
