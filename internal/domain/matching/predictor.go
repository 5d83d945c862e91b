package matching

import (
	"context"
	"strings"

	"github.com/orderhub/backend/internal/domain/shared"
)

// Prediction is a learned-tier resolution: the winning pattern's value
// with its scoring at the moment of the hit.
type Prediction struct {
	Value      string
	Brand      string
	DeviceName string
	Pattern    string
	Confidence float64
	Source     PatternSource
}

// Predictor resolves attribute values by substring containment of
// learned patterns in incoming text. The winner among matching patterns
// is the one with the highest confidence, then the highest usage count,
// then the most recent update; the repository returns candidates already
// in that order, so the first match wins.
type Predictor struct {
	patterns   LearnedPatternRepository
	normalizer *Normalizer
}

// NewPredictor creates a predictor backed by the given pattern store
func NewPredictor(patterns LearnedPatternRepository) *Predictor {
	return &Predictor{patterns: patterns, normalizer: NewNormalizer()}
}

// Predict finds the best learned pattern contained in text for the given
// kind. A hit is a confirmed reuse: usage and confidence are reinforced
// through the repository. Returns ErrNoMatch when nothing applies.
func (p *Predictor) Predict(ctx context.Context, text string, kind TargetKind) (*Prediction, error) {
	return p.predict(ctx, text, kind, "")
}

// PredictSize is Predict for the size kind with device scoping: patterns
// recorded against the row's device are preferred over unscoped ones at
// any rank.
func (p *Predictor) PredictSize(ctx context.Context, text, device string) (*Prediction, error) {
	return p.predict(ctx, text, TargetSize, device)
}

func (p *Predictor) predict(ctx context.Context, text string, kind TargetKind, device string) (*Prediction, error) {
	if text == "" {
		return nil, shared.ErrNoMatch
	}

	candidates, err := p.patterns.FindByKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	folded := p.normalizer.Fold(text)
	deviceKey := ""
	if device != "" {
		deviceKey = p.normalizer.Key(device)
	}

	var fallback *LearnedPattern
	for _, pattern := range candidates {
		// Pattern and text are folded the same way so that kana
		// spellings stored before a script rewrite still match.
		foldedPattern := p.normalizer.Fold(pattern.Pattern)
		if foldedPattern == "" || !strings.Contains(folded, foldedPattern) {
			continue
		}
		if deviceKey != "" && pattern.DeviceName != "" {
			if p.normalizer.Key(pattern.DeviceName) == deviceKey {
				return p.hit(ctx, pattern)
			}
			continue
		}
		if deviceKey != "" && fallback == nil {
			// Unscoped match; keep looking for a device-scoped one.
			fallback = pattern
			continue
		}
		return p.hit(ctx, pattern)
	}

	if fallback != nil {
		return p.hit(ctx, fallback)
	}
	return nil, shared.ErrNoMatch
}

func (p *Predictor) hit(ctx context.Context, pattern *LearnedPattern) (*Prediction, error) {
	if err := p.patterns.RecordUse(ctx, pattern.ID); err != nil {
		return nil, err
	}
	pattern.ConfirmUse()
	return &Prediction{
		Value:      pattern.Value,
		Brand:      pattern.Brand,
		DeviceName: pattern.DeviceName,
		Pattern:    pattern.Pattern,
		Confidence: pattern.Confidence,
		Source:     pattern.Source,
	}, nil
}
