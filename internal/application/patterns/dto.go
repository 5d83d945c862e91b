package patterns

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/matching"
)

// LearnCorrectionRequest records an operator correction as a manual
// pattern. OriginalText is the marketplace text the operator corrected;
// the pattern to store is derived from it and the corrected value.
// Brand and device scope only apply to size patterns.
type LearnCorrectionRequest struct {
	Kind         string `json:"kind" binding:"required,oneof=device size product_type"`
	OriginalText string `json:"original_text" binding:"required,min=1,max=512"`
	Value        string `json:"value" binding:"required,min=1,max=255"`
	Brand        string `json:"brand" binding:"max=64"`
	DeviceName   string `json:"device_name" binding:"max=128"`
}

// PatternResponse represents a learned pattern in API responses
type PatternResponse struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Pattern    string    `json:"pattern"`
	Value      string    `json:"value"`
	Brand      string    `json:"brand,omitempty"`
	DeviceName string    `json:"device_name,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	UsageCount int       `json:"usage_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToPatternResponse converts a learned pattern to a response DTO
func ToPatternResponse(p *matching.LearnedPattern) *PatternResponse {
	return &PatternResponse{
		ID:         p.ID,
		Kind:       string(p.Kind),
		Pattern:    p.Pattern,
		Value:      p.Value,
		Brand:      p.Brand,
		DeviceName: p.DeviceName,
		Confidence: p.Confidence,
		Source:     string(p.Source),
		UsageCount: p.UsageCount,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ToPatternResponses converts a slice of learned patterns
func ToPatternResponses(patterns []*matching.LearnedPattern) []*PatternResponse {
	out := make([]*PatternResponse, len(patterns))
	for i, p := range patterns {
		out[i] = ToPatternResponse(p)
	}
	return out
}
