package matching

// Extraction is the outcome of one format strategy applied to a block of
// option or product text. Size may be empty when the format does not
// carry one (keyword scans); Column is filled by the caller with the
// source column name for provenance.
type Extraction struct {
	Device   string
	Brand    string
	Size     string
	Strategy string
	Column   string
}

// FormatStrategy extracts attribute candidates from text laid out in one
// marketplace export format. Applies is a cheap pre-check; Extract does
// the full parse and reports whether it produced a candidate.
type FormatStrategy interface {
	Name() string
	Applies(text string) bool
	Extract(text string) (*Extraction, bool)
}

// StrategyRegistry holds format strategies in priority order. Extraction
// short-circuits on the first strategy that yields a candidate, so more
// specific formats must be registered before generic scans.
type StrategyRegistry struct {
	strategies []FormatStrategy
}

// NewStrategyRegistry creates a registry with the given strategies
func NewStrategyRegistry(strategies ...FormatStrategy) *StrategyRegistry {
	return &StrategyRegistry{strategies: strategies}
}

// DefaultStrategyRegistry returns the standard chain: Rakuten option
// lines, then Wowma option lines, then free-text keyword scanning.
func DefaultStrategyRegistry() *StrategyRegistry {
	return NewStrategyRegistry(
		&RakutenOptionStrategy{},
		&WowmaOptionStrategy{},
		&KeywordScanStrategy{},
	)
}

// Register appends a strategy at the lowest priority
func (r *StrategyRegistry) Register(s FormatStrategy) {
	r.strategies = append(r.strategies, s)
}

// Extract runs the registered strategies in order and returns the first
// candidate produced. The boolean reports whether any strategy matched.
func (r *StrategyRegistry) Extract(text string) (*Extraction, bool) {
	if text == "" {
		return nil, false
	}
	for _, s := range r.strategies {
		if !s.Applies(text) {
			continue
		}
		if ex, ok := s.Extract(text); ok {
			ex.Strategy = s.Name()
			return ex, true
		}
	}
	return nil, false
}

// Names returns the registered strategy names in priority order
func (r *StrategyRegistry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}
	return names
}
