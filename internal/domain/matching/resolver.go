package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/orderhub/backend/internal/domain/shared"
)

// Method names the tier that produced a resolution
type Method string

// Resolution methods
const (
	MethodLearned   Method = "learned"
	MethodPattern   Method = "pattern"
	MethodReference Method = "reference"
	MethodNone      Method = "none"
)

// HardCaseKeyword marks product types that are molded to the device and
// carry no size attribute.
const HardCaseKeyword = "ハードケース"

// Row is one order line as exported by a marketplace: column name to
// cell value. Column names differ per marketplace; helpers classify them.
type Row map[string]string

// SortedKeys returns the column names in deterministic order
func (r Row) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionColumns returns the columns holding buyer option selections
func (r Row) OptionColumns() []string {
	var cols []string
	for _, k := range r.SortedKeys() {
		if r[k] == "" {
			continue
		}
		if strings.Contains(k, "選択肢") || strings.Contains(strings.ToLower(k), "options") {
			cols = append(cols, k)
		}
	}
	return cols
}

// deviceColumnKeywords are column-name fragments that mark a dedicated
// device column.
var deviceColumnKeywords = []string{
	"機種", "機種名", "対応機種", "端末", "端末名", "デバイス",
	"device", "model", "携帯機種", "対応端末", "機種情報",
}

// DeviceColumns returns the columns dedicated to device information
func (r Row) DeviceColumns() []string {
	var cols []string
	for _, k := range r.SortedKeys() {
		if r[k] == "" {
			continue
		}
		lower := strings.ToLower(k)
		for _, kw := range deviceColumnKeywords {
			if strings.Contains(k, kw) || strings.Contains(lower, kw) {
				cols = append(cols, k)
				break
			}
		}
	}
	return cols
}

// productNameColumns are tried in order for the row's product name.
var productNameColumns = []string{"商品名", "product_name", "商品", "product", "Product", "PRODUCT"}

// ProductName returns the row's product name, or the empty string
func (r Row) ProductName() string {
	for _, k := range productNameColumns {
		if v, ok := r[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// skuColumnKeywords are column-name fragments that mark an SKU or product
// code column.
var skuColumnKeywords = []string{"sku", "商品番号", "商品コード", "管理番号"}

// SKU returns the row's SKU or product code, or the empty string
func (r Row) SKU() string {
	for _, k := range r.SortedKeys() {
		if r[k] == "" {
			continue
		}
		lower := strings.ToLower(k)
		for _, kw := range skuColumnKeywords {
			if strings.Contains(lower, kw) {
				return strings.TrimSpace(r[k])
			}
		}
	}
	return ""
}

// fallbackScanColumns are scanned before the remaining columns when no
// dedicated column resolved the device.
var fallbackScanColumns = []string{"備考", "notes", "memo", "説明", "description", "型番", "model_number"}

// Resolution is the outcome of resolving one attribute for one row
type Resolution struct {
	Value         string  `json:"value"`
	Brand         string  `json:"brand,omitempty"`
	Method        Method  `json:"method"`
	Confidence    float64 `json:"confidence"`
	Strategy      string  `json:"strategy,omitempty"`
	Column        string  `json:"column,omitempty"`
	Note          string  `json:"note,omitempty"`
	NotApplicable bool    `json:"not_applicable,omitempty"`
}

// Resolved reports whether the attribute got a value or was ruled out
func (r Resolution) Resolved() bool {
	return r.NotApplicable || r.Value != ""
}

// ResolverOptions tunes the orchestrator tiers
type ResolverOptions struct {
	// LearnedFloor is the minimum confidence a learned pattern needs to
	// win over the pattern tier.
	LearnedFloor float64
	// PatternConfidence is the fixed confidence assigned to pattern-tier
	// extractions.
	PatternConfidence float64
}

// DefaultResolverOptions returns the standard tier tuning
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		LearnedFloor:      0.5,
		PatternConfidence: 0.8,
	}
}

// Resolver orchestrates the resolution tiers per attribute: learned
// patterns first, then format extraction, then the reference master
// (size only). A row that resolves nothing is reported as unresolved,
// never as an error; batch callers degrade the row and continue.
type Resolver struct {
	normalizer *Normalizer
	predictor  *Predictor
	registry   *StrategyRegistry
	reference  *ReferenceLookup
	designs    DesignRepository
	opts       ResolverOptions
}

// NewResolver wires the resolution tiers together. designs may be nil
// when no design master is configured.
func NewResolver(
	predictor *Predictor,
	registry *StrategyRegistry,
	reference *ReferenceLookup,
	designs DesignRepository,
	opts ResolverOptions,
) *Resolver {
	return &Resolver{
		normalizer: NewNormalizer(),
		predictor:  predictor,
		registry:   registry,
		reference:  reference,
		designs:    designs,
		opts:       opts,
	}
}

// ResolveDevice resolves the canonical device name for a row. Tier
// order: learned patterns on the product name, then format extraction
// over option columns, dedicated device columns, the product name, and
// finally every remaining column.
func (r *Resolver) ResolveDevice(ctx context.Context, row Row) (Resolution, error) {
	if pred, err := r.predictor.Predict(ctx, row.ProductName(), TargetDevice); err == nil {
		if pred.Confidence >= r.opts.LearnedFloor {
			return Resolution{
				Value:      pred.Value,
				Brand:      pred.Brand,
				Method:     MethodLearned,
				Confidence: pred.Confidence,
				Strategy:   fmt.Sprintf("pattern:%s", pred.Pattern),
			}, nil
		}
	} else if !errors.Is(err, shared.ErrNoMatch) {
		return Resolution{}, err
	}

	for _, col := range row.OptionColumns() {
		if ex, ok := r.registry.Extract(row[col]); ok {
			return r.patternResolution(ex, col), nil
		}
	}

	for _, col := range row.DeviceColumns() {
		if device, brand, ok := ScanDeviceKeyword(r.normalizer.Normalize(row[col]).Normalized); ok {
			return Resolution{
				Value:      device,
				Brand:      brand,
				Method:     MethodPattern,
				Confidence: r.opts.PatternConfidence,
				Strategy:   StrategyKeywordScan,
				Column:     col,
			}, nil
		}
	}

	if name := row.ProductName(); name != "" {
		if device, brand, ok := ScanDeviceKeyword(r.normalizer.Normalize(name).Normalized); ok {
			return Resolution{
				Value:      device,
				Brand:      brand,
				Method:     MethodPattern,
				Confidence: r.opts.PatternConfidence,
				Strategy:   StrategyKeywordScan,
				Column:     "product_name",
			}, nil
		}
	}

	scanned := make(map[string]bool)
	scan := func(col string) (Resolution, bool) {
		if scanned[col] || row[col] == "" {
			return Resolution{}, false
		}
		scanned[col] = true
		if device, brand, ok := ScanDeviceKeyword(r.normalizer.Normalize(row[col]).Normalized); ok {
			return Resolution{
				Value:      device,
				Brand:      brand,
				Method:     MethodPattern,
				Confidence: r.opts.PatternConfidence,
				Strategy:   StrategyKeywordScan,
				Column:     col,
			}, true
		}
		return Resolution{}, false
	}
	for _, col := range fallbackScanColumns {
		if res, ok := scan(col); ok {
			return res, nil
		}
	}
	for _, col := range row.SortedKeys() {
		if res, ok := scan(col); ok {
			return res, nil
		}
	}

	return Resolution{Method: MethodNone, Note: "no device candidate in any column"}, nil
}

// ResolveSize resolves the size category for a row. Hard-case product
// types carry no size and resolve to NotApplicable. Tier order for the
// rest: device-scoped learned patterns, option-column extraction, the
// underscore size token in the product name, then the reference master.
func (r *Resolver) ResolveSize(ctx context.Context, row Row, device, brand, productType string) (Resolution, error) {
	name := row.ProductName()
	if strings.Contains(productType, HardCaseKeyword) || strings.Contains(name, HardCaseKeyword) {
		return Resolution{Method: MethodNone, NotApplicable: true, Note: "hard case carries no size"}, nil
	}

	if pred, err := r.predictor.PredictSize(ctx, name, device); err == nil {
		if pred.Confidence >= r.opts.LearnedFloor {
			return Resolution{
				Value:      pred.Value,
				Method:     MethodLearned,
				Confidence: pred.Confidence,
				Strategy:   fmt.Sprintf("pattern:%s", pred.Pattern),
			}, nil
		}
	} else if !errors.Is(err, shared.ErrNoMatch) {
		return Resolution{}, err
	}

	for _, col := range row.OptionColumns() {
		if ex, ok := r.registry.Extract(row[col]); ok && ex.Size != "" {
			return Resolution{
				Value:      ex.Size,
				Method:     MethodPattern,
				Confidence: r.opts.PatternConfidence,
				Strategy:   ex.Strategy,
				Column:     col,
			}, nil
		}
	}

	if size, ok := ExtractSizeToken(name); ok {
		return Resolution{
			Value:      size,
			Method:     MethodPattern,
			Confidence: r.opts.PatternConfidence,
			Strategy:   "size_token",
			Column:     "product_name",
		}, nil
	}

	if size, err := r.reference.SizeFor(ctx, brand, device); err == nil {
		return Resolution{
			Value:      size,
			Method:     MethodReference,
			Confidence: MaxConfidence,
			Strategy:   "reference_master",
		}, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Resolution{}, err
	}

	return Resolution{Method: MethodNone, Note: "no size candidate"}, nil
}

// ResolveProductType resolves the product type for a row: learned
// patterns on the product name, then the design master keyed by SKU,
// then the design master keyed by a design number found in the name.
func (r *Resolver) ResolveProductType(ctx context.Context, row Row) (Resolution, error) {
	name := row.ProductName()

	if pred, err := r.predictor.Predict(ctx, name, TargetProductType); err == nil {
		if pred.Confidence >= r.opts.LearnedFloor {
			return Resolution{
				Value:      pred.Value,
				Method:     MethodLearned,
				Confidence: pred.Confidence,
				Strategy:   fmt.Sprintf("pattern:%s", pred.Pattern),
			}, nil
		}
	} else if !errors.Is(err, shared.ErrNoMatch) {
		return Resolution{}, err
	}

	if r.designs != nil {
		if sku := row.SKU(); sku != "" {
			if entry, err := r.designs.FindByDesignNo(ctx, sku); err == nil {
				return Resolution{
					Value:      entry.ProductType,
					Method:     MethodReference,
					Confidence: MaxConfidence,
					Strategy:   "design_master:sku",
				}, nil
			} else if !errors.Is(err, shared.ErrNotFound) {
				return Resolution{}, err
			}
		}

		if designNo, ok := ExtractDesignNumber(name); ok {
			if entry, err := r.designs.FindByDesignNo(ctx, designNo); err == nil {
				return Resolution{
					Value:      entry.ProductType,
					Method:     MethodReference,
					Confidence: MaxConfidence,
					Strategy:   fmt.Sprintf("design_master:%s", designNo),
				}, nil
			} else if !errors.Is(err, shared.ErrNotFound) {
				return Resolution{}, err
			}
		}
	}

	return Resolution{Method: MethodNone, Note: "no product type candidate"}, nil
}

func (r *Resolver) patternResolution(ex *Extraction, col string) Resolution {
	return Resolution{
		Value:      ex.Device,
		Brand:      ex.Brand,
		Method:     MethodPattern,
		Confidence: r.opts.PatternConfidence,
		Strategy:   ex.Strategy,
		Column:     col,
	}
}
