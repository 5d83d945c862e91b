package enrichment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/catalog"
	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/pricing"
	"github.com/orderhub/backend/internal/domain/shared"
)

// RuleRegistrar registers a customer keyword rule when a batch reveals a
// price for a product type that has no rule yet. Implemented by the
// pricing rule service; a nil registrar disables auto-registration.
type RuleRegistrar interface {
	EnsureKeywordRule(ctx context.Context, customerID uuid.UUID, keyword string, price decimal.Decimal) (bool, error)
}

// Options tunes the enrichment service
type Options struct {
	// TaxRate is the consumption tax rate applied to line subtotals.
	TaxRate decimal.Decimal
	// RoundMode picks the yen rounding for amounts.
	RoundMode pricing.RoundMode
	// LearnOnAccept upserts an auto pattern whenever an attribute was
	// resolved by a non-learned tier, so the next batch hits the learned
	// tier directly.
	LearnOnAccept bool
	// AutoRegisterRules registers a keyword pricing rule whenever a line
	// fell through to the row price but resolved a product type.
	AutoRegisterRules bool
	// MaxBatchErrors caps the row errors kept per batch.
	MaxBatchErrors int
}

// DefaultOptions returns the standard enrichment tuning
func DefaultOptions() Options {
	return Options{
		TaxRate:           decimal.NewFromFloat(0.10),
		RoundMode:         pricing.RoundHalfUp,
		LearnOnAccept:     true,
		AutoRegisterRules: true,
		MaxBatchErrors:    100,
	}
}

// EnrichedRow is one order line after attribute resolution and pricing
type EnrichedRow struct {
	RowIndex    int                 `json:"row_index"`
	Device      matching.Resolution `json:"device"`
	Size        matching.Resolution `json:"size"`
	ProductType matching.Resolution `json:"product_type"`
	Product     *catalog.Product    `json:"product,omitempty"`
	Quantity    int                 `json:"quantity"`
	Quote       *pricing.Quote      `json:"quote,omitempty"`
	Amounts     pricing.LineAmounts `json:"amounts"`
}

// BatchResult summarizes one enriched batch. Failed rows are degraded
// into the error collection; the batch itself never aborts on a row.
type BatchResult struct {
	Rows       []*EnrichedRow   `json:"rows"`
	TotalRows  int              `json:"total_rows"`
	PricedRows int              `json:"priced_rows"`
	Errors     *ErrorCollection `json:"-"`
}

// Service resolves device, size and product type for imported order
// rows and prices each line through the deterministic pricing tiers.
type Service struct {
	resolver *matching.Resolver
	patterns matching.LearnedPatternRepository
	products catalog.ProductRepository
	prices   *pricing.Resolver
	rules    RuleRegistrar
	logger   *zap.Logger
	opts     Options
}

// NewService creates an enrichment service. products and rules may be
// nil when no product master or rule registration is configured.
func NewService(
	resolver *matching.Resolver,
	patterns matching.LearnedPatternRepository,
	products catalog.ProductRepository,
	prices *pricing.Resolver,
	rules RuleRegistrar,
	logger *zap.Logger,
	opts Options,
) *Service {
	return &Service{
		resolver: resolver,
		patterns: patterns,
		products: products,
		prices:   prices,
		rules:    rules,
		logger:   logger,
		opts:     opts,
	}
}

// ResolveRow resolves and prices a single order line. Attribute
// resolution never fails the row; only an unpriceable line or a store
// error surfaces as an error, with the partial enrichment attached.
func (s *Service) ResolveRow(ctx context.Context, customerID uuid.UUID, index int, row matching.Row) (*EnrichedRow, error) {
	device, err := s.resolver.ResolveDevice(ctx, row)
	if err != nil {
		return nil, err
	}

	productType, err := s.resolver.ResolveProductType(ctx, row)
	if err != nil {
		return nil, err
	}

	size, err := s.resolver.ResolveSize(ctx, row, device.Value, device.Brand, productType.Value)
	if err != nil {
		return nil, err
	}

	enriched := &EnrichedRow{
		RowIndex:    index,
		Device:      device,
		Size:        size,
		ProductType: productType,
		Quantity:    parseQuantity(row),
	}

	product, err := s.lookupProduct(ctx, row)
	if err != nil {
		return enriched, err
	}
	enriched.Product = product

	if s.opts.LearnOnAccept {
		s.learnResolved(ctx, row, device, size, productType)
	}

	identity := pricing.ProductIdentity{ProductType: productType.Value}
	masterPrice := decimal.Zero
	if product != nil {
		id := product.ID
		identity.ProductID = &id
		if identity.ProductType == "" {
			identity.ProductType = product.ProductType
		}
		masterPrice = product.DefaultPrice
	}

	rowPrice := parseMoneyColumn(row, unitPriceColumns)
	orderDate := parseOrderDate(row)

	quote, err := s.prices.ResolvePrice(ctx, customerID, identity, enriched.Quantity, orderDate, masterPrice, rowPrice)
	if err != nil {
		return enriched, err
	}
	enriched.Quote = quote

	discount := parseMoneyColumn(row, discountColumns)
	enriched.Amounts = pricing.CalculateLineAmounts(quote.UnitPrice, enriched.Quantity, s.opts.TaxRate, discount, s.opts.RoundMode)

	if quote.Source == pricing.SourceRow && s.opts.AutoRegisterRules {
		s.registerKeywordRule(ctx, customerID, identity.ProductType, quote.UnitPrice)
	}

	return enriched, nil
}

// ResolveBatch enriches every row of a batch. Rows that cannot be
// priced are degraded into the error collection and the batch continues.
func (s *Service) ResolveBatch(ctx context.Context, customerID uuid.UUID, rows []matching.Row) (*BatchResult, error) {
	result := &BatchResult{
		Rows:      make([]*EnrichedRow, 0, len(rows)),
		TotalRows: len(rows),
		Errors:    NewErrorCollection(s.opts.MaxBatchErrors),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		enriched, err := s.ResolveRow(ctx, customerID, i, row)
		if err != nil {
			result.Errors.Add(rowErrorFor(i, err))
			if enriched != nil {
				result.Rows = append(result.Rows, enriched)
			}
			continue
		}

		result.Rows = append(result.Rows, enriched)
		result.PricedRows++
	}

	s.logger.Info("batch enriched",
		zap.String("customer_id", customerID.String()),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("priced_rows", result.PricedRows),
		zap.Int("errors", result.Errors.TotalCount()),
	)

	return result, nil
}

// lookupProduct matches the row's SKU or product name against the
// product master. An absent or unknown product is not an error.
func (s *Service) lookupProduct(ctx context.Context, row matching.Row) (*catalog.Product, error) {
	if s.products == nil {
		return nil, nil
	}

	key := row.SKU()
	if key == "" {
		key = row.ProductName()
	}
	if key == "" {
		return nil, nil
	}

	product, err := s.products.FindBySKUOrName(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

// learnResolved upserts auto patterns for attributes resolved by the
// pattern or reference tiers. Upsert failures are logged, not fatal.
func (s *Service) learnResolved(ctx context.Context, row matching.Row, device, size, productType matching.Resolution) {
	s.learnOne(ctx, row, device, matching.TargetDevice, "", "")
	s.learnOne(ctx, row, size, matching.TargetSize, device.Brand, device.Value)
	s.learnOne(ctx, row, productType, matching.TargetProductType, "", "")
}

func (s *Service) learnOne(ctx context.Context, row matching.Row, res matching.Resolution, kind matching.TargetKind, brand, deviceName string) {
	if res.Method != matching.MethodPattern && res.Method != matching.MethodReference {
		return
	}
	if res.Value == "" || res.NotApplicable {
		return
	}

	source := row[res.Column]
	if source == "" {
		source = row.ProductName()
	}

	patternText := matching.DerivePattern(kind, source, res.Value, deviceName)
	if patternText == "" {
		return
	}

	pattern, err := matching.NewLearnedPattern(kind, patternText, res.Value, matching.SourceAuto)
	if err != nil {
		return
	}
	pattern.Brand = brand
	pattern.DeviceName = deviceName

	if _, err := s.patterns.Upsert(ctx, pattern); err != nil {
		s.logger.Warn("auto pattern upsert failed",
			zap.String("kind", string(kind)),
			zap.String("value", res.Value),
			zap.Error(err),
		)
	}
}

// registerKeywordRule records a keyword rule from an observed row price
// so the next batch prices the same product type from the rule tier.
func (s *Service) registerKeywordRule(ctx context.Context, customerID uuid.UUID, keyword string, price decimal.Decimal) {
	if s.rules == nil || keyword == "" || !price.IsPositive() {
		return
	}

	created, err := s.rules.EnsureKeywordRule(ctx, customerID, keyword, price)
	if err != nil {
		s.logger.Warn("keyword rule registration failed",
			zap.String("customer_id", customerID.String()),
			zap.String("keyword", keyword),
			zap.Error(err),
		)
		return
	}
	if created {
		s.logger.Info("keyword rule registered",
			zap.String("customer_id", customerID.String()),
			zap.String("keyword", keyword),
			zap.String("price", price.String()),
		)
	}
}

// rowErrorFor maps a row failure onto a coded RowError
func rowErrorFor(index int, err error) RowError {
	switch {
	case errors.Is(err, shared.ErrUnpriceable):
		return NewRowError(index, "", ErrCodeRowUnpriceable, "no rule, master price or row price applies")
	default:
		return NewRowError(index, "", ErrCodeRowResolution, err.Error())
	}
}

var (
	quantityColumns  = []string{"個数", "数量", "quantity", "qty"}
	unitPriceColumns = []string{"単価", "価格", "unit_price", "price"}
	discountColumns  = []string{"割引", "値引", "discount"}
	orderDateColumns = []string{"注文日", "受注日", "order_date", "date"}
)

var orderDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// parseQuantity reads the line quantity, defaulting to 1
func parseQuantity(row matching.Row) int {
	raw := findColumn(row, quantityColumns)
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty < 1 {
		return 1
	}
	return qty
}

// parseMoneyColumn reads a yen amount, tolerating currency marks and
// thousands separators. Unparseable cells read as zero.
func parseMoneyColumn(row matching.Row, columns []string) decimal.Decimal {
	raw := strings.TrimSpace(findColumn(row, columns))
	if raw == "" {
		return decimal.Zero
	}

	cleaned := strings.NewReplacer("¥", "", "￥", "", "円", "", ",", "", " ", "").Replace(raw)
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// parseOrderDate reads the order date for rule window checks, falling
// back to today when the row carries none.
func parseOrderDate(row matching.Row) time.Time {
	raw := strings.TrimSpace(findColumn(row, orderDateColumns))
	if raw != "" {
		for _, layout := range orderDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Now()
}

// findColumn returns the first non-empty cell whose column name
// contains one of the candidates, case-insensitively. Columns are
// walked in sorted order so ties resolve the same way on every run.
func findColumn(row matching.Row, candidates []string) string {
	for _, want := range candidates {
		for _, col := range row.SortedKeys() {
			val := row[col]
			if val == "" {
				continue
			}
			if strings.Contains(strings.ToLower(col), strings.ToLower(want)) {
				return val
			}
		}
	}
	return ""
}
