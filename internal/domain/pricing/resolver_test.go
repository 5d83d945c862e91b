package pricing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend/internal/domain/shared"
)

// fakeRuleRepo is an in-memory RuleRepository. The applicable finders
// filter but deliberately do not sort, exercising the resolver's own
// tie-break.
type fakeRuleRepo struct {
	rules []*PricingRule
}

func (f *fakeRuleRepo) Save(_ context.Context, rule *PricingRule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *PricingRule) error {
	for i, r := range f.rules {
		if r.ID == rule.ID {
			f.rules[i] = rule
			return nil
		}
	}
	return shared.ErrNotFound
}

func (f *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (f *fakeRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*PricingRule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRuleRepo) FindByCustomer(_ context.Context, customerID uuid.UUID) ([]*PricingRule, error) {
	var out []*PricingRule
	for _, r := range f.rules {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) FindApplicableProductRules(_ context.Context, customerID, productID uuid.UUID, qty int, orderDate time.Time) ([]*PricingRule, error) {
	var out []*PricingRule
	for _, r := range f.rules {
		if r.CustomerID == customerID && r.ProductID != nil && *r.ProductID == productID && r.AppliesTo(qty, orderDate) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) FindApplicableKeywordRules(_ context.Context, customerID uuid.UUID, productType string, qty int, orderDate time.Time) ([]*PricingRule, error) {
	var out []*PricingRule
	for _, r := range f.rules {
		if r.CustomerID == customerID && r.ProductTypeKeyword != "" &&
			strings.Contains(productType, r.ProductTypeKeyword) && r.AppliesTo(qty, orderDate) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) ExistsKeywordRule(_ context.Context, customerID uuid.UUID, keyword string) (bool, error) {
	for _, r := range f.rules {
		if r.CustomerID == customerID && r.ProductTypeKeyword == keyword {
			return true, nil
		}
	}
	return false, nil
}

var _ RuleRepository = (*fakeRuleRepo)(nil)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestPricingRule_Validate(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()

	t.Run("product rule is valid", func(t *testing.T) {
		rule, err := NewProductRule(customerID, productID, price("350"))
		require.NoError(t, err)
		assert.NoError(t, rule.Validate())
	})

	t.Run("keyword rule is valid", func(t *testing.T) {
		rule, err := NewKeywordRule(customerID, "手帳型カバー", price("350"))
		require.NoError(t, err)
		assert.NoError(t, rule.Validate())
	})

	t.Run("both identities set is invalid", func(t *testing.T) {
		rule, err := NewProductRule(customerID, productID, price("350"))
		require.NoError(t, err)
		rule.ProductTypeKeyword = "手帳型カバー"
		assert.ErrorIs(t, rule.Validate(), shared.ErrInvalidInput)
	})

	t.Run("neither identity set is invalid", func(t *testing.T) {
		rule := &PricingRule{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(),
			CustomerID:        customerID,
			Price:             price("350"),
		}
		assert.ErrorIs(t, rule.Validate(), shared.ErrInvalidInput)
	})

	t.Run("non-positive price rejected at construction", func(t *testing.T) {
		_, err := NewKeywordRule(customerID, "手帳型カバー", price("0"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("inverted date window is invalid", func(t *testing.T) {
		rule, err := NewKeywordRule(customerID, "手帳型カバー", price("350"))
		require.NoError(t, err)
		rule.StartDate = datePtr(2026, 6, 1)
		rule.EndDate = datePtr(2026, 5, 1)
		assert.ErrorIs(t, rule.Validate(), shared.ErrInvalidInput)
	})
}

func TestPricingRule_AppliesTo(t *testing.T) {
	rule, err := NewKeywordRule(uuid.New(), "手帳型カバー", price("350"))
	require.NoError(t, err)
	rule.MinQty = intPtr(10)
	rule.StartDate = datePtr(2026, 1, 1)
	rule.EndDate = datePtr(2026, 12, 31)

	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	assert.True(t, rule.AppliesTo(10, at(2026, 6, 1)))
	assert.True(t, rule.AppliesTo(10, at(2026, 1, 1)), "start bound inclusive")
	assert.True(t, rule.AppliesTo(10, at(2026, 12, 31)), "end bound inclusive")
	assert.False(t, rule.AppliesTo(9, at(2026, 6, 1)), "below min qty")
	assert.False(t, rule.AppliesTo(10, at(2025, 12, 31)), "before window")
	assert.False(t, rule.AppliesTo(10, at(2027, 1, 1)), "after window")

	t.Run("unset bounds are open", func(t *testing.T) {
		open, err := NewKeywordRule(uuid.New(), "手帳型カバー", price("350"))
		require.NoError(t, err)
		assert.True(t, open.AppliesTo(1, at(1999, 1, 1)))
		assert.True(t, open.AppliesTo(100000, at(2999, 1, 1)))
	})
}

func TestResolver_ResolvePrice(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	productID := uuid.New()
	orderDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("rule beats master and row", func(t *testing.T) {
		repo := &fakeRuleRepo{}
		rule, err := NewProductRule(customerID, productID, price("320"))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, rule))

		quote, err := NewResolver(repo).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID}, 1, orderDate, price("400"), price("500"))
		require.NoError(t, err)
		assert.Equal(t, SourceRule, quote.Source)
		assert.True(t, quote.UnitPrice.Equal(price("320")))
		require.NotNil(t, quote.RuleID)
		assert.Equal(t, rule.ID, *quote.RuleID)
	})

	t.Run("higher priority wins", func(t *testing.T) {
		repo := &fakeRuleRepo{}
		low, err := NewProductRule(customerID, productID, price("340"))
		require.NoError(t, err)
		high, err := NewProductRule(customerID, productID, price("300"))
		require.NoError(t, err)
		high.Priority = 10
		require.NoError(t, repo.Save(ctx, low))
		require.NoError(t, repo.Save(ctx, high))

		quote, err := NewResolver(repo).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID}, 1, orderDate, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, quote.UnitPrice.Equal(price("300")))
	})

	t.Run("later start date breaks priority ties, open start last", func(t *testing.T) {
		repo := &fakeRuleRepo{}
		open, err := NewProductRule(customerID, productID, price("360"))
		require.NoError(t, err)
		older, err := NewProductRule(customerID, productID, price("350"))
		require.NoError(t, err)
		older.StartDate = datePtr(2026, 1, 1)
		newer, err := NewProductRule(customerID, productID, price("330"))
		require.NoError(t, err)
		newer.StartDate = datePtr(2026, 6, 1)
		require.NoError(t, repo.Save(ctx, open))
		require.NoError(t, repo.Save(ctx, older))
		require.NoError(t, repo.Save(ctx, newer))

		quote, err := NewResolver(repo).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID}, 1, orderDate, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, quote.UnitPrice.Equal(price("330")))
	})

	t.Run("product rules shadow keyword rules", func(t *testing.T) {
		repo := &fakeRuleRepo{}
		keyword, err := NewKeywordRule(customerID, "手帳型カバー", price("380"))
		require.NoError(t, err)
		keyword.Priority = 100
		productRule, err := NewProductRule(customerID, productID, price("320"))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, keyword))
		require.NoError(t, repo.Save(ctx, productRule))

		quote, err := NewResolver(repo).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID, ProductType: "手帳型カバー"},
			1, orderDate, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, quote.UnitPrice.Equal(price("320")))
	})

	t.Run("keyword rule applies without a catalog product", func(t *testing.T) {
		repo := &fakeRuleRepo{}
		keyword, err := NewKeywordRule(customerID, "手帳型カバー", price("380"))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, keyword))

		quote, err := NewResolver(repo).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductType: "手帳型カバー(ベルト無し)"},
			1, orderDate, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, SourceRule, quote.Source)
		assert.True(t, quote.UnitPrice.Equal(price("380")))
	})

	t.Run("rule outside qty window is skipped", func(t *testing.T) {
		repo := &fakeRuleRepo{}
		bulk, err := NewProductRule(customerID, productID, price("280"))
		require.NoError(t, err)
		bulk.MinQty = intPtr(50)
		require.NoError(t, repo.Save(ctx, bulk))

		quote, err := NewResolver(repo).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID}, 10, orderDate, price("400"), decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, SourceMaster, quote.Source)
		assert.True(t, quote.UnitPrice.Equal(price("400")))
	})

	t.Run("zero master price falls to row price", func(t *testing.T) {
		quote, err := NewResolver(&fakeRuleRepo{}).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID}, 1, orderDate, decimal.Zero, price("450"))
		require.NoError(t, err)
		assert.Equal(t, SourceRow, quote.Source)
		assert.True(t, quote.UnitPrice.Equal(price("450")))
	})

	t.Run("nothing to price is a hard error", func(t *testing.T) {
		_, err := NewResolver(&fakeRuleRepo{}).ResolvePrice(ctx, customerID,
			ProductIdentity{ProductID: &productID}, 1, orderDate, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrUnpriceable)
	})

	t.Run("negative row price cannot price the line", func(t *testing.T) {
		_, err := NewResolver(&fakeRuleRepo{}).ResolvePrice(ctx, customerID,
			ProductIdentity{}, 1, orderDate, decimal.Zero, price("-10"))
		assert.ErrorIs(t, err, shared.ErrUnpriceable)
	})
}

func TestCalculateLineAmounts(t *testing.T) {
	t.Run("half up", func(t *testing.T) {
		got := CalculateLineAmounts(price("350"), 3, price("0.10"), decimal.Zero, RoundHalfUp)
		assert.True(t, got.SubtotalExTax.Equal(price("1050")))
		assert.True(t, got.TaxAmount.Equal(price("105")))
		assert.True(t, got.TotalInTax.Equal(price("1155")))
	})

	t.Run("discount before tax", func(t *testing.T) {
		got := CalculateLineAmounts(price("350"), 3, price("0.10"), price("50"), RoundHalfUp)
		assert.True(t, got.SubtotalExTax.Equal(price("1000")))
		assert.True(t, got.TaxAmount.Equal(price("100")))
	})

	t.Run("round down truncates fractional yen", func(t *testing.T) {
		got := CalculateLineAmounts(price("333"), 1, price("0.10"), decimal.Zero, RoundDown)
		assert.True(t, got.TaxAmount.Equal(price("33")))
		assert.True(t, got.TotalInTax.Equal(price("366")))
	})

	t.Run("round up", func(t *testing.T) {
		got := CalculateLineAmounts(price("333"), 1, price("0.10"), decimal.Zero, RoundUp)
		assert.True(t, got.TaxAmount.Equal(price("34")))
		assert.True(t, got.TotalInTax.Equal(price("367")))
	})
}
