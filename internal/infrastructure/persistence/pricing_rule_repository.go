package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderhub/backend/internal/domain/pricing"
	"github.com/orderhub/backend/internal/domain/shared"
)

// GormRuleRepository implements pricing.RuleRepository using GORM
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

var _ pricing.RuleRepository = (*GormRuleRepository)(nil)

// Save persists a new rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *pricing.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// Update persists rule changes
func (r *GormRuleRepository) Update(ctx context.Context, rule *pricing.PricingRule) error {
	result := r.db.WithContext(ctx).Model(rule).
		Where("id = ?", rule.ID).
		Updates(map[string]interface{}{
			"price":      rule.Price,
			"min_qty":    rule.MinQty,
			"start_date": rule.StartDate,
			"end_date":   rule.EndDate,
			"priority":   rule.Priority,
			"note":       rule.Note,
			"version":    rule.Version,
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

// Delete removes a rule
func (r *GormRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&pricing.PricingRule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a rule by its ID
func (r *GormRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.PricingRule, error) {
	var rule pricing.PricingRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindByCustomer returns every rule of one customer
func (r *GormRuleRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*pricing.PricingRule, error) {
	var rules []*pricing.PricingRule
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("priority DESC, created_at").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindApplicableProductRules returns the product rules covering the
// given line. The resolver re-sorts, so plain priority order suffices.
func (r *GormRuleRepository) FindApplicableProductRules(ctx context.Context, customerID, productID uuid.UUID, qty int, orderDate time.Time) ([]*pricing.PricingRule, error) {
	var rules []*pricing.PricingRule
	if err := r.applicableScope(ctx, customerID, qty, orderDate).
		Where("product_id = ?", productID).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindApplicableKeywordRules returns the keyword rules whose keyword is
// contained in the resolved product type
func (r *GormRuleRepository) FindApplicableKeywordRules(ctx context.Context, customerID uuid.UUID, productType string, qty int, orderDate time.Time) ([]*pricing.PricingRule, error) {
	var rules []*pricing.PricingRule
	if err := r.applicableScope(ctx, customerID, qty, orderDate).
		Where("product_id IS NULL AND product_type_keyword <> ''").
		Where("? LIKE '%' || product_type_keyword || '%'", productType).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ExistsKeywordRule reports whether the customer already has a rule for
// the exact keyword
func (r *GormRuleRepository) ExistsKeywordRule(ctx context.Context, customerID uuid.UUID, keyword string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&pricing.PricingRule{}).
		Where("customer_id = ? AND product_type_keyword = ?", customerID, keyword).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRuleRepository) applicableScope(ctx context.Context, customerID uuid.UUID, qty int, orderDate time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Where("min_qty IS NULL OR min_qty <= ?", qty).
		Where("start_date IS NULL OR start_date <= ?", orderDate).
		Where("end_date IS NULL OR end_date >= ?", orderDate).
		Order("priority DESC")
}
