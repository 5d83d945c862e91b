// Package pricing implements deterministic wholesale price resolution:
// customer-scoped pricing rules with quantity and date windows, falling
// back to the product master price and finally the price carried on the
// order row itself.
package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderhub/backend/internal/domain/shared"
)

// PricingRule binds a customer and a product identity to a unit price.
// Exactly one of ProductID and ProductTypeKeyword is set: product rules
// target one catalog product, keyword rules target every product whose
// type contains the keyword. MinQty, StartDate and EndDate are optional;
// an unset bound is open.
type PricingRule struct {
	shared.BaseAggregateRoot
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_pricing_rules_customer"`
	ProductID          *uuid.UUID      `gorm:"type:uuid;index"`
	ProductTypeKeyword string          `gorm:"type:varchar(128);index"`
	Price              decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MinQty             *int            `gorm:""`
	StartDate          *time.Time      `gorm:"index"`
	EndDate            *time.Time      `gorm:""`
	Priority           int             `gorm:"not null;default:0"`
	Note               string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for PricingRule
func (PricingRule) TableName() string {
	return "pricing_rules"
}

// NewProductRule creates a rule targeting one catalog product
func NewProductRule(customerID, productID uuid.UUID, price decimal.Decimal) (*PricingRule, error) {
	if customerID == uuid.Nil || productID == uuid.Nil || !price.IsPositive() {
		return nil, shared.ErrInvalidInput
	}
	return &PricingRule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		ProductID:         &productID,
		Price:             price,
	}, nil
}

// NewKeywordRule creates a rule targeting every product whose type
// contains the keyword
func NewKeywordRule(customerID uuid.UUID, keyword string, price decimal.Decimal) (*PricingRule, error) {
	keyword = strings.TrimSpace(keyword)
	if customerID == uuid.Nil || keyword == "" || !price.IsPositive() {
		return nil, shared.ErrInvalidInput
	}
	return &PricingRule{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		CustomerID:         customerID,
		ProductTypeKeyword: keyword,
		Price:              price,
	}, nil
}

// Validate checks the product-identity invariant: exactly one of
// ProductID and ProductTypeKeyword is set, and the price is positive.
func (r *PricingRule) Validate() error {
	hasProduct := r.ProductID != nil && *r.ProductID != uuid.Nil
	hasKeyword := strings.TrimSpace(r.ProductTypeKeyword) != ""
	if hasProduct == hasKeyword {
		return shared.ErrInvalidInput
	}
	if !r.Price.IsPositive() {
		return shared.ErrInvalidInput
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return shared.ErrInvalidInput
	}
	return nil
}

// AppliesTo reports whether the rule covers the given quantity and order
// date. Unset bounds are open; date bounds are inclusive.
func (r *PricingRule) AppliesTo(qty int, orderDate time.Time) bool {
	if r.MinQty != nil && qty < *r.MinQty {
		return false
	}
	if r.StartDate != nil && orderDate.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && orderDate.After(*r.EndDate) {
		return false
	}
	return true
}

// RuleRepository defines persistence for pricing rules. The applicable
// finders pre-filter on customer, identity, quantity and date window and
// return rules ordered by priority desc, start date desc with open start
// dates last.
type RuleRepository interface {
	Save(ctx context.Context, rule *PricingRule) error
	Update(ctx context.Context, rule *PricingRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*PricingRule, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*PricingRule, error)
	FindApplicableProductRules(ctx context.Context, customerID, productID uuid.UUID, qty int, orderDate time.Time) ([]*PricingRule, error)
	FindApplicableKeywordRules(ctx context.Context, customerID uuid.UUID, productType string, qty int, orderDate time.Time) ([]*PricingRule, error)
	ExistsKeywordRule(ctx context.Context, customerID uuid.UUID, keyword string) (bool, error)
}
