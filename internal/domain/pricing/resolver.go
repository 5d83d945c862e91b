package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderhub/backend/internal/domain/shared"
)

// PriceSource names the tier that produced a unit price
type PriceSource string

// Price sources, in precedence order
const (
	SourceRule   PriceSource = "rule"
	SourceMaster PriceSource = "master"
	SourceRow    PriceSource = "row"
)

// ProductIdentity is what the pricing resolver knows about the line's
// product: the catalog product when one was matched, and the resolved
// product type for keyword rules. Either part may be empty.
type ProductIdentity struct {
	ProductID   *uuid.UUID
	ProductType string
}

// Quote is a resolved unit price with its provenance
type Quote struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Source    PriceSource     `json:"source"`
	RuleID    *uuid.UUID      `json:"rule_id,omitempty"`
}

// Resolver picks the unit price for an order line. Resolution is
// deterministic: rules beat the master price, a strictly positive master
// price beats the row price, and the row price is the last resort.
type Resolver struct {
	rules RuleRepository
}

// NewResolver creates a price resolver over the given rule store
func NewResolver(rules RuleRepository) *Resolver {
	return &Resolver{rules: rules}
}

// ResolvePrice returns the unit price for one line. Product rules shadow
// keyword rules: when the line matched a catalog product, keyword rules
// are consulted only if no product rule applies. Among applicable rules
// the winner is the highest priority, then the latest start date (open
// start dates last). A line with no rule, no positive master price and
// no positive row price cannot be priced and returns ErrUnpriceable.
func (r *Resolver) ResolvePrice(
	ctx context.Context,
	customerID uuid.UUID,
	identity ProductIdentity,
	qty int,
	orderDate time.Time,
	masterPrice decimal.Decimal,
	rowPrice decimal.Decimal,
) (*Quote, error) {
	var candidates []*PricingRule

	if identity.ProductID != nil && *identity.ProductID != uuid.Nil {
		rules, err := r.rules.FindApplicableProductRules(ctx, customerID, *identity.ProductID, qty, orderDate)
		if err != nil {
			return nil, err
		}
		candidates = rules
	}

	if len(candidates) == 0 && identity.ProductType != "" {
		rules, err := r.rules.FindApplicableKeywordRules(ctx, customerID, identity.ProductType, qty, orderDate)
		if err != nil {
			return nil, err
		}
		candidates = rules
	}

	if len(candidates) > 0 {
		sortRules(candidates)
		winner := candidates[0]
		id := winner.ID
		return &Quote{UnitPrice: winner.Price, Source: SourceRule, RuleID: &id}, nil
	}

	if masterPrice.IsPositive() {
		return &Quote{UnitPrice: masterPrice, Source: SourceMaster}, nil
	}

	if rowPrice.IsPositive() {
		return &Quote{UnitPrice: rowPrice, Source: SourceRow}, nil
	}

	return nil, shared.ErrUnpriceable
}

// sortRules orders candidates by priority desc, then start date desc
// with open start dates last. Repositories return this order already;
// sorting again keeps the tie-break deterministic regardless of the
// store behind the interface.
func sortRules(rules []*PricingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		si, sj := rules[i].StartDate, rules[j].StartDate
		switch {
		case si == nil && sj == nil:
			return false
		case si == nil:
			return false
		case sj == nil:
			return true
		default:
			return si.After(*sj)
		}
	})
}
