// Package pricing exposes pricing rule administration and price quoting
// on top of the deterministic pricing resolver.
package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/application/enrichment"
	"github.com/orderhub/backend/internal/domain/pricing"
)

// AutoRegisteredNote marks rules created by batch auto-registration
const AutoRegisteredNote = "auto-registered from batch row price"

// Service handles pricing rule operations and quoting
type Service struct {
	rules    pricing.RuleRepository
	resolver *pricing.Resolver
	logger   *zap.Logger
}

// NewService creates a new pricing service
func NewService(rules pricing.RuleRepository, logger *zap.Logger) *Service {
	return &Service{
		rules:    rules,
		resolver: pricing.NewResolver(rules),
		logger:   logger,
	}
}

// CreateRule creates a product or keyword rule
func (s *Service) CreateRule(ctx context.Context, req CreateRuleRequest) (*RuleResponse, error) {
	var (
		rule *pricing.PricingRule
		err  error
	)
	if req.ProductID != nil && *req.ProductID != uuid.Nil {
		rule, err = pricing.NewProductRule(req.CustomerID, *req.ProductID, req.Price)
	} else {
		rule, err = pricing.NewKeywordRule(req.CustomerID, req.ProductTypeKeyword, req.Price)
	}
	if err != nil {
		return nil, err
	}

	rule.MinQty = req.MinQty
	rule.StartDate = req.StartDate
	rule.EndDate = req.EndDate
	rule.Priority = req.Priority
	rule.Note = req.Note

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}

	return ToRuleResponse(rule), nil
}

// UpdateRule updates mutable fields of a rule
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, req UpdateRuleRequest) (*RuleResponse, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Price != nil {
		rule.Price = *req.Price
	}
	if req.MinQty != nil {
		rule.MinQty = req.MinQty
	}
	if req.StartDate != nil {
		rule.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		rule.EndDate = req.EndDate
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Note != nil {
		rule.Note = *req.Note
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	rule.IncrementVersion()
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}

	return ToRuleResponse(rule), nil
}

// DeleteRule removes a rule
func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if _, err := s.rules.FindByID(ctx, id); err != nil {
		return err
	}
	return s.rules.Delete(ctx, id)
}

// GetRule returns one rule by ID
func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*RuleResponse, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// ListRules returns every rule of one customer
func (s *Service) ListRules(ctx context.Context, customerID uuid.UUID) ([]*RuleResponse, error) {
	rules, err := s.rules.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return ToRuleResponses(rules), nil
}

// EnsureKeywordRule registers a keyword rule unless the customer already
// has one for the keyword. It reports whether a rule was created.
func (s *Service) EnsureKeywordRule(ctx context.Context, customerID uuid.UUID, keyword string, price decimal.Decimal) (bool, error) {
	exists, err := s.rules.ExistsKeywordRule(ctx, customerID, keyword)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	rule, err := pricing.NewKeywordRule(customerID, keyword, price)
	if err != nil {
		return false, err
	}
	rule.Note = AutoRegisteredNote

	if err := s.rules.Save(ctx, rule); err != nil {
		return false, err
	}

	s.logger.Info("keyword rule auto-registered",
		zap.String("customer_id", customerID.String()),
		zap.String("keyword", keyword),
		zap.String("price", price.String()),
	)
	return true, nil
}

// Quote resolves the unit price for a hypothetical order line
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	orderDate := time.Now()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}

	identity := pricing.ProductIdentity{
		ProductID:   req.ProductID,
		ProductType: req.ProductType,
	}

	quote, err := s.resolver.ResolvePrice(ctx, req.CustomerID, identity, req.Quantity, orderDate, req.MasterPrice, req.RowPrice)
	if err != nil {
		return nil, err
	}
	return quote, nil
}

var _ enrichment.RuleRegistrar = (*Service)(nil)
