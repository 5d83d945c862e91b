package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderhub/backend/internal/domain/pricing"
)

// CreateRuleRequest creates a pricing rule. Exactly one of product_id
// and product_type_keyword must be set.
type CreateRuleRequest struct {
	CustomerID         uuid.UUID       `json:"customer_id" binding:"required"`
	ProductID          *uuid.UUID      `json:"product_id"`
	ProductTypeKeyword string          `json:"product_type_keyword" binding:"max=128"`
	Price              decimal.Decimal `json:"price" binding:"required"`
	MinQty             *int            `json:"min_qty" binding:"omitempty,min=1"`
	StartDate          *time.Time      `json:"start_date"`
	EndDate            *time.Time      `json:"end_date"`
	Priority           int             `json:"priority"`
	Note               string          `json:"note" binding:"max=255"`
}

// UpdateRuleRequest updates mutable rule fields
type UpdateRuleRequest struct {
	Price     *decimal.Decimal `json:"price"`
	MinQty    *int             `json:"min_qty" binding:"omitempty,min=1"`
	StartDate *time.Time       `json:"start_date"`
	EndDate   *time.Time       `json:"end_date"`
	Priority  *int             `json:"priority"`
	Note      *string          `json:"note" binding:"omitempty,max=255"`
}

// QuoteRequest asks for the unit price of a hypothetical order line
type QuoteRequest struct {
	CustomerID  uuid.UUID       `json:"customer_id" binding:"required"`
	ProductID   *uuid.UUID      `json:"product_id"`
	ProductType string          `json:"product_type" binding:"max=128"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	OrderDate   *time.Time      `json:"order_date"`
	MasterPrice decimal.Decimal `json:"master_price"`
	RowPrice    decimal.Decimal `json:"row_price"`
}

// RuleResponse represents a pricing rule in API responses
type RuleResponse struct {
	ID                 uuid.UUID       `json:"id"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	ProductID          *uuid.UUID      `json:"product_id,omitempty"`
	ProductTypeKeyword string          `json:"product_type_keyword,omitempty"`
	Price              decimal.Decimal `json:"price"`
	MinQty             *int            `json:"min_qty,omitempty"`
	StartDate          *time.Time      `json:"start_date,omitempty"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	Priority           int             `json:"priority"`
	Note               string          `json:"note,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToRuleResponse converts a pricing rule to a response DTO
func ToRuleResponse(r *pricing.PricingRule) *RuleResponse {
	return &RuleResponse{
		ID:                 r.ID,
		CustomerID:         r.CustomerID,
		ProductID:          r.ProductID,
		ProductTypeKeyword: r.ProductTypeKeyword,
		Price:              r.Price,
		MinQty:             r.MinQty,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Priority:           r.Priority,
		Note:               r.Note,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// ToRuleResponses converts a slice of pricing rules
func ToRuleResponses(rules []*pricing.PricingRule) []*RuleResponse {
	out := make([]*RuleResponse, len(rules))
	for i, r := range rules {
		out[i] = ToRuleResponse(r)
	}
	return out
}
