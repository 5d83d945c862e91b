package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pricingapp "github.com/orderhub/backend/internal/application/pricing"
)

// PricingHandler handles pricing rule and quote endpoints
type PricingHandler struct {
	BaseHandler
	service *pricingapp.Service
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service *pricingapp.Service) *PricingHandler {
	return &PricingHandler{service: service}
}

// CreateRule creates a pricing rule
func (h *PricingHandler) CreateRule(c *gin.Context) {
	var req pricingapp.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, rule)
}

// UpdateRule updates a pricing rule
func (h *PricingHandler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	var req pricingapp.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rule)
}

// GetRule returns one pricing rule
func (h *PricingHandler) GetRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	rule, err := h.service.GetRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rule)
}

// ListRules returns a customer's pricing rules
func (h *PricingHandler) ListRules(c *gin.Context) {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		h.BadRequest(c, "Query parameter 'customer_id' must be a UUID")
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rules)
}

// DeleteRule removes a pricing rule
func (h *PricingHandler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Quote prices one hypothetical order line without touching any batch
func (h *PricingHandler) Quote(c *gin.Context) {
	var req pricingapp.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, quote)
}

// RegisterRoutes registers pricing routes
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pricing := rg.Group("/pricing")
	{
		pricing.POST("/rules", h.CreateRule)
		pricing.GET("/rules", h.ListRules)
		pricing.GET("/rules/:id", h.GetRule)
		pricing.PUT("/rules/:id", h.UpdateRule)
		pricing.DELETE("/rules/:id", h.DeleteRule)
		pricing.POST("/quote", h.Quote)
	}
}
