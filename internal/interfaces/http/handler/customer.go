package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	partnerapp "github.com/orderhub/backend/internal/application/partner"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// CustomerHandler handles wholesale customer endpoints
type CustomerHandler struct {
	BaseHandler
	service *partnerapp.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(service *partnerapp.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// Create creates a customer
func (h *CustomerHandler) Create(c *gin.Context) {
	var req partnerapp.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	customer, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, customer)
}

// Update updates a customer
func (h *CustomerHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req partnerapp.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	customer, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, customer)
}

// Get returns one customer by ID
func (h *CustomerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	customer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, customer)
}

// List returns a page of customers
func (h *CustomerHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	customers, err := h.service.List(c.Request.Context(), req.PageSize, req.Offset())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, customers)
}

// Deactivate marks a customer as inactive
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	customer, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, customer)
}

// AddIdentifier attaches a marketplace identifier to a customer
func (h *CustomerHandler) AddIdentifier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req partnerapp.AddIdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.service.AddIdentifier(c.Request.Context(), id, req); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ResolveByIdentifier finds the customer behind a marketplace identifier
func (h *CustomerHandler) ResolveByIdentifier(c *gin.Context) {
	marketplace := c.Query("marketplace")
	identifier := c.Query("identifier")
	if marketplace == "" || identifier == "" {
		h.BadRequest(c, "Query parameters 'marketplace' and 'identifier' are required")
		return
	}

	customer, err := h.service.ResolveByIdentifier(c.Request.Context(), marketplace, identifier)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, customer)
}

// RegisterRoutes registers customer routes
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/partners/customers")
	{
		customers.POST("", h.Create)
		customers.GET("", h.List)
		customers.GET("/resolve", h.ResolveByIdentifier)
		customers.GET("/:id", h.Get)
		customers.PUT("/:id", h.Update)
		customers.POST("/:id/deactivate", h.Deactivate)
		customers.POST("/:id/identifiers", h.AddIdentifier)
	}
}
