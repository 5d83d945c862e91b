package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	referenceapp "github.com/orderhub/backend/internal/application/reference"
)

// ReferenceHandler handles device reference master and design master
// administration endpoints
type ReferenceHandler struct {
	BaseHandler
	service *referenceapp.Service
}

// NewReferenceHandler creates a new ReferenceHandler
func NewReferenceHandler(service *referenceapp.Service) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

// UpsertEntry creates or replaces one reference entry
func (h *ReferenceHandler) UpsertEntry(c *gin.Context) {
	var req referenceapp.UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.service.UpsertEntry(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// ImportEntries bulk-loads reference entries, skipping bad rows
func (h *ReferenceHandler) ImportEntries(c *gin.Context) {
	var req referenceapp.ImportEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.service.ImportEntries(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListEntries returns reference entries, optionally filtered by brand
func (h *ReferenceHandler) ListEntries(c *gin.Context) {
	entries, err := h.service.ListEntries(c.Request.Context(), c.Query("brand"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// DeleteEntry removes a reference entry
func (h *ReferenceHandler) DeleteEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	if err := h.service.DeleteEntry(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// SizeLookupResponse is the wire form of a size lookup
type SizeLookupResponse struct {
	Brand        string `json:"brand"`
	DeviceName   string `json:"device_name"`
	SizeCategory string `json:"size_category"`
}

// LookupSize resolves the size category for a brand and device name
func (h *ReferenceHandler) LookupSize(c *gin.Context) {
	brand := c.Query("brand")
	device := c.Query("device")
	if brand == "" || device == "" {
		h.BadRequest(c, "Query parameters 'brand' and 'device' are required")
		return
	}

	size, err := h.service.LookupSize(c.Request.Context(), brand, device)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SizeLookupResponse{
		Brand:        brand,
		DeviceName:   device,
		SizeCategory: size,
	})
}

// UpsertDesign creates or replaces one design master entry
func (h *ReferenceHandler) UpsertDesign(c *gin.Context) {
	var req referenceapp.UpsertDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	design, err := h.service.UpsertDesign(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, design)
}

// ListDesigns returns all design master entries
func (h *ReferenceHandler) ListDesigns(c *gin.Context) {
	designs, err := h.service.ListDesigns(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, designs)
}

// DeleteDesign removes a design master entry
func (h *ReferenceHandler) DeleteDesign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid design ID format")
		return
	}

	if err := h.service.DeleteDesign(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers reference master routes
func (h *ReferenceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reference := rg.Group("/reference")
	{
		reference.POST("/entries", h.UpsertEntry)
		reference.POST("/entries/import", h.ImportEntries)
		reference.GET("/entries", h.ListEntries)
		reference.DELETE("/entries/:id", h.DeleteEntry)
		reference.GET("/sizes", h.LookupSize)

		reference.POST("/designs", h.UpsertDesign)
		reference.GET("/designs", h.ListDesigns)
		reference.DELETE("/designs/:id", h.DeleteDesign)
	}
}
