package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	patternsapp "github.com/orderhub/backend/internal/application/patterns"
)

// PatternHandler handles learned pattern administration endpoints
type PatternHandler struct {
	BaseHandler
	service *patternsapp.Service
}

// NewPatternHandler creates a new PatternHandler
func NewPatternHandler(service *patternsapp.Service) *PatternHandler {
	return &PatternHandler{service: service}
}

// LearnCorrection records an operator correction as a manual pattern
func (h *PatternHandler) LearnCorrection(c *gin.Context) {
	var req patternsapp.LearnCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	pattern, err := h.service.LearnCorrection(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, pattern)
}

// List returns learned patterns of one kind
func (h *PatternHandler) List(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		h.BadRequest(c, "Query parameter 'kind' is required")
		return
	}

	patterns, err := h.service.List(c.Request.Context(), kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, patterns)
}

// Get returns one learned pattern by ID
func (h *PatternHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid pattern ID format")
		return
	}

	pattern, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pattern)
}

// Delete removes a learned pattern
func (h *PatternHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid pattern ID format")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Statistics returns usage statistics for one pattern kind
func (h *PatternHandler) Statistics(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		h.BadRequest(c, "Query parameter 'kind' is required")
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// RegisterRoutes registers pattern routes
func (h *PatternHandler) RegisterRoutes(rg *gin.RouterGroup) {
	patterns := rg.Group("/matching/patterns")
	{
		patterns.POST("", h.LearnCorrection)
		patterns.GET("", h.List)
		patterns.GET("/statistics", h.Statistics)
		patterns.GET("/:id", h.Get)
		patterns.DELETE("/:id", h.Delete)
	}
}
