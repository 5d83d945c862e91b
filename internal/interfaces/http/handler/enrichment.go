package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	enrichmentapp "github.com/orderhub/backend/internal/application/enrichment"
	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// idempotencyTTL is how long a batch submission key blocks replays
const idempotencyTTL = 24 * time.Hour

// EnrichmentHandler handles row and batch resolution endpoints
type EnrichmentHandler struct {
	BaseHandler
	service     *enrichmentapp.Service
	submissions shared.IdempotencyStore
}

// NewEnrichmentHandler creates a new EnrichmentHandler. submissions may
// be nil to disable duplicate batch detection.
func NewEnrichmentHandler(service *enrichmentapp.Service, submissions shared.IdempotencyStore) *EnrichmentHandler {
	return &EnrichmentHandler{
		service:     service,
		submissions: submissions,
	}
}

// ResolveRowRequest carries one raw export row for resolution
type ResolveRowRequest struct {
	CustomerID string            `json:"customer_id" binding:"required,uuid"`
	Row        map[string]string `json:"row" binding:"required"`
}

// ResolveBatchRequest carries a whole export for resolution
type ResolveBatchRequest struct {
	CustomerID string              `json:"customer_id" binding:"required,uuid"`
	Rows       []map[string]string `json:"rows" binding:"required,min=1"`
}

// BatchResponse is the wire form of a batch result
type BatchResponse struct {
	Rows       []*enrichmentapp.EnrichedRow `json:"rows"`
	TotalRows  int                          `json:"total_rows"`
	PricedRows int                          `json:"priced_rows"`
	Errors     []enrichmentapp.RowError     `json:"errors"`
	Truncated  bool                         `json:"errors_truncated,omitempty"`
}

// ResolveRow resolves and prices a single order line
func (h *EnrichmentHandler) ResolveRow(c *gin.Context) {
	var req ResolveRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	enriched, err := h.service.ResolveRow(c.Request.Context(), customerID, 0, matching.Row(req.Row))
	if err != nil {
		// A priced failure still carries the partial enrichment;
		// the client decides what to do with it.
		rowErr := enrichmentapp.NewRowError(0, "", enrichmentapp.ErrCodeRowUnpriceable, err.Error())
		h.UnprocessableEntity(c, dto.ErrCodeUnpriceable, rowErr.Error())
		return
	}

	h.Success(c, enriched)
}

// ResolveBatch resolves and prices a whole export. A repeated
// Idempotency-Key is rejected so a retried upload cannot double-learn
// patterns or double-register rules.
func (h *EnrichmentHandler) ResolveBatch(c *gin.Context) {
	var req ResolveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	if key := c.GetHeader("Idempotency-Key"); key != "" && h.submissions != nil {
		fresh, err := h.submissions.MarkProcessed(c.Request.Context(), req.CustomerID+":"+key, idempotencyTTL)
		if err != nil {
			h.InternalError(c, "Failed to check submission key")
			return
		}
		if !fresh {
			h.Conflict(c, dto.ErrCodeDuplicateSubmission, "This batch was already submitted")
			return
		}
	}

	rows := make([]matching.Row, len(req.Rows))
	for i, r := range req.Rows {
		rows[i] = matching.Row(r)
	}

	result, err := h.service.ResolveBatch(c.Request.Context(), customerID, rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBatchResponse(result))
}

// RegisterRoutes registers enrichment routes
func (h *EnrichmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	enrichment := rg.Group("/enrichment")
	{
		enrichment.POST("/rows/resolve", h.ResolveRow)
		enrichment.POST("/batches/resolve", h.ResolveBatch)
	}
}

// toBatchResponse flattens the error collection for the wire
func toBatchResponse(result *enrichmentapp.BatchResult) BatchResponse {
	resp := BatchResponse{
		Rows:       result.Rows,
		TotalRows:  result.TotalRows,
		PricedRows: result.PricedRows,
		Errors:     []enrichmentapp.RowError{},
	}
	if result.Errors != nil {
		resp.Errors = result.Errors.Errors()
		resp.Truncated = result.Errors.IsTruncated()
	}
	return resp
}
