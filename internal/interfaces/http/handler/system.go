package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orderhub/backend/internal/infrastructure/config"
	"github.com/orderhub/backend/internal/infrastructure/persistence"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// SystemHandler exposes health and runtime info endpoints
type SystemHandler struct {
	BaseHandler
	cfg       *config.Config
	db        *persistence.Database
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(cfg *config.Config, db *persistence.Database) *SystemHandler {
	return &SystemHandler{cfg: cfg, db: db, startedAt: time.Now()}
}

// HealthResponse reports overall service health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// SystemInfoResponse reports static service metadata
type SystemInfoResponse struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	StartedAt   string `json:"started_at"`
}

// Ping answers liveness probes
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}

// Health checks service and database readiness
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
			return
		}
	}

	h.Success(c, resp)
}

// Info returns service metadata
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:        h.cfg.App.Name,
		Environment: h.cfg.App.Env,
		StartedAt:   h.startedAt.Format(time.RFC3339),
	})
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/ping", h.Ping)
		system.GET("/health", h.Health)
		system.GET("/info", h.Info)
	}
}
