package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medparse/internal/config"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	// The pipeline cannot do useful work without its upstream credentials.
	if h.cfg.Extract.Provider != "local" && h.cfg.Extract.MinerU.Token == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "extraction token not configured"})
		return
	}
	if h.cfg.Zhipu.APIKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "structuring api key not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
