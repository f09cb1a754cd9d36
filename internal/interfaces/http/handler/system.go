package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hrms/backend/internal/infrastructure/config"
	"github.com/hrms/backend/internal/interfaces/http/apibase"
)

// SystemHandler handles health and frontend bootstrap endpoints
type SystemHandler struct {
	BaseHandler
	config    *config.Config
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(cfg *config.Config) *SystemHandler {
	return &SystemHandler{
		config:    cfg,
		startedAt: time.Now(),
	}
}

// Health reports liveness.
// GET /api/v1/health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status": "ok",
		"app":    h.config.App.Name,
		"env":    h.config.App.Env,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// WebConfig resolves the API base URL for the dashboard. The page
// reports where it was loaded from via query parameters.
// GET /api/v1/system/web-config
func (h *SystemHandler) WebConfig(c *gin.Context) {
	baseURL := apibase.Resolve(apibase.Inputs{
		EnvOverride: h.config.Web.APIBaseURL,
		PageHost:    c.Query("host"),
		PageOrigin:  c.Query("origin"),
	})

	h.Success(c, gin.H{
		"api_base_url": baseURL,
		"app_name":     h.config.App.Name,
		"environment":  h.config.App.Env,
	})
}
