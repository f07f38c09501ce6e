package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentals/backend/internal/infrastructure/logger"
	"github.com/rentals/backend/internal/interfaces/http/dto"
	"github.com/rentals/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// PingFunc checks one dependency
type PingFunc func(ctx context.Context) error

// HealthHandler reports dependency health
type HealthHandler struct {
	BaseHandler
	database PingFunc
	redis    PingFunc
}

// NewHealthHandler creates a HealthHandler. A nil redis check leaves Redis
// out of the report.
func NewHealthHandler(database, redis PingFunc) *HealthHandler {
	return &HealthHandler{database: database, redis: redis}
}

// Check handles GET /health. The database is required; Redis only
// degrades the report because the service falls back to in-memory stores.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "healthy", Database: "up"}
	status := http.StatusOK

	if err := h.database(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Database health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		resp.Redis = "up"
		if err := h.redis(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Redis health check failed", zap.Error(err))
			resp.Redis = "down"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		}
	}

	if status != http.StatusOK {
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, "Database unavailable", middleware.GetRequestID(c))
		body.Data = resp
		c.JSON(status, body)
		return
	}
	h.Success(c, resp)
}
