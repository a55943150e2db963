package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"go.uber.org/zap"
)

// Health reports process liveness and database reachability
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status := gin.H{
		"status":    "ok",
		"service":   "hypechain",
		"timestamp": time.Now().UTC(),
	}

	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			logger.Log.Warn("Health check failed", zap.Error(err))
			status["status"] = "degraded"
			status["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
