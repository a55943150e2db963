// Package handlers exposes the attribution engine over HTTP.
package handlers

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/util"
)

// HealthCheck reports whether a backing dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	engine *engine.Service
	live   *live.Handler
	health HealthCheck
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *engine.Service) *Handlers {
	return &Handlers{engine: svc}
}

// SetLiveHandler enables the websocket activity feed
func (h *Handlers) SetLiveHandler(lh *live.Handler) {
	h.live = lh
}

// SetHealthCheck sets the database probe used by /health
func (h *Handlers) SetHealthCheck(check HealthCheck) {
	h.health = check
}

// RegisterRoutes mounts the v1 API on api (normally the /api/v1 group)
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	content := api.Group("/content")
	{
		content.POST("", h.CreateContent)
		content.GET("", h.ListContent)
		content.GET("/:id", h.GetContent)
		content.POST("/:id/delete", h.DeleteContent)
		content.GET("/:id/tree", h.GetShareTree)
		content.GET("/:id/revenue", h.GetRevenueHistory)
	}

	shares := api.Group("/shares")
	{
		shares.POST("", h.CreateShare)
		shares.GET("/:id", h.GetShare)
		shares.POST("/:id/delete", h.DeleteShare)
	}

	api.POST("/engagements", h.RecordEngagement)
	api.POST("/revenue", h.DistributeRevenue)

	api.GET("/analytics/:wallet", h.GetWalletAnalytics)
	api.GET("/profile/:wallet", h.GetProfile)
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/activity/recent", h.GetRecentActivity)

	if h.live != nil {
		api.GET("/ws/activity", h.live.Serve)
	}
}

// bindJSON decodes the request body into dst. Syntax errors and empty bodies
// are answered with BAD_REQUEST and false is returned.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			util.RespondWithAPIError(c, errors.BadRequest("request body is required"))
			return false
		}
		util.RespondWithAPIError(c, errors.BadRequest("invalid JSON body").WithDetails(err.Error()))
		return false
	}
	return true
}
