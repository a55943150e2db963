package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/util"
)

// GetWalletAnalytics returns a wallet's earnings dashboard
// GET /api/v1/analytics/:wallet
func (h *Handlers) GetWalletAnalytics(c *gin.Context) {
	result, err := h.engine.GetWalletAnalytics(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProfile returns a wallet's public profile
// GET /api/v1/profile/:wallet
func (h *Handlers) GetProfile(c *gin.Context) {
	profile, err := h.engine.GetProfile(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetLeaderboard returns the top earners, viral content and top revenue lists
// GET /api/v1/leaderboard
func (h *Handlers) GetLeaderboard(c *gin.Context) {
	board, err := h.engine.GetLeaderboard(c.Request.Context())
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// GetRecentActivity returns the merged share and engagement feed
// GET /api/v1/activity/recent?limit=
func (h *Handlers) GetRecentActivity(c *gin.Context) {
	limit := util.ParseInt(c.Query("limit"), 0)

	activities, err := h.engine.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
