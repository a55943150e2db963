package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/util"
)

// CreateShare creates the wallet's share of a content, or returns the one it
// already has
// POST /api/v1/shares
func (h *Handlers) CreateShare(c *gin.Context) {
	var req engine.CreateShareInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.engine.CreateShare(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	if !result.IsNew {
		c.JSON(http.StatusOK, gin.H{
			"share":   result.Share,
			"is_new":  false,
			"message": "Share already exists for this wallet",
		})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetShare returns one share, for the share landing page
// GET /api/v1/shares/:id
func (h *Handlers) GetShare(c *gin.Context) {
	share, err := h.engine.GetShare(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"share": share})
}

// DeleteShare soft-deletes a share on behalf of its owner
// POST /api/v1/shares/:id/delete
func (h *Handlers) DeleteShare(c *gin.Context) {
	var req walletRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.engine.DeleteShare(c.Request.Context(), c.Param("id"), req.WalletAddress); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Share deleted successfully",
	})
}

// RecordEngagement logs a view, click or share against a share link
// POST /api/v1/engagements
func (h *Handlers) RecordEngagement(c *gin.Context) {
	var req engine.RecordEngagementInput
	if !bindJSON(c, &req) {
		return
	}

	engagement, err := h.engine.RecordEngagement(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"engagement": engagement})
}
