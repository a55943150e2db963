package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/util"
)

const (
	defaultContentPage = 20
	maxContentPage     = 100
)

// walletRequest is the body of the delete endpoints
type walletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// CreateContent registers content and its creator share
// POST /api/v1/content
func (h *Handlers) CreateContent(c *gin.Context) {
	var req engine.CreateContentInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.engine.CreateContent(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListContent returns live content, newest first
// GET /api/v1/content?limit=&offset=
func (h *Handlers) ListContent(c *gin.Context) {
	limit, offset := util.Pagination(c, defaultContentPage, maxContentPage)

	content, err := h.engine.ListContent(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content": content,
		"count":   len(content),
		"limit":   limit,
		"offset":  offset,
	})
}

// GetContent returns a content with its chain stats
// GET /api/v1/content/:id
func (h *Handlers) GetContent(c *gin.Context) {
	detail, err := h.engine.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DeleteContent soft-deletes a content. Only its creator may, and only once
// every share on it has been deleted.
// POST /api/v1/content/:id/delete
func (h *Handlers) DeleteContent(c *gin.Context) {
	var req walletRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.engine.DeleteContent(c.Request.Context(), c.Param("id"), req.WalletAddress); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Content deleted successfully. It will no longer appear in the explore page.",
	})
}

// GetShareTree rebuilds the share forest of a content
// GET /api/v1/content/:id/tree
func (h *Handlers) GetShareTree(c *gin.Context) {
	tree, err := h.engine.BuildShareTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// GetRevenueHistory lists a content's distributions, newest first
// GET /api/v1/content/:id/revenue?limit=
func (h *Handlers) GetRevenueHistory(c *gin.Context) {
	limit, _ := util.Pagination(c, defaultContentPage, maxContentPage)

	events, err := h.engine.RevenueHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
