package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/revenue"
	"github.com/zfogg/hypechain/backend/internal/util"
)

// IdempotencyKeyHeader carries the distribution request id
const IdempotencyKeyHeader = "Idempotency-Key"

// distributeRequest keeps the amount as a json.Number so that fractions and
// out-of-range values reach revenue.ParseAmount instead of silently rounding
// through float64
type distributeRequest struct {
	ContentID      string      `json:"content_id"`
	AmountLamports json.Number `json:"amount_lamports"`
	RequestID      string      `json:"request_id"`
}

// DistributeRevenue splits an amount across a content's share chain
// POST /api/v1/revenue
func (h *Handlers) DistributeRevenue(c *gin.Context) {
	var req distributeRequest
	if !bindJSON(c, &req) {
		return
	}

	amount, err := revenue.ParseAmount(req.AmountLamports.String())
	if err != nil {
		util.RespondWithAPIError(c, errors.ValidationError("amount_lamports", err.Error()))
		return
	}

	requestID := c.GetHeader(IdempotencyKeyHeader)
	if requestID == "" {
		requestID = req.RequestID
	}

	result, err := h.engine.DistributeRevenue(c.Request.Context(), engine.DistributeInput{
		ContentID:      req.ContentID,
		AmountLamports: amount,
		RequestID:      requestID,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                    true,
		"event_id":                   result.EventID,
		"content_id":                 result.ContentID,
		"request_id":                 result.RequestID,
		"amount_distributed":         result.AmountDistributed,
		"remainder_given_to_creator": result.RemainderGivenToCreator,
		"max_depth":                  result.MaxDepth,
		"total_revenue_lamports":     result.TotalRevenueLamports,
		"distributions":              result.Distributions,
		"replayed":                   result.Replayed,
	})
}
