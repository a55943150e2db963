package engine

import (
	"context"
	"time"

	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"github.com/zfogg/hypechain/backend/internal/models"
	"github.com/zfogg/hypechain/backend/internal/sharetree"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"github.com/zfogg/hypechain/backend/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ShareTreeResult is a content with its rebuilt share forest
type ShareTreeResult struct {
	Content *models.Content `json:"content"`
	*sharetree.Tree
}

// BuildShareTree loads every share of a content, deleted ones included, and
// rebuilds the forest. Shares whose stored depth disagrees with their tree
// level are logged; the tree level wins.
func (s *Service) BuildShareTree(ctx context.Context, contentID string) (result *ShareTreeResult, err error) {
	ctx, span := telemetry.StartOperation(ctx, "tree.build", telemetry.ContentAttr(contentID))
	defer func() { telemetry.EndOperation(span, err) }()

	if contentID, err = validation.ID("content_id", contentID); err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := s.store.Contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, storeError("load content", err)
	}
	shares, err := s.store.Shares.ListByContent(ctx, contentID)
	if err != nil {
		return nil, storeError("load shares", err)
	}

	tree := sharetree.Build(shares)
	metrics.Get().Chain.TreeBuildDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("hypechain.tree.shares", tree.TotalShares),
		attribute.Int("hypechain.tree.max_depth", tree.MaxDepth),
	)

	if mismatched := tree.DepthMismatches(); len(mismatched) > 0 {
		metrics.Get().Chain.TreeDepthMismatch.Add(float64(len(mismatched)))
		for _, node := range mismatched {
			logger.Log.Warn("Stored share depth disagrees with tree level",
				logger.WithContentID(contentID),
				logger.WithShareID(node.Share.ID),
				zap.Int("share_depth", node.Share.ShareDepth),
				zap.Int("level", node.Level),
			)
		}
	}

	return &ShareTreeResult{Content: content, Tree: tree}, nil
}
