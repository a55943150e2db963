package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	apierrors "github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"github.com/zfogg/hypechain/backend/internal/models"
	"github.com/zfogg/hypechain/backend/internal/repository"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"github.com/zfogg/hypechain/backend/internal/validation"
)

const topSharersLimit = 10

// CreateContentInput is the payload for CreateContent
type CreateContentInput struct {
	CreatorWallet string `json:"creator_wallet"`
	Title         string `json:"title"`
	MediaURL      string `json:"media_url"`
	NFTAddress    string `json:"nft_address"`
}

// CreateContentResult is the new content and its depth-0 creator share
type CreateContentResult struct {
	Content *models.Content `json:"content"`
	Share   *models.Share   `json:"share"`
}

// ContentStats summarizes a content's chain for its detail page
type ContentStats struct {
	Shares       int64           `json:"shares"`
	ActiveShares int64           `json:"active_shares"`
	Engagements  int64           `json:"engagements"`
	TopSharers   []*models.Share `json:"top_sharers"`
}

// ContentDetail is GetContent's result
type ContentDetail struct {
	Content *models.Content `json:"content"`
	Stats   ContentStats    `json:"stats"`
}

// CreateContent stores a content and seeds its creator share in one transaction
func (s *Service) CreateContent(ctx context.Context, in CreateContentInput) (result *CreateContentResult, err error) {
	ctx, span := telemetry.StartOperation(ctx, "content.create")
	defer func() { telemetry.EndOperation(span, err) }()

	wallet, err := validation.Wallet("creator_wallet", in.CreatorWallet, s.opts.StrictWallets)
	if err != nil {
		return nil, err
	}
	title, err := validation.Required("title", in.Title, validation.MaxTitleLength)
	if err != nil {
		return nil, err
	}
	mediaURL, err := validation.MediaURL("media_url", in.MediaURL)
	if err != nil {
		return nil, err
	}
	if len(in.NFTAddress) > validation.MaxWalletLength {
		return nil, apierrors.ValidationError("nft_address", "nft_address is too long")
	}

	content := &models.Content{
		CreatorWallet: wallet,
		Title:         title,
		MediaURL:      mediaURL,
		NFTAddress:    in.NFTAddress,
	}
	shareID := uuid.New().String()
	root := &models.Share{
		ID:            shareID,
		WalletAddress: wallet,
		ShareDepth:    0,
		ShareURL:      s.ShareURL(shareID),
	}

	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		if err := tx.Contents.Create(ctx, content); err != nil {
			return err
		}
		root.ContentID = content.ID
		if err := tx.Shares.Create(ctx, root); err != nil {
			return err
		}
		if err := tx.Contents.IncrementShares(ctx, content.ID); err != nil {
			return err
		}
		content.TotalShares++
		return nil
	})
	if err != nil {
		return nil, storeError("create content", err)
	}
	span.SetAttributes(telemetry.ContentAttr(content.ID))

	metrics.Get().Chain.ContentCreated.Inc()
	metrics.Get().Chain.SharesCreated.WithLabelValues("new").Inc()
	logger.Log.Info("Content created",
		logger.WithContentID(content.ID),
		logger.WithShareID(root.ID),
		logger.WithWallet(wallet),
	)

	result = &CreateContentResult{Content: content, Share: root}
	s.publish(live.MessageTypeContentCreated, content.ID, result)
	s.invalidateLeaderboard(ctx)
	return result, nil
}

// GetContent returns a content, deleted or not, with its chain stats
func (s *Service) GetContent(ctx context.Context, contentID string) (*ContentDetail, error) {
	contentID, err := validation.ID("content_id", contentID)
	if err != nil {
		return nil, err
	}

	content, err := s.store.Contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, storeError("load content", err)
	}
	active, err := s.store.Shares.CountActive(ctx, contentID)
	if err != nil {
		return nil, storeError("count shares", err)
	}
	engagements, err := s.store.Engagements.CountByContent(ctx, contentID)
	if err != nil {
		return nil, storeError("count engagements", err)
	}
	top, err := s.store.Shares.TopByContent(ctx, contentID, topSharersLimit)
	if err != nil {
		return nil, storeError("load top sharers", err)
	}

	return &ContentDetail{
		Content: content,
		Stats: ContentStats{
			Shares:       content.TotalShares,
			ActiveShares: active,
			Engagements:  engagements,
			TopSharers:   top,
		},
	}, nil
}

// ListContent is the discovery listing, newest first, without deleted content
func (s *Service) ListContent(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	contents, err := s.store.Contents.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError("list content", err)
	}
	return contents, nil
}

// DeleteContent soft-deletes a content. Only its creator may do so, and only
// once every share of it has been deleted.
func (s *Service) DeleteContent(ctx context.Context, contentID, wallet string) (err error) {
	ctx, span := telemetry.StartOperation(ctx, "content.delete", telemetry.ContentAttr(contentID))
	defer func() {
		telemetry.EndOperation(span, err)
		metrics.Get().Chain.SoftDeletes.WithLabelValues("content", outcome(err)).Inc()
	}()

	if contentID, err = validation.ID("content_id", contentID); err != nil {
		return err
	}
	if wallet, err = validation.Wallet("wallet_address", wallet, s.opts.StrictWallets); err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		content, err := tx.Contents.GetForUpdate(ctx, contentID)
		if err != nil {
			return err
		}
		if !content.OwnedBy(wallet) {
			return apierrors.Forbidden("only the creator can delete this content")
		}
		if content.IsDeleted {
			return apierrors.Conflict("content is already deleted")
		}
		active, err := tx.Shares.CountActive(ctx, contentID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apierrors.Conflict(fmt.Sprintf("content still has %d active shares", active)).
				WithDetails("every share must be deleted before the content can be removed")
		}
		return tx.Contents.SoftDelete(ctx, contentID, wallet, s.opts.Now())
	})
	if errors.Is(err, repository.ErrAlreadyDeleted) {
		return apierrors.Conflict("content is already deleted")
	}
	if err != nil {
		return storeError("delete content", err)
	}

	logger.Log.Info("Content deleted", logger.WithContentID(contentID), logger.WithWallet(wallet))
	s.publish(live.MessageTypeContentDeleted, contentID, map[string]string{"content_id": contentID, "deleted_by": wallet})
	s.invalidateLeaderboard(ctx)
	return nil
}

// outcome labels a metric with the API error code, or "ok"
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apierrors.From(err).Code)
}
