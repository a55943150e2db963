package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	apierrors "github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"github.com/zfogg/hypechain/backend/internal/models"
	"github.com/zfogg/hypechain/backend/internal/repository"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"github.com/zfogg/hypechain/backend/internal/validation"
	"go.uber.org/zap"
)

// CreateShareInput is the payload for CreateShare
type CreateShareInput struct {
	ContentID     string  `json:"content_id"`
	WalletAddress string  `json:"wallet_address"`
	ParentShareID *string `json:"parent_share_id"`
}

// CreateShareResult carries the wallet's share and whether this call made it
type CreateShareResult struct {
	Share *models.Share `json:"share"`
	IsNew bool          `json:"is_new"`
}

// RecordEngagementInput is the payload for RecordEngagement. ContentID is
// optional; when set it must match the share's content.
type RecordEngagementInput struct {
	ShareID        string `json:"share_id"`
	ContentID      string `json:"content_id"`
	EngagementType string `json:"engagement_type"`
	WalletAddress  string `json:"wallet_address"`
}

// CreateShare returns the wallet's live share for the content, creating it
// when absent. A parent that does not resolve to a share of the same content
// is dropped and the new share becomes a depth-0 root.
func (s *Service) CreateShare(ctx context.Context, in CreateShareInput) (result *CreateShareResult, err error) {
	ctx, span := telemetry.StartOperation(ctx, "share.create", telemetry.ContentAttr(in.ContentID))
	defer func() { telemetry.EndOperation(span, err) }()

	contentID, err := validation.ID("content_id", in.ContentID)
	if err != nil {
		return nil, err
	}
	wallet, err := validation.Wallet("wallet_address", in.WalletAddress, s.opts.StrictWallets)
	if err != nil {
		return nil, err
	}
	var parentID string
	if in.ParentShareID != nil {
		parentID = strings.TrimSpace(*in.ParentShareID)
	}

	errLostRace := errors.New("share created concurrently")

	shareID := uuid.New().String()
	share := &models.Share{
		ID:            shareID,
		ContentID:     contentID,
		WalletAddress: wallet,
		ShareURL:      s.ShareURL(shareID),
	}
	var existing *models.Share

	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		// the row lock orders share creation against DeleteContent
		content, err := tx.Contents.GetForUpdate(ctx, contentID)
		if err != nil {
			return err
		}
		if content.IsDeleted {
			return apierrors.Conflict("content has been deleted")
		}

		found, err := tx.Shares.FindActive(ctx, contentID, wallet)
		if err == nil {
			existing = found
			return nil
		}
		if !errors.Is(err, repository.ErrShareNotFound) {
			return err
		}

		if parentID != "" {
			parent, err := tx.Shares.GetByID(ctx, parentID)
			switch {
			case errors.Is(err, repository.ErrShareNotFound) || (err == nil && parent.ContentID != contentID):
				logger.Log.Warn("Parent share does not resolve, creating a root share",
					logger.WithContentID(contentID),
					zap.String("parent_share_id", parentID),
					logger.WithWallet(wallet),
				)
			case err != nil:
				return err
			default:
				share.ParentShareID = &parent.ID
				share.ShareDepth = parent.ShareDepth + 1
			}
		}

		if err := tx.Shares.Create(ctx, share); err != nil {
			if errors.Is(err, repository.ErrDuplicateShare) {
				return errLostRace
			}
			return err
		}
		return tx.Contents.IncrementShares(ctx, contentID)
	})

	if errors.Is(err, errLostRace) {
		// the unique index picked a winner; the aborted transaction is gone
		existing, err = s.store.Shares.FindActive(ctx, contentID, wallet)
	}
	if err != nil {
		return nil, storeError("create share", err)
	}

	if existing != nil {
		metrics.Get().Chain.SharesCreated.WithLabelValues("existing").Inc()
		span.SetAttributes(telemetry.ShareAttr(existing.ID))
		return &CreateShareResult{Share: existing, IsNew: false}, nil
	}

	metrics.Get().Chain.SharesCreated.WithLabelValues("new").Inc()
	span.SetAttributes(telemetry.ShareAttr(share.ID))
	logger.Log.Info("Share created",
		logger.WithContentID(contentID),
		logger.WithShareID(share.ID),
		logger.WithWallet(wallet),
		zap.Int("depth", share.ShareDepth),
	)

	result = &CreateShareResult{Share: share, IsNew: true}
	s.publish(live.MessageTypeShareCreated, contentID, share)
	s.invalidateLeaderboard(ctx)
	return result, nil
}

// GetShare looks up a single share, deleted or not
func (s *Service) GetShare(ctx context.Context, shareID string) (*models.Share, error) {
	shareID, err := validation.ID("share_id", shareID)
	if err != nil {
		return nil, err
	}
	share, err := s.store.Shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, storeError("load share", err)
	}
	return share, nil
}

// DeleteShare soft-deletes a share owned by wallet. Children keep their
// parent link and the share keeps its earnings and clicks.
func (s *Service) DeleteShare(ctx context.Context, shareID, wallet string) (err error) {
	ctx, span := telemetry.StartOperation(ctx, "share.delete", telemetry.ShareAttr(shareID))
	defer func() {
		telemetry.EndOperation(span, err)
		metrics.Get().Chain.SoftDeletes.WithLabelValues("share", outcome(err)).Inc()
	}()

	if shareID, err = validation.ID("share_id", shareID); err != nil {
		return err
	}
	if wallet, err = validation.Wallet("wallet_address", wallet, s.opts.StrictWallets); err != nil {
		return err
	}

	var contentID string
	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		share, err := tx.Shares.GetByID(ctx, shareID)
		if err != nil {
			return err
		}
		if !share.OwnedBy(wallet) {
			return apierrors.Forbidden("only the share owner can delete it")
		}
		if share.IsDeleted {
			return apierrors.Conflict("share is already deleted")
		}
		contentID = share.ContentID
		return tx.Shares.SoftDelete(ctx, shareID, wallet, s.opts.Now())
	})
	if errors.Is(err, repository.ErrAlreadyDeleted) {
		return apierrors.Conflict("share is already deleted")
	}
	if err != nil {
		return storeError("delete share", err)
	}

	logger.Log.Info("Share deleted",
		logger.WithShareID(shareID),
		logger.WithContentID(contentID),
		logger.WithWallet(wallet),
	)
	s.publish(live.MessageTypeShareDeleted, contentID, map[string]string{
		"share_id":   shareID,
		"content_id": contentID,
		"deleted_by": wallet,
	})
	s.invalidateLeaderboard(ctx)
	return nil
}

// RecordEngagement stores a view, click or reshare against a share. Clicks
// bump the share's click count; every engagement bumps the content total.
func (s *Service) RecordEngagement(ctx context.Context, in RecordEngagementInput) (engagement *models.Engagement, err error) {
	ctx, span := telemetry.StartOperation(ctx, "engagement.record", telemetry.ShareAttr(in.ShareID))
	defer func() { telemetry.EndOperation(span, err) }()

	shareID, err := validation.ID("share_id", in.ShareID)
	if err != nil {
		return nil, err
	}
	engagementType, err := validation.EngagementType(in.EngagementType)
	if err != nil {
		return nil, err
	}
	wallet, err := validation.OptionalWallet("wallet_address", in.WalletAddress, s.opts.StrictWallets)
	if err != nil {
		return nil, err
	}
	claimedContent := strings.TrimSpace(in.ContentID)

	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		share, err := tx.Shares.GetByID(ctx, shareID)
		if err != nil {
			return err
		}
		if claimedContent != "" && claimedContent != share.ContentID {
			return apierrors.ValidationError("content_id", "content_id does not match the share's content")
		}

		engagement = &models.Engagement{
			ShareID:        share.ID,
			ContentID:      share.ContentID,
			EngagementType: engagementType,
			WalletAddress:  wallet,
		}
		if err := tx.Engagements.Create(ctx, engagement); err != nil {
			return err
		}
		if engagementType == models.EngagementClick {
			if err := tx.Shares.IncrementClicks(ctx, share.ID); err != nil {
				return err
			}
		}
		return tx.Contents.IncrementEngagements(ctx, share.ContentID)
	})
	if err != nil {
		return nil, storeError("record engagement", err)
	}

	metrics.Get().Chain.Engagements.WithLabelValues(engagementType).Inc()
	logger.Log.Debug("Engagement recorded",
		logger.WithShareID(shareID),
		logger.WithContentID(engagement.ContentID),
		zap.String("type", engagementType),
	)
	s.publish(live.MessageTypeEngagementRecorded, engagement.ContentID, engagement)
	return engagement, nil
}
