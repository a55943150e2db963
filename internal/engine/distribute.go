package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	apierrors "github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"github.com/zfogg/hypechain/backend/internal/models"
	"github.com/zfogg/hypechain/backend/internal/repository"
	"github.com/zfogg/hypechain/backend/internal/revenue"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"github.com/zfogg/hypechain/backend/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxRequestIDLength = 128

// DistributeInput is the payload for DistributeRevenue. RequestID makes the
// call idempotent: a replay with the same content and amount returns the
// stored result instead of paying twice.
type DistributeInput struct {
	ContentID      string `json:"content_id"`
	AmountLamports int64  `json:"amount_lamports"`
	RequestID      string `json:"request_id"`
}

// DistributionResult reports the payouts of one distribution
type DistributionResult struct {
	EventID                 string           `json:"event_id"`
	ContentID               string           `json:"content_id"`
	RequestID               string           `json:"request_id,omitempty"`
	Distributions           []revenue.Payout `json:"distributions"`
	AmountDistributed       int64            `json:"amount_distributed"`
	RemainderGivenToCreator int64            `json:"remainder_given_to_creator"`
	MaxDepth                int              `json:"max_depth"`
	TotalRevenueLamports    int64            `json:"total_revenue_lamports"`
	Replayed                bool             `json:"replayed"`
}

var errDuplicateRequest = errors.New("request id applied concurrently")

// DistributeRevenue splits amount across every share of a content and applies
// the payouts, the content total and a ledger entry in one transaction.
// Same-content calls are serialized in process; across processes the content
// row lock and compare-and-swap writes catch lost updates, and the whole
// transaction is retried.
func (s *Service) DistributeRevenue(ctx context.Context, in DistributeInput) (result *DistributionResult, err error) {
	ctx, span := telemetry.StartOperation(ctx, "revenue.distribute",
		telemetry.ContentAttr(in.ContentID),
		telemetry.AmountAttr(in.AmountLamports),
	)
	start := time.Now()
	defer func() {
		telemetry.EndOperation(span, err)
		metrics.Get().Chain.DistributionDuration.Observe(time.Since(start).Seconds())
		switch {
		case err == nil && result.Replayed:
			metrics.Get().Chain.Distributions.WithLabelValues("replayed").Inc()
		case err == nil:
			metrics.Get().Chain.Distributions.WithLabelValues("applied").Inc()
		case apierrors.HasCode(err, apierrors.ErrDependency):
			metrics.Get().Chain.Distributions.WithLabelValues("failed").Inc()
		default:
			metrics.Get().Chain.Distributions.WithLabelValues("rejected").Inc()
		}
	}()

	contentID, err := validation.ID("content_id", in.ContentID)
	if err != nil {
		return nil, err
	}
	if err := revenue.ValidateAmount(in.AmountLamports); err != nil {
		return nil, apierrors.ValidationError("amount_lamports", err.Error())
	}
	requestID := strings.TrimSpace(in.RequestID)
	if len(requestID) > maxRequestIDLength {
		return nil, apierrors.ValidationError("request_id", "request_id is too long")
	}

	unlock := s.locks.Lock(contentID)
	defer unlock()

	if requestID != "" {
		if replay, err := s.replay(ctx, requestID, contentID, in.AmountLamports); replay != nil || err != nil {
			return replay, err
		}
	}

	for attempt := 1; ; attempt++ {
		result, err = s.applyDistribution(ctx, contentID, in.AmountLamports, requestID)
		if !errors.Is(err, repository.ErrConcurrentUpdate) || attempt >= s.opts.DistributionAttempts {
			break
		}
		metrics.Get().Chain.DistributionRetries.Inc()
		logger.Log.Warn("Distribution lost a concurrent update, retrying",
			logger.WithContentID(contentID),
			zap.Int("attempt", attempt),
		)
	}

	if errors.Is(err, errDuplicateRequest) {
		replay, rerr := s.replay(ctx, requestID, contentID, in.AmountLamports)
		if rerr != nil {
			return nil, rerr
		}
		if replay != nil {
			return replay, nil
		}
	}
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return nil, apierrors.Conflict("content revenue changed concurrently, retry the request")
	}
	if err != nil {
		return nil, storeError("distribute revenue", err)
	}

	chain := metrics.Get().Chain
	chain.LamportsDistributed.Add(float64(result.AmountDistributed))
	chain.RemainderLamports.Add(float64(result.RemainderGivenToCreator))
	chain.DistributionFanout.Observe(float64(len(result.Distributions)))
	span.SetAttributes(
		attribute.Int("hypechain.distribution.shares", len(result.Distributions)),
		attribute.Int64("hypechain.distribution.remainder", result.RemainderGivenToCreator),
	)
	logger.Log.Info("Revenue distributed",
		logger.WithContentID(contentID),
		zap.Int64("amount", result.AmountDistributed),
		zap.Int64("remainder", result.RemainderGivenToCreator),
		zap.Int("shares", len(result.Distributions)),
		zap.String("event_id", result.EventID),
	)

	s.publish(live.MessageTypeRevenueDistributed, contentID, result)
	s.invalidateLeaderboard(ctx)
	return result, nil
}

func (s *Service) applyDistribution(ctx context.Context, contentID string, amount int64, requestID string) (*DistributionResult, error) {
	var result *DistributionResult

	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		content, err := tx.Contents.GetForUpdate(ctx, contentID)
		if err != nil {
			return err
		}
		if content.TotalRevenueLamports > math.MaxInt64-amount {
			return apierrors.ValidationError("amount_lamports", "content revenue total would overflow")
		}

		shares, err := tx.Shares.ListForDistribution(ctx, contentID)
		if err != nil {
			return err
		}
		alloc, err := revenue.Split(shares, amount)
		switch {
		case errors.Is(err, revenue.ErrNoShares):
			return apierrors.NotFound("shares").
				WithDetails("revenue cannot be distributed before the content has a share")
		case err != nil:
			// overflowing share totals or corrupt depths
			return apierrors.ValidationError("amount_lamports", err.Error())
		}

		event := &models.RevenueEvent{
			ContentID:       contentID,
			AmountLamports:  amount,
			RemainderToRoot: alloc.Remainder,
			MaxDepth:        alloc.MaxDepth,
			ShareCount:      len(alloc.Payouts),
			Payouts:         make([]models.RevenuePayout, 0, len(alloc.Payouts)),
		}
		if requestID != "" {
			event.RequestID = &requestID
		}

		for i, p := range alloc.Payouts {
			if p.Amount > 0 {
				if err := tx.Shares.SetEarnings(ctx, p.ShareID, p.Prior, p.NewTotal); err != nil {
					return err
				}
			}
			event.Payouts = append(event.Payouts, models.RevenuePayout{
				ShareID:        p.ShareID,
				WalletAddress:  p.WalletAddress,
				ShareDepth:     p.ShareDepth,
				AmountLamports: p.Amount,
				NewTotal:       p.NewTotal,
				Position:       i,
			})
		}

		if err := tx.Contents.ApplyRevenue(ctx, contentID, content.RevenueVersion, amount); err != nil {
			return err
		}
		if err := tx.Revenue.CreateEvent(ctx, event); err != nil {
			if errors.Is(err, repository.ErrDuplicateRequest) {
				return errDuplicateRequest
			}
			return err
		}

		result = &DistributionResult{
			EventID:                 event.ID,
			ContentID:               contentID,
			RequestID:               requestID,
			Distributions:           alloc.Payouts,
			AmountDistributed:       amount,
			RemainderGivenToCreator: alloc.Remainder,
			MaxDepth:                alloc.MaxDepth,
			TotalRevenueLamports:    content.TotalRevenueLamports + amount,
		}
		return nil
	})
	return result, err
}

// replay returns the stored result for requestID, nil when it was never
// applied, or a Conflict when it was applied with other parameters.
func (s *Service) replay(ctx context.Context, requestID, contentID string, amount int64) (*DistributionResult, error) {
	event, err := s.store.Revenue.GetByRequestID(ctx, requestID)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("load revenue event", err)
	}
	if event.ContentID != contentID || event.AmountLamports != amount {
		return nil, apierrors.Conflict("request_id was already used with different parameters")
	}

	content, err := s.store.Contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, storeError("load content", err)
	}

	payouts := make([]revenue.Payout, len(event.Payouts))
	for i, p := range event.Payouts {
		payouts[i] = revenue.Payout{
			ShareID:        p.ShareID,
			WalletAddress:  p.WalletAddress,
			ShareDepth:     p.ShareDepth,
			WeightExponent: event.MaxDepth - p.ShareDepth,
			Amount:         p.AmountLamports,
			NewTotal:       p.NewTotal,
			Prior:          p.NewTotal - p.AmountLamports,
		}
	}

	logger.Log.Info("Replaying revenue distribution",
		logger.WithContentID(contentID),
		zap.String("request_id", requestID),
		zap.String("event_id", event.ID),
	)
	return &DistributionResult{
		EventID:                 event.ID,
		ContentID:               contentID,
		RequestID:               requestID,
		Distributions:           payouts,
		AmountDistributed:       event.AmountLamports,
		RemainderGivenToCreator: event.RemainderToRoot,
		MaxDepth:                event.MaxDepth,
		TotalRevenueLamports:    content.TotalRevenueLamports,
		Replayed:                true,
	}, nil
}
