package engine

import (
	"context"
	"sort"
	"time"

	"github.com/zfogg/hypechain/backend/internal/analytics"
	"github.com/zfogg/hypechain/backend/internal/models"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"github.com/zfogg/hypechain/backend/internal/validation"
)

const (
	topSharesLimit       = 5
	defaultActivityLimit = 20
	maxActivityLimit     = 100
	unknownContent       = "Unknown Content"
)

// WalletAnalytics is the earnings breakdown behind a wallet's dashboard
type WalletAnalytics struct {
	Wallet             string                       `json:"wallet"`
	TotalEarnings      int64                        `json:"total_earnings"`
	ActiveEarnings     int64                        `json:"active_earnings"`
	EarningsByContent  []analytics.ContentEarnings  `json:"earnings_by_content"`
	PerformanceByDepth []analytics.DepthPerformance `json:"performance_by_depth"`
	TimeBasedMetrics   analytics.TimeWindows        `json:"time_based_metrics"`
	TopShares          []analytics.ShareSummary     `json:"top_shares"`
}

// Profile is a wallet's public profile
type Profile struct {
	Wallet         string                 `json:"wallet"`
	Stats          analytics.ProfileStats `json:"stats"`
	Shares         []*models.Share        `json:"shares"`
	CreatedContent []*models.Content      `json:"created_content"`
}

// Activity is one entry of the recent activity feed
type Activity struct {
	Type           string    `json:"type"` // share or engagement
	ID             string    `json:"id"`
	Wallet         string    `json:"wallet"`
	ContentID      string    `json:"content_id"`
	ContentTitle   string    `json:"content_title"`
	Depth          *int      `json:"depth,omitempty"`
	EngagementType string    `json:"engagement_type,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// GetWalletAnalytics rolls up every share the wallet ever made, deleted ones
// included. Top shares only list active ones.
func (s *Service) GetWalletAnalytics(ctx context.Context, wallet string) (result *WalletAnalytics, err error) {
	ctx, span := telemetry.StartOperation(ctx, "analytics.wallet")
	defer func() { telemetry.EndOperation(span, err) }()

	if wallet, err = validation.Wallet("wallet", wallet, s.opts.StrictWallets); err != nil {
		return nil, err
	}

	shares, err := s.store.Shares.ListByWallet(ctx, wallet)
	if err != nil {
		return nil, storeError("load wallet shares", err)
	}
	titles, err := s.titlesFor(ctx, shares)
	if err != nil {
		return nil, err
	}

	return &WalletAnalytics{
		Wallet:             wallet,
		TotalEarnings:      analytics.WalletEarnings(shares, wallet, false),
		ActiveEarnings:     analytics.WalletEarnings(shares, wallet, true),
		EarningsByContent:  analytics.EarningsByContent(shares, titles),
		PerformanceByDepth: analytics.PerformanceByDepth(shares),
		TimeBasedMetrics:   analytics.Windows(shares, s.opts.Now()),
		TopShares:          analytics.TopShares(shares, titles, topSharesLimit),
	}, nil
}

// GetProfile returns a wallet's shares, newest first, and the content it created
func (s *Service) GetProfile(ctx context.Context, wallet string) (result *Profile, err error) {
	ctx, span := telemetry.StartOperation(ctx, "analytics.profile")
	defer func() { telemetry.EndOperation(span, err) }()

	if wallet, err = validation.Wallet("wallet", wallet, s.opts.StrictWallets); err != nil {
		return nil, err
	}

	shares, err := s.store.Shares.ListByWallet(ctx, wallet)
	if err != nil {
		return nil, storeError("load wallet shares", err)
	}
	created, err := s.store.Contents.ListByCreator(ctx, wallet)
	if err != nil {
		return nil, storeError("load created content", err)
	}

	result = &Profile{
		Wallet:         wallet,
		Stats:          analytics.Profile(shares, created),
		Shares:         newestFirst(shares),
		CreatedContent: created,
	}
	sort.SliceStable(result.CreatedContent, func(i, j int) bool {
		return result.CreatedContent[i].CreatedAt.After(result.CreatedContent[j].CreatedAt)
	})
	return result, nil
}

// GetLeaderboard serves the three boards, from cache when one is configured
func (s *Service) GetLeaderboard(ctx context.Context) (board *analytics.Leaderboard, err error) {
	ctx, span := telemetry.StartOperation(ctx, "analytics.leaderboard")
	defer func() { telemetry.EndOperation(span, err) }()

	if s.opts.Leaderboard != nil {
		if cached, ok := s.opts.Leaderboard.Get(ctx); ok {
			return cached, nil
		}
	}

	shares, err := s.store.Shares.ListEarning(ctx)
	if err != nil {
		return nil, storeError("load earning shares", err)
	}
	contents, err := s.store.Contents.ListAll(ctx)
	if err != nil {
		return nil, storeError("load content", err)
	}

	board = analytics.BuildLeaderboard(shares, contents, analytics.DefaultLeaderboardSize)
	if s.opts.Leaderboard != nil {
		s.opts.Leaderboard.Set(ctx, board)
	}
	return board, nil
}

// RecentActivity merges the newest active shares on live content with the
// newest engagements, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	shares, err := s.store.Shares.Recent(ctx, limit)
	if err != nil {
		return nil, storeError("load recent shares", err)
	}
	engagements, err := s.store.Engagements.Recent(ctx, limit)
	if err != nil {
		return nil, storeError("load recent engagements", err)
	}

	shareIDs := make([]string, 0, len(engagements))
	for _, e := range engagements {
		shareIDs = append(shareIDs, e.ShareID)
	}
	engaged, err := s.store.Shares.ListByIDs(ctx, shareIDs)
	if err != nil {
		return nil, storeError("load engaged shares", err)
	}
	owners := make(map[string]*models.Share, len(engaged))
	for _, sh := range engaged {
		owners[sh.ID] = sh
	}

	titles, err := s.titlesFor(ctx, append(append([]*models.Share{}, shares...), engaged...))
	if err != nil {
		return nil, err
	}
	title := func(contentID string) string {
		if t, ok := titles[contentID]; ok {
			return t
		}
		return unknownContent
	}

	feed := make([]Activity, 0, len(shares)+len(engagements))
	for _, sh := range shares {
		depth := sh.ShareDepth
		feed = append(feed, Activity{
			Type:         "share",
			ID:           sh.ID,
			Wallet:       sh.WalletAddress,
			ContentID:    sh.ContentID,
			ContentTitle: title(sh.ContentID),
			Depth:        &depth,
			Timestamp:    sh.CreatedAt,
		})
	}
	for _, e := range engagements {
		wallet := "Unknown"
		if owner, ok := owners[e.ShareID]; ok {
			wallet = owner.WalletAddress
		}
		feed = append(feed, Activity{
			Type:           "engagement",
			ID:             e.ID,
			Wallet:         wallet,
			ContentID:      e.ContentID,
			ContentTitle:   title(e.ContentID),
			EngagementType: e.EngagementType,
			Timestamp:      e.CreatedAt,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// RevenueHistory lists a content's applied distributions, newest first
func (s *Service) RevenueHistory(ctx context.Context, contentID string, limit int) ([]*models.RevenueEvent, error) {
	contentID, err := validation.ID("content_id", contentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Contents.GetByID(ctx, contentID); err != nil {
		return nil, storeError("load content", err)
	}
	events, err := s.store.Revenue.ListByContent(ctx, contentID, limit)
	if err != nil {
		return nil, storeError("load revenue events", err)
	}
	return events, nil
}

func (s *Service) titlesFor(ctx context.Context, shares []*models.Share) (map[string]string, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, sh := range shares {
		if !seen[sh.ContentID] {
			seen[sh.ContentID] = true
			ids = append(ids, sh.ContentID)
		}
	}
	contents, err := s.store.Contents.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeError("load content titles", err)
	}
	return analytics.Titles(contents), nil
}

func newestFirst(shares []*models.Share) []*models.Share {
	out := append([]*models.Share(nil), shares...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
