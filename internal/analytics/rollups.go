// Package analytics holds the read-side rollups behind wallet analytics,
// profiles and leaderboards. Everything here is a pure function of share and
// content rows; nothing is cached or incrementally maintained.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/zfogg/hypechain/backend/internal/models"
)

// Trailing window lengths
const (
	Week  = 7 * 24 * time.Hour
	Month = 30 * 24 * time.Hour
)

// ContentEarnings is a wallet's take from one content
type ContentEarnings struct {
	ContentID string `json:"content_id"`
	Title     string `json:"title"`
	Earnings  int64  `json:"earnings"`
	Shares    int    `json:"shares"`
}

// DepthPerformance aggregates shares sitting at one depth. Averages are floored.
type DepthPerformance struct {
	Depth         int   `json:"depth"`
	Count         int   `json:"count"`
	TotalEarnings int64 `json:"total_earnings"`
	AvgEarnings   int64 `json:"avg_earnings"`
	TotalClicks   int64 `json:"total_clicks"`
	AvgClicks     int64 `json:"avg_clicks"`
}

// WindowMetrics sums shares created inside one window
type WindowMetrics struct {
	Shares   int   `json:"shares"`
	Earnings int64 `json:"earnings"`
	Clicks   int64 `json:"clicks"`
}

// TimeWindows holds trailing-window metrics. AllTime >= Last30Days >= Last7Days
// holds for every field.
type TimeWindows struct {
	Last7Days  WindowMetrics `json:"last_7_days"`
	Last30Days WindowMetrics `json:"last_30_days"`
	AllTime    WindowMetrics `json:"all_time"`
}

// ShareSummary is a compact view of a single share for top-N lists
type ShareSummary struct {
	ID           string `json:"id"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title"`
	Earnings     int64  `json:"earnings"`
	Clicks       int64  `json:"clicks"`
	Depth        int    `json:"depth"`
}

// ProfileStats totals a wallet's activity as sharer and creator
type ProfileStats struct {
	TotalEarnings       int64 `json:"total_earnings"`
	TotalShares         int   `json:"total_shares"`
	ActiveShares        int   `json:"active_shares"`
	DeletedShares       int   `json:"deleted_shares"`
	TotalClicks         int64 `json:"total_clicks"`
	ContentCreated      int   `json:"content_created"`
	TotalContentRevenue int64 `json:"total_content_revenue"`
}

// WalletEarnings sums earnings of the wallet's shares, matched case-insensitively
func WalletEarnings(shares []*models.Share, wallet string, activeOnly bool) int64 {
	var total int64
	for _, s := range shares {
		if !strings.EqualFold(s.WalletAddress, wallet) {
			continue
		}
		if activeOnly && s.IsDeleted {
			continue
		}
		total += s.EarningsLamports
	}
	return total
}

// EarningsByContent groups shares by content, highest earnings first.
// titles may be nil; missing titles read "Unknown".
func EarningsByContent(shares []*models.Share, titles map[string]string) []ContentEarnings {
	byContent := make(map[string]*ContentEarnings)
	var order []string
	for _, s := range shares {
		entry, ok := byContent[s.ContentID]
		if !ok {
			title, found := titles[s.ContentID]
			if !found {
				title = "Unknown"
			}
			entry = &ContentEarnings{ContentID: s.ContentID, Title: title}
			byContent[s.ContentID] = entry
			order = append(order, s.ContentID)
		}
		entry.Earnings += s.EarningsLamports
		entry.Shares++
	}

	out := make([]ContentEarnings, 0, len(order))
	for _, id := range order {
		out = append(out, *byContent[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Earnings != out[j].Earnings {
			return out[i].Earnings > out[j].Earnings
		}
		return out[i].ContentID < out[j].ContentID
	})
	return out
}

// PerformanceByDepth groups shares by stored depth, shallowest first
func PerformanceByDepth(shares []*models.Share) []DepthPerformance {
	byDepth := make(map[int]*DepthPerformance)
	for _, s := range shares {
		entry, ok := byDepth[s.ShareDepth]
		if !ok {
			entry = &DepthPerformance{Depth: s.ShareDepth}
			byDepth[s.ShareDepth] = entry
		}
		entry.Count++
		entry.TotalEarnings += s.EarningsLamports
		entry.TotalClicks += s.ClickCount
	}

	out := make([]DepthPerformance, 0, len(byDepth))
	for _, entry := range byDepth {
		entry.AvgEarnings = entry.TotalEarnings / int64(entry.Count)
		entry.AvgClicks = entry.TotalClicks / int64(entry.Count)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Depth < out[j].Depth
	})
	return out
}

// Windows buckets shares by created_at relative to now
func Windows(shares []*models.Share, now time.Time) TimeWindows {
	weekAgo := now.Add(-Week)
	monthAgo := now.Add(-Month)

	var w TimeWindows
	for _, s := range shares {
		add(&w.AllTime, s)
		if !s.CreatedAt.Before(monthAgo) {
			add(&w.Last30Days, s)
		}
		if !s.CreatedAt.Before(weekAgo) {
			add(&w.Last7Days, s)
		}
	}
	return w
}

func add(m *WindowMetrics, s *models.Share) {
	m.Shares++
	m.Earnings += s.EarningsLamports
	m.Clicks += s.ClickCount
}

// TopShares returns the n best-earning active shares. Ties go to the older share.
func TopShares(shares []*models.Share, titles map[string]string, n int) []ShareSummary {
	active := make([]*models.Share, 0, len(shares))
	for _, s := range shares {
		if !s.IsDeleted {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.EarningsLamports != b.EarningsLamports {
			return a.EarningsLamports > b.EarningsLamports
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if n >= 0 && len(active) > n {
		active = active[:n]
	}
	out := make([]ShareSummary, len(active))
	for i, s := range active {
		title, ok := titles[s.ContentID]
		if !ok {
			title = "Unknown"
		}
		out[i] = ShareSummary{
			ID:           s.ID,
			ContentID:    s.ContentID,
			ContentTitle: title,
			Earnings:     s.EarningsLamports,
			Clicks:       s.ClickCount,
			Depth:        s.ShareDepth,
		}
	}
	return out
}

// Profile totals a wallet's shares and the content it created
func Profile(shares []*models.Share, created []*models.Content) ProfileStats {
	var stats ProfileStats
	for _, s := range shares {
		stats.TotalShares++
		stats.TotalEarnings += s.EarningsLamports
		stats.TotalClicks += s.ClickCount
		if s.IsDeleted {
			stats.DeletedShares++
		} else {
			stats.ActiveShares++
		}
	}
	for _, c := range created {
		stats.ContentCreated++
		stats.TotalContentRevenue += c.TotalRevenueLamports
	}
	return stats
}

// Titles indexes content titles by id
func Titles(contents []*models.Content) map[string]string {
	out := make(map[string]string, len(contents))
	for _, c := range contents {
		out[c.ID] = c.Title
	}
	return out
}
