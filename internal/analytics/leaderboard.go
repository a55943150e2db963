package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/zfogg/hypechain/backend/internal/models"
)

// DefaultLeaderboardSize is the length of every leaderboard list
const DefaultLeaderboardSize = 10

// WalletEarning is one row of the top earners board
type WalletEarning struct {
	Wallet   string `json:"wallet"`
	Earnings int64  `json:"earnings"`
}

// ContentRank is one row of the content boards
type ContentRank struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	MediaURL             string    `json:"media_url"`
	CreatorWallet        string    `json:"creator_wallet"`
	TotalShares          int64     `json:"total_shares"`
	TotalRevenueLamports int64     `json:"total_revenue_lamports"`
	CreatedAt            time.Time `json:"created_at"`
}

// Leaderboard bundles the three public boards
type Leaderboard struct {
	TopEarners   []WalletEarning `json:"top_earners"`
	ViralContent []ContentRank   `json:"viral_content"`
	TopRevenue   []ContentRank   `json:"top_revenue"`
}

// TopEarners sums active share earnings per lower-cased wallet and keeps the
// n highest positive totals. Equal totals sort by wallet ascending.
func TopEarners(shares []*models.Share, n int) []WalletEarning {
	totals := make(map[string]int64)
	for _, s := range shares {
		if s.IsDeleted {
			continue
		}
		totals[strings.ToLower(s.WalletAddress)] += s.EarningsLamports
	}

	out := make([]WalletEarning, 0, len(totals))
	for wallet, earnings := range totals {
		if earnings > 0 {
			out = append(out, WalletEarning{Wallet: wallet, Earnings: earnings})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Earnings != out[j].Earnings {
			return out[i].Earnings > out[j].Earnings
		}
		return out[i].Wallet < out[j].Wallet
	})
	return truncate(out, n)
}

// ViralContent ranks live content by share count. Ties go to newer content.
func ViralContent(contents []*models.Content, n int) []ContentRank {
	out := ranks(contents, func(c *models.Content) bool { return c.TotalShares > 0 })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalShares != b.TotalShares {
			return a.TotalShares > b.TotalShares
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return truncate(out, n)
}

// TopRevenue ranks live content by revenue. Ties go to the more shared content.
func TopRevenue(contents []*models.Content, n int) []ContentRank {
	out := ranks(contents, func(c *models.Content) bool { return c.TotalRevenueLamports > 0 })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalRevenueLamports != b.TotalRevenueLamports {
			return a.TotalRevenueLamports > b.TotalRevenueLamports
		}
		if a.TotalShares != b.TotalShares {
			return a.TotalShares > b.TotalShares
		}
		return a.ID < b.ID
	})
	return truncate(out, n)
}

// BuildLeaderboard assembles all three boards from full scans
func BuildLeaderboard(shares []*models.Share, contents []*models.Content, n int) *Leaderboard {
	return &Leaderboard{
		TopEarners:   TopEarners(shares, n),
		ViralContent: ViralContent(contents, n),
		TopRevenue:   TopRevenue(contents, n),
	}
}

func ranks(contents []*models.Content, keep func(*models.Content) bool) []ContentRank {
	out := make([]ContentRank, 0, len(contents))
	for _, c := range contents {
		if c.IsDeleted || !keep(c) {
			continue
		}
		out = append(out, ContentRank{
			ID:                   c.ID,
			Title:                c.Title,
			MediaURL:             c.MediaURL,
			CreatorWallet:        c.CreatorWallet,
			TotalShares:          c.TotalShares,
			TotalRevenueLamports: c.TotalRevenueLamports,
			CreatedAt:            c.CreatedAt,
		})
	}
	return out
}

func truncate[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
