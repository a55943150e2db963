package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/hypechain/backend/internal/analytics"
	"github.com/zfogg/hypechain/backend/internal/database"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/revenue"
	"github.com/zfogg/hypechain/backend/internal/sharetree"
)

func (app *cli) treeCmd() *cobra.Command {
	return needsDB(&cobra.Command{
		Use:   "tree <content-id>",
		Short: "Print the share tree of a content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.kernel.Engine().BuildShareTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), res, func(w io.Writer) { printTree(w, res) })
		},
	})
}

func (app *cli) distributeCmd() *cobra.Command {
	var requestID string
	cmd := needsDB(&cobra.Command{
		Use:   "distribute <content-id> <lamports>",
		Short: "Split revenue across a content's share chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := revenue.ParseAmount(args[1])
			if err != nil {
				return err
			}
			res, err := app.kernel.Engine().DistributeRevenue(cmd.Context(), engine.DistributeInput{
				ContentID:      args[0],
				AmountLamports: amount,
				RequestID:      requestID,
			})
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), res, func(w io.Writer) { printDistribution(w, res) })
		},
	})
	cmd.Flags().StringVar(&requestID, "request-id", "", "Idempotency key; reusing it replays the stored result")
	return cmd
}

func (app *cli) leaderboardCmd() *cobra.Command {
	return needsDB(&cobra.Command{
		Use:   "leaderboard",
		Short: "Show top earners, viral content and top revenue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := app.kernel.Engine().GetLeaderboard(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), board, func(w io.Writer) { printLeaderboard(w, board) })
		},
	})
}

func (app *cli) analyticsCmd() *cobra.Command {
	return needsDB(&cobra.Command{
		Use:   "analytics <wallet>",
		Short: "Show a wallet's earnings breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.kernel.Engine().GetWalletAnalytics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), res, func(w io.Writer) { printAnalytics(w, res) })
		},
	})
}

func (app *cli) migrateCmd() *cobra.Command {
	return needsDB(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(app.kernel.DB()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
}

func printTree(w io.Writer, res *engine.ShareTreeResult) {
	fmt.Fprintf(w, "%s (%s)\n", res.Content.Title, res.Content.ID)
	fmt.Fprintf(w, "shares: %d total, %d active, %d deleted, max depth %d\n",
		res.TotalShares, res.ActiveShares, res.DeletedShares, res.MaxDepth)

	var walk func(n *sharetree.Node)
	walk = func(n *sharetree.Node) {
		marker := ""
		if n.Share.IsDeleted {
			marker = " [deleted]"
		}
		fmt.Fprintf(w, "%s- %s %d lamports%s\n",
			strings.Repeat("  ", n.Level), n.Share.WalletAddress, n.Share.EarningsLamports, marker)
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range res.Roots {
		walk(root)
	}
}

func printDistribution(w io.Writer, res *engine.DistributionResult) {
	replayed := ""
	if res.Replayed {
		replayed = " (replayed)"
	}
	fmt.Fprintf(w, "distributed %d lamports over %d shares%s\n",
		res.AmountDistributed, len(res.Distributions), replayed)
	for _, p := range res.Distributions {
		fmt.Fprintf(w, "  depth %d  %s  +%d  (total %d)\n", p.ShareDepth, p.WalletAddress, p.Amount, p.NewTotal)
	}
	fmt.Fprintf(w, "remainder to creator: %d\n", res.RemainderGivenToCreator)
}

func printLeaderboard(w io.Writer, board *analytics.Leaderboard) {
	fmt.Fprintln(w, "Top earners")
	for i, e := range board.TopEarners {
		fmt.Fprintf(w, "  %2d. %s  %d\n", i+1, e.Wallet, e.Earnings)
	}
	fmt.Fprintln(w, "Most shared")
	for i, c := range board.ViralContent {
		fmt.Fprintf(w, "  %2d. %s  %d shares\n", i+1, c.Title, c.TotalShares)
	}
	fmt.Fprintln(w, "Top revenue")
	for i, c := range board.TopRevenue {
		fmt.Fprintf(w, "  %2d. %s  %d lamports\n", i+1, c.Title, c.TotalRevenueLamports)
	}
}

func printAnalytics(w io.Writer, res *engine.WalletAnalytics) {
	fmt.Fprintf(w, "%s\n", res.Wallet)
	fmt.Fprintf(w, "total earnings: %d (active %d)\n", res.TotalEarnings, res.ActiveEarnings)
	for _, d := range res.PerformanceByDepth {
		fmt.Fprintf(w, "  depth %d: %d shares, %d lamports\n", d.Depth, d.Count, d.TotalEarnings)
	}
	fmt.Fprintf(w, "last 7 days: %d lamports, last 30 days: %d lamports\n",
		res.TimeBasedMetrics.Last7Days.Earnings, res.TimeBasedMetrics.Last30Days.Earnings)
}
