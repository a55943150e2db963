package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChainMetrics tracks the viral attribution engine
type ChainMetrics struct {
	ContentCreated prometheus.Counter
	SharesCreated  prometheus.CounterVec // outcome: new, existing
	Engagements    prometheus.CounterVec // type: view, click, share
	SoftDeletes    prometheus.CounterVec // kind: share, content; outcome

	Distributions        prometheus.CounterVec // outcome: applied, replayed, rejected, failed
	DistributionRetries  prometheus.Counter
	LamportsDistributed  prometheus.Counter
	RemainderLamports    prometheus.Counter
	DistributionDuration prometheus.Histogram
	DistributionFanout   prometheus.Histogram

	TreeBuildDuration prometheus.Histogram
	TreeDepthMismatch prometheus.Counter
}

func newChainMetrics() *ChainMetrics {
	return &ChainMetrics{
		ContentCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hypechain_content_created_total",
				Help: "Total number of content items created",
			},
		),
		SharesCreated: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypechain_share_requests_total",
				Help: "Share requests by whether a new share was created",
			},
			[]string{"outcome"},
		),
		Engagements: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypechain_engagements_total",
				Help: "Recorded engagements by type",
			},
			[]string{"type"},
		),
		SoftDeletes: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypechain_soft_deletes_total",
				Help: "Soft delete attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Distributions: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypechain_distributions_total",
				Help: "Revenue distributions by outcome",
			},
			[]string{"outcome"},
		),
		DistributionRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hypechain_distribution_retries_total",
				Help: "Distributions retried after losing a compare-and-swap race",
			},
		),
		LamportsDistributed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hypechain_lamports_distributed_total",
				Help: "Total lamports paid out to shares",
			},
		),
		RemainderLamports: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hypechain_remainder_lamports_total",
				Help: "Rounding remainder added to first shares",
			},
		),
		DistributionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hypechain_distribution_duration_seconds",
				Help:    "Time to apply one distribution, retries included",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		DistributionFanout: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hypechain_distribution_fanout_shares",
				Help:    "Number of shares paid per distribution",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		TreeBuildDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hypechain_tree_build_duration_seconds",
				Help:    "Time to load and build a share tree",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		TreeDepthMismatch: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hypechain_tree_depth_mismatch_total",
				Help: "Shares whose stored depth disagreed with their tree level",
			},
		),
	}
}
