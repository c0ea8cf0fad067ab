// Package metrics holds the Prometheus collectors of the fee router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feerouter_build_info",
			Help: "Build information of the fee router",
		},
		[]string{"version", "commit", "date"},
	)

	PagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_pages_processed_total",
			Help: "Total number of distribution pages submitted",
		},
		[]string{"status"},
	)

	PageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feerouter_page_duration_seconds",
			Help:    "Duration of distribution page processing",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
	)

	QuoteClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feerouter_quote_claimed_total",
			Help: "Total quote token units claimed from the fee venue",
		},
	)

	InvestorPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feerouter_investor_paid_total",
			Help: "Total quote token units paid to investors",
		},
	)

	CreatorPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feerouter_creator_paid_total",
			Help: "Total quote token units paid to the creator",
		},
	)

	PayoutsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feerouter_payouts_skipped_total",
			Help: "Total number of investor shares below the minimum payout",
		},
	)

	EpochsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_epochs_total",
			Help: "Total number of epoch transitions",
		},
		[]string{"transition"},
	)

	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_rpc_requests_total",
			Help: "Total number of Solana RPC requests",
		},
		[]string{"method", "status"},
	)
)
