package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adengine_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adengine_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// time spent ranking and pricing a single auction
	AuctionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adengine_auction_duration_seconds",
			Help:    "Duration of auction ranking and pricing",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	// slots filled per auction
	AuctionWinners = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adengine_auction_winners",
			Help:    "Histogram of winners per auction",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	// auctions that produced no winners
	NoFillCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adengine_auction_nofill_total",
			Help: "Total auctions with no eligible winner",
		},
	)

	// candidates dropped during validation, labelled by reason
	InvalidBidCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adengine_invalid_bids_total",
			Help: "Total candidates rejected during auction validation",
		},
		[]string{"reason"},
	)

	// charge outcomes: committed or rejected_cap_reached
	ChargeCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adengine_charges_total",
			Help: "Total click charges by outcome",
		},
		[]string{"result"},
	)

	// spend tracked per campaign for the current period
	SpendTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adengine_spend_total",
			Help: "Committed spend for the current budget period",
		},
		[]string{"campaign"},
	)

	// budget state transitions, labelled by the state entered
	ThresholdTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adengine_budget_transitions_total",
			Help: "Total budget threshold transitions",
		},
		[]string{"state"},
	)

	// ledger store failures (timeouts, connection errors)
	LedgerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adengine_ledger_errors_total",
			Help: "Total budget ledger store errors",
		},
	)

	// analytics rows that failed to persist
	AnalyticsErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adengine_analytics_errors_total",
			Help: "Total analytics persistence errors",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		AuctionDuration,
		AuctionWinners,
		NoFillCount,
		InvalidBidCount,
		ChargeCount,
		SpendTotal,
		ThresholdTransitions,
		LedgerErrors,
		AnalyticsErrors,
	)
}
