package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Auction metrics
	RecordAuctionDuration(duration time.Duration)
	RecordAuctionWinners(count int)
	IncrementNoFill()
	IncrementInvalidBids(reason string)

	// Budget ledger metrics
	IncrementCharges(result string)
	SetSpendTotal(campaign string, amountMinor float64)
	IncrementThresholdTransitions(state string)
	IncrementLedgerErrors()

	// Analytics metrics
	IncrementAnalyticsErrors()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Auction metrics
func (r *PrometheusRegistry) RecordAuctionDuration(duration time.Duration) {
	AuctionDuration.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) RecordAuctionWinners(count int) {
	AuctionWinners.Observe(float64(count))
}

func (r *PrometheusRegistry) IncrementNoFill() {
	NoFillCount.Inc()
}

func (r *PrometheusRegistry) IncrementInvalidBids(reason string) {
	InvalidBidCount.WithLabelValues(reason).Inc()
}

// Budget ledger metrics
func (r *PrometheusRegistry) IncrementCharges(result string) {
	ChargeCount.WithLabelValues(result).Inc()
}

func (r *PrometheusRegistry) SetSpendTotal(campaign string, amountMinor float64) {
	SpendTotal.WithLabelValues(campaign).Set(amountMinor)
}

func (r *PrometheusRegistry) IncrementThresholdTransitions(state string) {
	ThresholdTransitions.WithLabelValues(state).Inc()
}

func (r *PrometheusRegistry) IncrementLedgerErrors() {
	LedgerErrors.Inc()
}

// Analytics metrics
func (r *PrometheusRegistry) IncrementAnalyticsErrors() {
	AnalyticsErrors.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) RecordAuctionDuration(duration time.Duration)                         {}
func (r *NoOpRegistry) RecordAuctionWinners(count int)                                       {}
func (r *NoOpRegistry) IncrementNoFill()                                                     {}
func (r *NoOpRegistry) IncrementInvalidBids(reason string)                                   {}
func (r *NoOpRegistry) IncrementCharges(result string)                                       {}
func (r *NoOpRegistry) SetSpendTotal(campaign string, amountMinor float64)                   {}
func (r *NoOpRegistry) IncrementThresholdTransitions(state string)                           {}
func (r *NoOpRegistry) IncrementLedgerErrors()                                               {}
func (r *NoOpRegistry) IncrementAnalyticsErrors()                                            {}
