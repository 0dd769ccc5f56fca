package observability

// Metric name prefixes
const (
	MetricPrefix = "cardex"
)

// Metric names
const (
	// Exchange metrics
	ExchangeRequestsCreatedTotal = MetricPrefix + ".exchanges.requests_created_total"
	ExchangeResolutionsTotal     = MetricPrefix + ".exchanges.resolutions_total"

	// Ledger metrics
	CoinsEscrowedTotal = MetricPrefix + ".ledger.coins_escrowed_total"
	CoinsRefundedTotal = MetricPrefix + ".ledger.coins_refunded_total"

	// Reaper metrics
	SweepDuration        = MetricPrefix + ".reaper.sweep_duration"
	RequestsExpiredTotal = MetricPrefix + ".reaper.requests_expired_total"
	SweepFailuresTotal   = MetricPrefix + ".reaper.sweep_failures_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
)

// Resolution outcomes
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
	OutcomeExpired   = "expired"
)
