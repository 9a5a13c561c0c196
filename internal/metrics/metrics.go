package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aura_ticks_total",
			Help: "Total dispatch ticks executed",
		},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aura_tick_duration_seconds",
			Help:    "Wall time of one dispatch tick",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 15, 60},
		},
	)

	usersDue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aura_users_due_per_tick",
			Help:    "Number of users due per tick",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)

	pushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aura_pushes_total",
			Help: "Push attempts by outcome",
		},
		[]string{"outcome"}, // sent, transient_failure, invalid_token
	)

	quotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aura_quotes_total",
			Help: "Quotes attached to notifications by source",
		},
		[]string{"source"}, // generated, static, none
	)

	commitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aura_commit_failures_total",
			Help: "Tick bookkeeping batches that failed to persist",
		},
	)
)

// Push outcome label values
const (
	OutcomeSent             = "sent"
	OutcomeTransientFailure = "transient_failure"
	OutcomeInvalidToken     = "invalid_token"
)

// Quote source label values
const (
	QuoteGenerated = "generated"
	QuoteStatic    = "static"
	QuoteNone      = "none"
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records one completed tick.
func RecordTick(due int, duration time.Duration) {
	ticksTotal.Inc()
	usersDue.Observe(float64(due))
	tickDuration.Observe(duration.Seconds())
}

// RecordPush records one push attempt by outcome.
func RecordPush(outcome string) {
	pushesTotal.WithLabelValues(outcome).Inc()
}

// RecordQuote records which source supplied a notification's quote.
func RecordQuote(source string) {
	quotesTotal.WithLabelValues(source).Inc()
}

// RecordCommitFailure records a failed tick commit batch.
func RecordCommitFailure() {
	commitFailures.Inc()
}
