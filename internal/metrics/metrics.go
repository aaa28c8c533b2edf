// Package metrics records planner activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gridplan"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Recorder holds the planner's Prometheus collectors.
type Recorder struct {
	plansTotal    *prometheus.CounterVec
	parsesTotal   *prometheus.CounterVec
	quotesTotal   *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		plansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_total",
				Help:      "Total number of buy plan calculations",
			},
			[]string{"method", "outcome"},
		),
		parsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instruction_parses_total",
				Help:      "Total number of parsed trading instructions",
			},
			[]string{"outcome"},
		),
		quotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_total",
				Help:      "Total number of price queries",
			},
			[]string{"provider", "outcome"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPlan records a plan calculation.
func (r *Recorder) RecordPlan(method, outcome string) {
	r.plansTotal.WithLabelValues(method, outcome).Inc()
}

// RecordParse records an instruction parse.
func (r *Recorder) RecordParse(outcome string) {
	r.parsesTotal.WithLabelValues(outcome).Inc()
}

// RecordQuote records a price query.
func (r *Recorder) RecordQuote(provider, outcome string) {
	r.quotesTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordRequest records a served HTTP request. route should be the route pattern, not the raw path.
func (r *Recorder) RecordRequest(route, method, status string) {
	r.requestsTotal.WithLabelValues(route, method, status).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
