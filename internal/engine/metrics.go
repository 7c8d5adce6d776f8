package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
)

// Outcome labels for bimbridge_requests_total.
const (
	OutcomeSuccess     = "success"
	OutcomePartial     = "partial"
	OutcomeFailure     = "failure"
	OutcomeInvalid     = "invalid"
	OutcomeTimeout     = "timeout"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	elementFailures *prometheus.CounterVec
	late            *prometheus.CounterVec
	transactions    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors, which is what tests and embedded
// bridges use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bimbridge_requests_total",
			Help: "Total bridged requests by action family and outcome",
		}, []string{"family", "outcome"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bimbridge_request_duration_seconds",
			Help:    "Time from submit to response in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"family"}),

		elementFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bimbridge_element_failures_total",
			Help: "Total failed elements by action family",
		}, []string{"family"}),

		late: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bimbridge_late_completions_total",
			Help: "Host work that finished after the bridge timed out",
		}, []string{"family"}),

		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bimbridge_transactions_total",
			Help: "Host transactions by final status",
		}, []string{"status"}),
	}
}

// ObserveRequest records one response.
func (m *Metrics) ObserveRequest(family ir.Family, outcome string, failed int, elapsed time.Duration) {
	m.requests.WithLabelValues(string(family), outcome).Inc()
	m.duration.WithLabelValues(string(family)).Observe(elapsed.Seconds())
	if failed > 0 {
		m.elementFailures.WithLabelValues(string(family)).Add(float64(failed))
	}
}

// ObserveLate records host work completed after a timeout.
func (m *Metrics) ObserveLate(family ir.Family) {
	m.late.WithLabelValues(string(family)).Inc()
}

// ObserveTransaction records a committed or rolled back transaction. It
// has the host.TxObserver signature.
func (m *Metrics) ObserveTransaction(r host.TxRecord) {
	m.transactions.WithLabelValues(string(r.Status)).Inc()
}

// outcomeOf classifies a dispatched response.
func outcomeOf(resp ir.Response) string {
	switch {
	case resp.Success:
		return OutcomeSuccess
	case len(resp.Response.SuccessfulElements) > 0:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}
