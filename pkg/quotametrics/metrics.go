package quotametrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/quotakit/pkg/lifecycle"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/quota"
)

const namespace = "quotakit"

// Metrics implements quota.Observer on top of Prometheus collectors.
type Metrics struct {
	consumeTotal    *prometheus.CounterVec
	buildsConsumed  *prometheus.CounterVec
	refundTotal     *prometheus.CounterVec
	buildsRefunded  *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

var _ quota.Observer = (*Metrics)(nil)

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		consumeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consume_requests_total",
			Help:      "Consume decisions by plan and outcome",
		}, []string{"plan", "outcome"}),
		buildsConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_consumed_total",
			Help:      "Builds reserved by successful consumes",
		}, []string{"plan"}),
		refundTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_requests_total",
			Help:      "Refunds by plan, split by whether they were clamped at zero",
		}, []string{"plan", "clamped"}),
		buildsRefunded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_refunded_total",
			Help:      "Builds requested back through refunds",
		}, []string{"plan"}),
		conflictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_write_conflicts_total",
			Help:      "Version-guarded wallet writes that lost a race",
		}, []string{"operation"}),
		transitionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Plan lifecycle changes written back to wallets",
		}, []string{"kind"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		}),
	}
}

// ConsumeDecided counts the request by outcome and, when allowed, the builds.
func (m *Metrics) ConsumeDecided(plan planpolicy.Plan, count int, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
		m.buildsConsumed.WithLabelValues(plan.String()).Add(float64(count))
	}
	m.consumeTotal.WithLabelValues(plan.String(), outcome).Inc()
}

// Refunded counts the refund request and the builds returned.
func (m *Metrics) Refunded(plan planpolicy.Plan, count int, clamped bool) {
	m.refundTotal.WithLabelValues(plan.String(), strconv.FormatBool(clamped)).Inc()
	m.buildsRefunded.WithLabelValues(plan.String()).Add(float64(count))
}

// Conflict counts a lost version race per operation.
func (m *Metrics) Conflict(op string, _ int) {
	m.conflictsTotal.WithLabelValues(op).Inc()
}

// Transitioned counts each kind of change separately; one reconcile may
// apply several downgrades and a policy sync together.
func (m *Metrics) Transitioned(t lifecycle.Transition) {
	if t.Downgrades > 0 {
		m.transitionTotal.WithLabelValues("downgrade").Add(float64(t.Downgrades))
	}
	if t.Expired {
		m.transitionTotal.WithLabelValues("expiry").Inc()
	}
	if t.PolicySynced {
		m.transitionTotal.WithLabelValues("policy_sync").Inc()
	}
}
