// Package quotametrics exports ledger outcomes and HTTP traffic as
// Prometheus metrics.
//
// Metrics implements quota.Observer, so the ledger reports every decision
// to it without knowing about Prometheus, and provides an HTTP middleware
// for the API. All collectors live under the "quotakit" namespace:
//
//	quotakit_consume_requests_total{plan,outcome}      allowed or denied consumes
//	quotakit_builds_consumed_total{plan}               builds reserved
//	quotakit_refund_requests_total{plan,clamped}       refunds, clamped at zero or not
//	quotakit_builds_refunded_total{plan}               builds asked back
//	quotakit_wallet_write_conflicts_total{operation}   lost version races
//	quotakit_lifecycle_transitions_total{kind}         downgrade, expiry, policy_sync
//	quotakit_http_requests_total{method,route,status_code}
//	quotakit_http_request_duration_seconds{method,route}
//	quotakit_http_requests_in_flight
//
// Labels are limited to plan, outcome, operation and route pattern; user ids
// are never used as label values. A request that matched no route is
// labelled "unmatched".
//
// # Usage
//
//	m := quotametrics.New(prometheus.DefaultRegisterer)
//	ledger := quota.New(store, policy, quota.WithObserver(m))
//
//	r := chi.NewRouter()
//	r.Use(m.Middleware)
//	r.Handle("/metrics", promhttp.Handler())
//
// New registers its collectors with the given Registerer and panics on a
// duplicate registration, so create one Metrics per registry. Tests pass a
// fresh prometheus.NewRegistry.
package quotametrics
