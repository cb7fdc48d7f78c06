package quotametrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/lifecycle"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/quotametrics"
)

func TestMetrics_Observer(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := quotametrics.New(reg)

	m.ConsumeDecided(planpolicy.Pro, 3, true)
	m.ConsumeDecided(planpolicy.Pro, 1, false)
	m.Refunded(planpolicy.Free, 5, true)
	m.Conflict("consume", 1)
	m.Conflict("consume", 2)
	m.Transitioned(lifecycle.Transition{Downgrades: 2, Expired: true})
	m.Transitioned(lifecycle.Transition{})

	expected := `
# HELP quotakit_builds_consumed_total Builds reserved by successful consumes
# TYPE quotakit_builds_consumed_total counter
quotakit_builds_consumed_total{plan="pro"} 3
# HELP quotakit_consume_requests_total Consume decisions by plan and outcome
# TYPE quotakit_consume_requests_total counter
quotakit_consume_requests_total{outcome="allowed",plan="pro"} 1
quotakit_consume_requests_total{outcome="denied",plan="pro"} 1
# HELP quotakit_lifecycle_transitions_total Plan lifecycle changes written back to wallets
# TYPE quotakit_lifecycle_transitions_total counter
quotakit_lifecycle_transitions_total{kind="downgrade"} 2
quotakit_lifecycle_transitions_total{kind="expiry"} 1
# HELP quotakit_refund_requests_total Refunds by plan, split by whether they were clamped at zero
# TYPE quotakit_refund_requests_total counter
quotakit_refund_requests_total{clamped="true",plan="free"} 1
# HELP quotakit_wallet_write_conflicts_total Version-guarded wallet writes that lost a race
# TYPE quotakit_wallet_write_conflicts_total counter
quotakit_wallet_write_conflicts_total{operation="consume"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"quotakit_builds_consumed_total",
		"quotakit_consume_requests_total",
		"quotakit_lifecycle_transitions_total",
		"quotakit_refund_requests_total",
		"quotakit_wallet_write_conflicts_total",
	))
}

func TestMetrics_DoubleRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	quotametrics.New(reg)
	assert.Panics(t, func() { quotametrics.New(reg) })
}

func TestMetrics_Middleware(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := quotametrics.New(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/wallets/{userID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/wallets/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	expected := `
# HELP quotakit_http_requests_total Total number of HTTP requests
# TYPE quotakit_http_requests_total counter
quotakit_http_requests_total{method="GET",route="/v1/wallets/{userID}",status_code="404"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quotakit_http_requests_total"))
}
