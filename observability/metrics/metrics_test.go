package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/observability/metrics"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetrics_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveOperation("recalculate", metrics.ResultSuccess, 3*time.Millisecond)
	m.ObserveOperation("recalculate", metrics.ResultConflict, time.Millisecond)
	m.IncConflict("recalculate")
	m.IncEvent("distribution.paid")
	m.IncImbalance()

	assert.Equal(t, 2.0, counterValue(t, reg, "revenue_engine_operations_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "revenue_version_conflicts_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "revenue_distribution_events_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "revenue_division_order_imbalances_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("create", "", time.Second)
		m.IncEvent("x")
		m.IncConflict("x")
		m.IncImbalance()
		m.ObserveHTTP("/", http.MethodGet, 200, time.Second)
		m.RegisterDB(nil, nil, nil)
	})
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveHTTP("/api/distributions/{id}", http.MethodGet, 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "revenue_http_requests_total")
}
