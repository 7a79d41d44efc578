// Package metrics holds the engine's prometheus collectors. A nil *Metrics
// records nothing, so callers never need to guard.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	metricPrefix = "revenue_"

	ResultSuccess  = "success"
	ResultError    = "error"
	ResultConflict = "conflict"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	events           *prometheus.CounterVec
	conflicts        *prometheus.CounterVec
	imbalances       prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to stay isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "engine_operations_total",
				Help: "Total engine operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "engine_operation_latency_seconds",
				Help:    "Engine operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "distribution_events_total",
				Help: "Total accepted distribution writes by event type",
			},
			[]string{"type"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "version_conflicts_total",
				Help: "Total optimistic-lock conflicts by operation",
			},
			[]string{"operation"},
		),
		imbalances: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "division_order_imbalances_total",
				Help: "Total division order validations that failed the unity check",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	reg.MustRegister(
		m.operations,
		m.operationLatency,
		m.events,
		m.conflicts,
		m.imbalances,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// RegisterDB adds gauges backed by the distributions table.
func (m *Metrics) RegisterDB(reg *prometheus.Registry, db *sql.DB, log *zap.Logger) {
	if m == nil || db == nil {
		return
	}
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "distributions_unpaid",
			Help: "Distributions not yet paid",
		},
		func() float64 {
			return queryCount(db, log, "SELECT COUNT(*) FROM distributions WHERE NOT is_paid")
		},
	))
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open database connections",
		},
		func() float64 {
			return float64(db.Stats().OpenConnections)
		},
	))
}

func queryCount(db *sql.DB, log *zap.Logger, query string) float64 {
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if log != nil {
			log.Warn("metrics query failed", zap.Error(err))
		}
		return 0
	}
	return float64(count)
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveOperation records an engine operation's result and latency.
func (m *Metrics) ObserveOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	if result == "" {
		result = ResultSuccess
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncEvent counts an accepted write.
func (m *Metrics) IncEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// IncConflict counts a version conflict.
func (m *Metrics) IncConflict(operation string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncImbalance() {
	if m == nil {
		return
	}
	m.imbalances.Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}
