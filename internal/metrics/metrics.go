package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "panel"

// Metrics holds every collector. Its methods satisfy audit.Metrics,
// audit.RetentionMetrics and twofactor.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	verifications *prometheus.CounterVec

	auditEntries  *prometheus.CounterVec
	auditFailures *prometheus.CounterVec

	retentionRuns     *prometheus.CounterVec
	retentionDeleted  prometheus.Counter
	retentionDuration prometheus.Histogram
	retentionLastRun  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry; Handler then serves only the panel's metrics.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Requests currently being served.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "two_factor",
			Name:      "verifications_total",
			Help:      "Two-factor verification attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Audit entries recorded by action.",
		}, []string{"action"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "failures_total",
			Help:      "Audit entries that could not be stored, by action.",
		}, []string{"action"}),
		retentionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit_retention",
			Name:      "runs_total",
			Help:      "Retention runs by result.",
		}, []string{"result"}),
		retentionDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit_retention",
			Name:      "deleted_total",
			Help:      "Audit entries removed by retention.",
		}),
		retentionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit_retention",
			Name:      "duration_seconds",
			Help:      "Retention run duration.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		retentionLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit_retention",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful retention run.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests, m.httpDuration, m.httpInflight,
		m.verifications,
		m.auditEntries, m.auditFailures,
		m.retentionRuns, m.retentionDeleted, m.retentionDuration, m.retentionLastRun,
	} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterPool exports connection pool gauges for pool.
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) error {
	return register(m.registry, newPoolCollector(pool))
}

func (m *Metrics) Verification(method, outcome string) {
	m.verifications.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) EntryRecorded(action string) {
	m.auditEntries.WithLabelValues(action).Inc()
}

func (m *Metrics) EntryFailed(action string) {
	m.auditFailures.WithLabelValues(action).Inc()
}

func (m *Metrics) RetentionRun(deleted int64, duration time.Duration, err error) {
	m.retentionDuration.Observe(duration.Seconds())
	if err != nil {
		m.retentionRuns.WithLabelValues("failed").Inc()
		return
	}
	m.retentionRuns.WithLabelValues("succeeded").Inc()
	m.retentionDeleted.Add(float64(deleted))
	m.retentionLastRun.SetToCurrentTime()
}

// register tolerates a collector that is already registered.
func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}
