// Package metrics exposes Prometheus collectors for the ledger.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitledger"

type Metrics struct {
	registry *prometheus.Registry

	rpcRequests        *prometheus.CounterVec
	rpcDuration        *prometheus.HistogramVec
	expensesRecorded   *prometheus.CounterVec
	settlementsPlanned prometheus.Histogram
	auditRuns          prometheus.Counter
	auditViolations    prometheus.Counter
	eventPublishErrors prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC requests by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		expensesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_recorded_total",
			Help:      "Expenses written, by split type.",
		}, []string{"split_type"}),
		settlementsPlanned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlements_per_plan",
			Help:      "Number of payments in each computed settle-up plan.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		auditRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_total",
			Help:      "Completed ledger audits.",
		}),
		auditViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_invariant_violations_total",
			Help:      "Problems found by ledger audits.",
		}),
		eventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Domain events that could not be published.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.expensesRecorded,
		m.settlementsPlanned,
		m.auditRuns,
		m.auditViolations,
		m.eventPublishErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

func (m *Metrics) ExpenseRecorded(splitType string) {
	if m == nil {
		return
	}
	m.expensesRecorded.WithLabelValues(splitType).Inc()
}

func (m *Metrics) SettlementsPlanned(n int) {
	if m == nil {
		return
	}
	m.settlementsPlanned.Observe(float64(n))
}

func (m *Metrics) AuditCompleted(violations int) {
	if m == nil {
		return
	}
	m.auditRuns.Inc()
	m.auditViolations.Add(float64(violations))
}

func (m *Metrics) EventPublishFailed() {
	if m == nil {
		return
	}
	m.eventPublishErrors.Inc()
}
