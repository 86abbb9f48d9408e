// Package metrics exposes Prometheus instruments for assessments and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	evaluationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	httpBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// Metrics holds every instrument on its own registry, so several instances
// can coexist in one process.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	Evaluations       *prometheus.CounterVec
	Violations        *prometheus.CounterVec
	RiskLevels        *prometheus.CounterVec
	ComplianceLevels  *prometheus.CounterVec
	EvaluationLatency *prometheus.HistogramVec
	CacheLookups      *prometheus.CounterVec
	Alerts            prometheus.Counter
	RateLimited       prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers all instruments under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "clauseguard"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		namespace: namespace,
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Contract evaluations by kind (validate, assess) and source (api, worker, cache).",
		}, []string{"kind", "source"}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Compliance violations found, by severity.",
		}, []string{"severity"}),
		RiskLevels: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_levels_total",
			Help:      "Completed risk assessments by overall risk level.",
		}, []string{"level"}),
		ComplianceLevels: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_levels_total",
			Help:      "Compliance assessments by overall level.",
		}, []string{"level"}),
		EvaluationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent in the evaluation pipeline.",
			Buckets:   evaluationBuckets,
		}, []string{"kind"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Assessment cache lookups by result (hit, miss).",
		}, []string{"result"}),
		Alerts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Assessment alerts published.",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-tenant rate limit.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   httpBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveCompliance records one compliance evaluation.
func (m *Metrics) ObserveCompliance(source string, a *domain.ComplianceAssessment) {
	if m == nil || a == nil {
		return
	}
	m.Evaluations.WithLabelValues("validate", source).Inc()
	m.ComplianceLevels.WithLabelValues(string(a.OverallLevel)).Inc()
	for _, v := range a.Violations {
		m.Violations.WithLabelValues(string(v.Severity)).Inc()
	}
	m.EvaluationLatency.WithLabelValues("validate").Observe(a.Duration.Seconds())
}

// ObserveAssessment records one full risk assessment, including its
// compliance stage.
func (m *Metrics) ObserveAssessment(source string, a *domain.ContractRiskAssessment) {
	if m == nil || a == nil {
		return
	}
	m.Evaluations.WithLabelValues("assess", source).Inc()
	m.RiskLevels.WithLabelValues(string(a.RiskLevel)).Inc()
	if c := a.Compliance; c != nil {
		m.ComplianceLevels.WithLabelValues(string(c.OverallLevel)).Inc()
		for _, v := range c.Violations {
			m.Violations.WithLabelValues(string(v.Severity)).Inc()
		}
	}
	m.EvaluationLatency.WithLabelValues("assess").Observe(a.Duration.Seconds())
}

// ObserveCache records an assessment cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// WatchBusDrops exports dropped as bus_dropped_messages_total, read at
// scrape time. Call it once per Metrics.
func (m *Metrics) WatchBusDrops(dropped func() int64) {
	if m == nil || dropped == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "bus_dropped_messages_total",
		Help:      "Bus messages discarded because a subscriber buffer was full.",
	}, func() float64 { return float64(dropped()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
