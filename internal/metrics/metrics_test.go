package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAssessment(t *testing.T) {
	m := New("test")

	m.ObserveAssessment("api", &domain.ContractRiskAssessment{
		RiskLevel: domain.SeverityHigh,
		Duration:  20 * time.Millisecond,
		Compliance: &domain.ComplianceAssessment{
			OverallLevel: domain.LevelMajorIssues,
			Violations: []domain.ComplianceViolation{
				{Severity: domain.SeverityHigh},
				{Severity: domain.SeverityHigh},
				{Severity: domain.SeverityLow},
			},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("assess", "api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskLevels.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComplianceLevels.WithLabelValues("major_issues")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Violations.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("low")))
}

func TestObserveCompliance(t *testing.T) {
	m := New("test")

	m.ObserveCompliance("api", &domain.ComplianceAssessment{
		OverallLevel: domain.LevelCompliant,
	})
	m.ObserveCompliance("api", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("validate", "api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComplianceLevels.WithLabelValues("compliant")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCache(true)
		m.ObserveHTTP("/assess", http.MethodPost, http.StatusOK, time.Millisecond)
		m.ObserveAssessment("api", &domain.ContractRiskAssessment{})
	})
}

func TestInstancesDoNotCollide(t *testing.T) {
	a := New("")
	b := New("")

	a.ObserveCache(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheLookups.WithLabelValues("hit")))
}

func TestHandler(t *testing.T) {
	m := New("clauseguard")
	m.ObserveHTTP("/validate", http.MethodPost, http.StatusOK, 5*time.Millisecond)
	m.Alerts.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `clauseguard_http_requests_total{method="POST",route="/validate",status="200"} 1`))
	assert.True(t, strings.Contains(body, "clauseguard_alerts_total 1"))
}

func TestWatchBusDrops(t *testing.T) {
	m := New("test")

	var dropped int64
	m.WatchBusDrops(func() int64 { return dropped })
	dropped = 3

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test_bus_dropped_messages_total 3")

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.WatchBusDrops(func() int64 { return 0 }) })
}
