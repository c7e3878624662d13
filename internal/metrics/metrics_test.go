package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRPC("/x", "ok", time.Second)
		m.ExpenseRecorded("equal")
		m.SettlementsPlanned(3)
		m.AuditCompleted(1)
		m.EventPublishFailed()
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.ExpenseRecorded("equal")
	m.ExpenseRecorded("equal")
	m.ExpenseRecorded("custom")
	m.AuditCompleted(2)
	m.AuditCompleted(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.expensesRecorded.WithLabelValues("equal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expensesRecorded.WithLabelValues("custom")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.auditRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.auditViolations))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRPC("/splitledger.v1.GroupService/CreateGroup", "ok", 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `splitledger_rpc_requests_total{code="ok",procedure="/splitledger.v1.GroupService/CreateGroup"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
