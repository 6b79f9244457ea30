package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.RecordEscalation("automatic")
	m.RecordEscalation("automatic")
	m.RecordEscalation("manual")
	m.RecordResolution()
	m.RecordDelivery(metrics.OutcomeFailed, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EscalationsCreated.WithLabelValues("automatic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EscalationsCreated.WithLabelValues("manual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EscalationsResolved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeFailed)))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.RecordResolution()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.EscalationsResolved))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EscalationsResolved))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.RecordEscalation("manual")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `escalations_created_total{trigger="manual"} 1`)
}
