package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPredictions(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordPredictions("csv", 3)
	m.RecordPredictions("manual", 1)
	m.RecordPredictions("csv", 2)

	assert.InDelta(t, 5, testutil.ToFloat64(m.predictionsTotal.WithLabelValues("csv")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.predictionsTotal.WithLabelValues("manual")), 0.001)
}

func TestRecordError(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordError("csv", "schema_mismatch")
	m.RecordError("csv", "schema_mismatch")

	assert.InDelta(t, 2, testutil.ToFloat64(m.predictionErrorTotal.WithLabelValues("csv", "schema_mismatch")), 0.001)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPredictions("csv", 1)
		m.RecordError("csv", "upstream")
		m.ObserveUpstream("predict_batch", "ok", time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.ObserveUpstream("predict_batch", "ok", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "inference_request_duration_seconds"))
}
