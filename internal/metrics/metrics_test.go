package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("test")
	c.RecordAnalysis("demo-fallback", "red")
	c.RecordAnalysis("demo-fallback", "red")
	c.RecordFallback("timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.analysesTotal.WithLabelValues("demo-fallback", "red")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacksTotal.WithLabelValues("timeout")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAnalysis("demo", "green")
		c.RecordFallback("x")
		c.ObserveRemote(time.Second)
		c.RecordNotification("mqtt", true)
		c.RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordHTTPRequest(http.MethodPost, "/api/clinical/analyze", 200, 10*time.Millisecond)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="POST",route="/api/clinical/analyze",service="test",status_code="200"} 1`)
}
