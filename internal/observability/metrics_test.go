package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

func TestObserveResponseSplitsOutcomes(t *testing.T) {
	m := NewMetrics()
	m.ObserveResponse("", 10*time.Millisecond, 0.25)
	m.ObserveResponse("", 5*time.Millisecond, -0.05)
	m.ObserveResponse("PERSIST", time.Millisecond, 0)
	m.IncSignalFallback()

	assert.Equal(t, 2.0, m.responses.Value("ok", "done"))
	assert.Equal(t, 1.0, m.responses.Value("error", "persist"))
	assert.Equal(t, 1.0, m.signalFallbacks.Value())

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `mastery_responses_total{outcome="ok",stage="done"} 2`)
	assert.Contains(t, out, `mastery_delta_bucket{le="0"} 1`)
	assert.Contains(t, out, `mastery_delta_bucket{le="+Inf"} 2`)
	assert.Contains(t, out, "mastery_delta_count 2")
	assert.Contains(t, out, "# TYPE mastery_signal_fallbacks_total counter")
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := NewHistogramVec("h", "test", []string{"k"}, []float64{1, 0.1})
	h.Observe(0.05, "a")
	h.Observe(0.5, "a")
	h.Observe(5, "a")

	var buf bytes.Buffer
	require.NoError(t, h.WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `h_bucket{k="a",le="0.1"} 1`)
	assert.Contains(t, out, `h_bucket{k="a",le="1"} 2`)
	assert.Contains(t, out, `h_bucket{k="a",le="+Inf"} 3`)
	assert.Contains(t, out, `h_count{k="a"} 3`)
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route", "status"}, []string{`/a"b`})
	assert.Equal(t, `{route="/a\"b",status="unknown"}`, got)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveResponse("", time.Millisecond, 0.1)
	m.IncSignalFallback()
	m.ObserveRecommendation("item")

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteHTTPServesTextFormat(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("get", "/api/x", "200", 3*time.Millisecond)
	m.ObserveRecommendation("empty")

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), `mastery_api_requests_total{method="GET",route="/api/x",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `mastery_recommendations_total{result="empty"} 1`)
}

func TestDBCollectorSamplesPool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(3)

	m := NewMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartDBCollector(ctx, logger.Nop(), db, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		var buf bytes.Buffer
		_ = m.dbStats.WritePrometheus(&buf)
		return strings.Contains(buf.String(), `mastery_db_stats{stat="max_open_connections"} 3`)
	}, time.Second, 5*time.Millisecond)
}

func TestParseHeaders(t *testing.T) {
	assert.Nil(t, parseHeaders(""))
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, parseHeaders(" a=1, bad ,b=x=y,=z"))
}
