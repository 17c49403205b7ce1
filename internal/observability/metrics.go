package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	responses        *CounterVec
	responseLatency  *HistogramVec
	masteryDelta     *HistogramVec
	signalFallbacks  *Counter
	recommendations  *CounterVec
	dbStats          *GaugeVec
	redisUp          *Gauge
	redisPingSeconds *Gauge

	all []collector
}

func NewMetrics() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("mastery_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"mastery_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		),
		apiInflight: NewGauge("mastery_api_inflight_requests", "In-flight API requests."),
		responses:   NewCounterVec("mastery_responses_total", "Processed responses by outcome and failed stage.", []string{"outcome", "stage"}),
		responseLatency: NewHistogramVec(
			"mastery_response_duration_seconds",
			"End-to-end response processing latency.",
			[]string{"outcome"},
			nil,
		),
		masteryDelta: NewHistogramVec(
			"mastery_delta",
			"Change in mastery per committed response.",
			nil,
			[]float64{-0.5, -0.2, -0.1, -0.05, -0.01, 0, 0.01, 0.05, 0.1, 0.2, 0.5},
		),
		signalFallbacks:  NewCounter("mastery_signal_fallbacks_total", "Responses processed without a recent-performance signal because history could not be read."),
		recommendations:  NewCounterVec("mastery_recommendations_total", "Next-item requests by result.", []string{"result"}),
		dbStats:          NewGaugeVec("mastery_db_stats", "database/sql pool statistics.", []string{"stat"}),
		redisUp:          NewGauge("mastery_redis_up", "1 when the last Redis ping succeeded."),
		redisPingSeconds: NewGauge("mastery_redis_ping_seconds", "Latency of the last Redis ping."),
	}
	m.all = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.responses, m.responseLatency, m.masteryDelta, m.signalFallbacks,
		m.recommendations, m.dbStats, m.redisUp, m.redisPingSeconds,
	}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(strings.ToUpper(method), route, status)
	m.apiLatency.Observe(dur.Seconds(), strings.ToUpper(method), route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

// ObserveResponse implements services.PipelineObserver.
func (m *Metrics) ObserveResponse(failedStage string, dur time.Duration, delta float64) {
	if m == nil {
		return
	}
	if failedStage != "" {
		m.responses.Inc("error", strings.ToLower(failedStage))
		m.responseLatency.Observe(dur.Seconds(), "error")
		return
	}
	m.responses.Inc("ok", "done")
	m.responseLatency.Observe(dur.Seconds(), "ok")
	m.masteryDelta.Observe(delta)
}

func (m *Metrics) IncSignalFallback() {
	if m == nil {
		return
	}
	m.signalFallbacks.Inc()
}

// ObserveRecommendation counts next-item requests; result is "item", "empty"
// or "error".
func (m *Metrics) ObserveRecommendation(result string) {
	if m == nil {
		return
	}
	m.recommendations.Inc(result)
}

// StartDBCollector samples connection-pool stats every interval until ctx is
// done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	go every(ctx, interval, func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
			return
		}
		stats := sqlDB.Stats()
		m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
		m.dbStats.Set(float64(stats.InUse), "in_use")
		m.dbStats.Set(float64(stats.Idle), "idle")
		m.dbStats.Set(float64(stats.WaitCount), "wait_count")
		m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	})
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	go every(ctx, interval, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			log.Warn("metrics: redis ping failed", "error", err)
			return
		}
		m.redisUp.Set(1)
		m.redisPingSeconds.Set(time.Since(start).Seconds())
	})
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
