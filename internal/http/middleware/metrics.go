package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// APIObserver records per-request metrics.
type APIObserver interface {
	ObserveAPI(method, route, status string, dur time.Duration)
	APIInflight(delta float64)
}

// Metrics instruments request counts and latency. A nil observer disables it.
func Metrics(m APIObserver) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.APIInflight(1)
		defer m.APIInflight(-1)

		c.Next()

		m.ObserveAPI(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
