package middleware

import (
	"strconv"
	"time"

	"github.com/communehq/commune/internal/metrics"
	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route so 404 scans do not
// explode label cardinality.
const unmatchedRoute = "unmatched"

// Metrics collects HTTP metrics for Prometheus. Paths are labeled by route
// template (/api/v1/posts/:id), never the raw URL.
func Metrics() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		m.HTTPActiveConnections.Inc()
		defer m.HTTPActiveConnections.Dec()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		method := c.Request.Method
		// Numeric status so queries like status=~"5.." work.
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

// RecordRateLimitExceeded counts a rejected request.
func RecordRateLimitExceeded(c *gin.Context) {
	path := c.FullPath()
	if path == "" {
		path = unmatchedRoute
	}
	metrics.Get().RateLimitExceededTotal.WithLabelValues(path, c.Request.Method).Inc()
}
