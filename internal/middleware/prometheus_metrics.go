package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/metrics"
)

// unmatchedRoute labels requests that hit no route, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// MetricsMiddleware collects HTTP metrics for Prometheus. Paths are labelled
// by route template (/api/v1/shares/:id), never by raw URL.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		m.HTTPActiveConnections.WithLabelValues(method, route).Inc()
		defer m.HTTPActiveConnections.WithLabelValues(method, route).Dec()

		if c.Request.ContentLength > 0 {
			m.HTTPRequestSize.WithLabelValues(method, route).Observe(float64(c.Request.ContentLength))
		}

		startTime := time.Now()
		c.Next()

		status := c.Writer.Status()
		// numeric status labels let dashboards match status=~"5.."
		statusStr := strconv.Itoa(status)

		m.HTTPRequestsTotal.WithLabelValues(method, route, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route, statusStr).Observe(time.Since(startTime).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, route, statusStr).Observe(float64(size))
		}
		if status >= http.StatusInternalServerError {
			m.ErrorsTotal.WithLabelValues("http_"+statusStr, route).Inc()
		}
	}
}
