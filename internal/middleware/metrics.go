package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records latency and in-flight count per matched route. The scrape
// endpoint itself is not observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		done := metricsSvc.TrackInFlight()
		start := time.Now()
		c.Next()
		done()
		metricsSvc.ObserveHTTPRequest(strings.ToUpper(c.Request.Method), routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

// routeLabel is the route template, never the raw path, so ids and scanner
// probes cannot inflate series cardinality.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
