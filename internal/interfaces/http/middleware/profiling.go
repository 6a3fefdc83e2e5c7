package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling label names
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelOperation = "operation"
)

// Profiling tags the CPU samples of each request with its route, method
// and operation so profiles can be filtered per endpoint
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := []string{ProfilingLabelRoute, route, ProfilingLabelMethod, c.Request.Method}
		if op := operationFromRoute(route); op != "" {
			labels = append(labels, ProfilingLabelOperation, op)
		}
		pyroscope.TagWrapper(c.Request.Context(), pyroscope.Labels(labels...), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// operationFromRoute returns the last static segment of route,
// e.g. "/api/v1/orders/submit" -> "submit"
func operationFromRoute(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := parts[i]; p != "" && !strings.HasPrefix(p, ":") && !strings.HasPrefix(p, "*") {
			return p
		}
	}
	return ""
}
