package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/metrics"
)

// Metrics instruments HTTP request counts and latency per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.HTTPStarted()
		c.Next()
		done(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
