package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

// RequestLogger logs one structured line per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithHTTPContext(c.Request.Method, c.Request.URL.Path, c.Request.UserAgent()).WithFields(logrus.Fields{
			"status":    status,
			"latency":   time.Since(startTime),
			"client_ip": c.ClientIP(),
		})
		if runID := c.Param("id"); runID != "" {
			entry = entry.WithField("run_id", runID)
		}
		if c.Request.URL.RawQuery != "" {
			entry = entry.WithField("query", c.Request.URL.RawQuery)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Internal Server Error")
		case status >= 400:
			entry.Warn("Client Error")
		default:
			entry.Info("Request completed")
		}
	}
}
