// Package middleware provides the gin middleware chain: request logging,
// CORS, bearer-token auth, and per-client rate limiting.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/prometheus"
)

const (
	// HeaderRequestID carries the request correlation ID.
	HeaderRequestID = "X-Request-ID"
	// ContextKeyUserID is the gin context key set by the auth middleware.
	ContextKeyUserID = "user_id"
)

// RequestLogging logs each request with latency and status, and records the
// HTTP metrics.  A missing X-Request-ID is filled in so downstream log lines
// correlate.
func RequestLogging(logger logging.Logger, metrics *prometheus.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if metrics != nil {
			metrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)
		}

		fields := []logging.Field{
			logging.String("request_id", requestID),
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("elapsed", elapsed),
			logging.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request served", fields...)
		}
	}
}
