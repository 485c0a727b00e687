// README: Request logging, request ids and HTTP metrics.
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campusride/internal/observability"
)

const ctxRequestID = "request_id"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func Logging(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start)
		observability.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(elapsed.Seconds())

		log.Info("http_request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", c.ClientIP(),
			"request_id", c.GetString(ctxRequestID),
		)
	}
}
