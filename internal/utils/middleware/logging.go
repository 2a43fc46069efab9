package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/praxis/server/internal/shared/logger"
)

// Logging logs one record per request and exposes a request-scoped logger on the request context.
func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With(logger.RequestID(GetRequestID(c)))
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if ua := c.Request.UserAgent(); ua != "" {
			attrs = append(attrs, "user_agent", ua)
		}
		if sub := GetSubject(c); sub != "" {
			attrs = append(attrs, logger.UserID(sub))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			reqLog.ErrorContext(ctx, "http request", attrs...)
		case status >= 400:
			reqLog.WarnContext(ctx, "http request", attrs...)
		default:
			reqLog.InfoContext(ctx, "http request", attrs...)
		}
	}
}
