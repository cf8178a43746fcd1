package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/logger"
)

// LoggingMiddleware logs one line per request once it has been served.
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"clientIp", c.ClientIP(),
		}
		if id := GetCorrelationID(c); id != "" {
			kv = append(kv, "correlationId", id)
		}
		if subject, ok := GetSubject(c); ok && subject != "" {
			kv = append(kv, "subject", subject)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
