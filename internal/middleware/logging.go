package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"truthlens/internal/logger"
	"truthlens/internal/utils"
)

// LoggingMiddleware logs HTTP requests with structured logging
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]interface{}{
			"correlation_id": utils.GetCorrelationID(c),
			"method":         c.Request.Method,
			"path":           path,
			"route":          c.FullPath(),
			"status":         c.Writer.Status(),
			"latency_ms":     time.Since(start).Milliseconds(),
			"client_ip":      c.ClientIP(),
			"user_agent":     c.Request.UserAgent(),
			"response_size":  c.Writer.Size(),
		}

		entry := logger.Log.WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("HTTP request processed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("HTTP request processed")
		default:
			entry.Info("HTTP request processed")
		}
	}
}

// RequestIDMiddleware adds correlation ID to request context
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := utils.CorrelationIDFromRequest(c.Request)
		c.Set(utils.CorrelationIDKey, correlationID)
		c.Header(utils.CorrelationIDHeader, correlationID)
		c.Next()
	}
}

// RecoveryMiddleware turns handler panics into a logged 500 with the error envelope
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		correlationID := utils.GetCorrelationID(c)
		logger.LogErrorWithStackAndCorrelation(fmt.Errorf("panic: %v", recovered), correlationID, map[string]interface{}{
			"operation": "http_handler",
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
		})
		utils.WriteError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		c.Abort()
	})
}
