package utils

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	RequestIDHeader     = "X-Request-ID"
	// CorrelationIDKey is the gin context key set by the request ID middleware
	CorrelationIDKey = "correlation_id"
)

// GetCorrelationID gets or generates a correlation ID for request tracing
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(CorrelationIDKey); id != "" {
		return id
	}
	return CorrelationIDFromRequest(c.Request)
}

// CorrelationIDFromRequest reads the tracing headers, generating an ID when both are absent
func CorrelationIDFromRequest(r *http.Request) string {
	if id := r.Header.Get(CorrelationIDHeader); id != "" {
		return id
	}
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// WriteError writes the standard error envelope
func WriteError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":           code,
			"message":        message,
			"correlation_id": GetCorrelationID(c),
		},
	})
}

// GetQueryParamInt gets an integer query parameter with a default value
func GetQueryParamInt(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
