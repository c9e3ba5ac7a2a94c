package mock

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/milan604/netlayer/pkg/logger"
)

const headerRequestID = "X-Request-ID"

// requestIDMiddleware echoes the client's request id, or a new one, and
// stores it in the request context for logging.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, reqID))
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// accessLogMiddleware logs each served fixture after completion.
func accessLogMiddleware(l logger.LogManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fixture := "-"
		if m, ok := FromRequest(c.Request); ok {
			fixture = m.FileName()
		}
		status := c.Writer.Status()
		entry := l.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"fixture", fixture,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if status >= 500 {
			entry.ErrorFCtx(c.Request.Context(), "mock request")
		} else {
			entry.InfoFCtx(c.Request.Context(), "mock request")
		}
	}
}
