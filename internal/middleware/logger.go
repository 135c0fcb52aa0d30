package middleware

import (
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs every HTTP request with latency and caller info.
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		userID := uint(0)
		if id, exists := c.Get("userID"); exists {
			if idUint, ok := id.(uint); ok {
				userID = idUint
			}
		}

		logger.Info("http request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": latency.String(),
			"ip":      c.ClientIP(),
			"userID":  userID,
		})
	}
}
