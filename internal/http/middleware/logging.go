package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tictactoe/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags the request context with a logger carrying the request id.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		l := logger.With("request_id", id)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), l))
		c.Next()
	}
}
