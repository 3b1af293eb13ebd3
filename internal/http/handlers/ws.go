package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tictactoe/internal/logger"
	"tictactoe/internal/service"
	"tictactoe/internal/ws"
)

// WS authenticates ?token= and hands the upgraded connection to the hub.
func (h *Handler) WS(hub *ws.Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		// JWT from query
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "user_id", userID, "error", err)
			return
		}

		client := ws.NewClient(userID, conn, hub)
		// the request context ends when this handler returns
		ctx := context.WithoutCancel(c.Request.Context())
		ctx = logger.IntoContext(ctx, logger.WithContext(ctx).With("user_id", userID))
		go client.Run(ctx)
	}
}
