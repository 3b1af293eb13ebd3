package handlers

import (
	"github.com/gin-gonic/gin"

	"tictactoe/internal/domain"
	"tictactoe/internal/http/middleware"
	"tictactoe/internal/service"
)

type Handler struct {
	Games  *service.GameService
	Auth   *service.AuthService
	Users  domain.UserRepository
	Events service.EventPublisher
}

func NewHandler(games *service.GameService, auth *service.AuthService, users domain.UserRepository, events service.EventPublisher) *Handler {
	return &Handler{
		Games:  games,
		Auth:   auth,
		Users:  users,
		Events: events,
	}
}

// getUserID reads the id stored by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
