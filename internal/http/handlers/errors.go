package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCellOccupied), errors.Is(err, domain.ErrNotYourTurn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ..., "code": ...}.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg, "code": domain.ErrorCode(err)})
}
