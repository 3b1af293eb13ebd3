package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// GetLeaderboard returns the top users by points
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := defaultLeaderboardLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	top, err := h.Users.GetTopByPoints(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}
