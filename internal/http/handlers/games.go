package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tictactoe/internal/domain"
	"tictactoe/internal/service"
)

type JoinRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// GetGame returns a session snapshot by id.
func (h *Handler) GetGame(c *gin.Context) {
	s, err := h.Games.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// GetGameByInvite resolves an open invite code.
func (h *Handler) GetGameByInvite(c *gin.Context) {
	s, err := h.Games.FindByInviteCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) CreateGame(c *gin.Context) {
	p, ok := h.player(c)
	if !ok {
		return
	}
	res, err := h.Games.Create(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(res)
	c.JSON(http.StatusCreated, res.Session.View())
}

func (h *Handler) JoinGame(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	p, ok := h.player(c)
	if !ok {
		return
	}
	res, err := h.Games.Join(c.Request.Context(), req.InviteCode, p)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(res)
	c.JSON(http.StatusOK, res.Session.View())
}

// player resolves the authenticated caller; it writes the error response itself.
func (h *Handler) player(c *gin.Context) (domain.Player, bool) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.Player{}, false
	}
	p, err := h.Auth.Player(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return domain.Player{}, false
	}
	return p, true
}

func (h *Handler) publish(res service.Result) {
	if h.Events != nil {
		h.Events.Publish(res.Session.ID, res.Events)
	}
}
