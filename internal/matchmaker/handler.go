package matchmaker

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /match/join  body: {gameType}
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room, queued, err := h.svc.Join(c.Request.Context(), c.GetString("identity"), req.GameType)
	switch {
	case errors.Is(err, ErrUnknownGameType):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrAlreadyMatched):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "gameId": room.ID, "gameType": room.GameType})
		return
	case errors.Is(err, ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if queued {
		c.JSON(http.StatusOK, JoinResponse{Queued: true, GameType: req.GameType})
		return
	}
	c.JSON(http.StatusOK, JoinResponse{
		Queued: false, GameType: room.GameType, GameID: room.ID, TableSize: room.TableSize,
	})
}

// POST /match/cancel
func (h *Handler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.GetString("identity")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /match/status
func (h *Handler) Status(c *gin.Context) {
	room, err := h.svc.Status(c.Request.Context(), c.GetString("identity"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if room == nil {
		c.JSON(http.StatusOK, StatusResponse{Matched: false})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Matched: true, GameType: room.GameType, GameID: room.ID})
}
