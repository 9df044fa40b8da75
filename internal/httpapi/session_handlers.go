package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/squeezyhq/squeezy/internal/session"
)

// sessionHandlers serves device-session management for the logged-in user.
type sessionHandlers struct {
	sessions *session.Service
	logger   *slog.Logger
}

func (h *sessionHandlers) list(c *gin.Context) {
	infos, err := h.sessions.List(c.Request.Context(), currentUser(c).ID, currentSessionID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Retrieved all sessions successfully",
		"sessions": infos,
	})
}

func (h *sessionHandlers) current(c *gin.Context) {
	user, err := h.sessions.Current(c.Request.Context(), currentSessionID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *sessionHandlers) delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id"), currentUser(c).ID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session removed successfully"})
}
