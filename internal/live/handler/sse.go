// Package handler bridges the broadcast hub onto Server-Sent Events.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/backend/internal/live"
	"rollcall/backend/internal/server/middleware"
)

type Handler struct {
	hub *live.Hub
}

// New returns the live-stream HTTP handler.
func New(hub *live.Hub) *Handler {
	return &Handler{hub: hub}
}

// Stream handles GET /api/rounds/:id/live. It subscribes the organizer's
// connection to the round's feed and relays pushes as SSE events until the
// client disconnects or the feed closes (round ended, prune, or shutdown).
func (h *Handler) Stream(c *gin.Context) {
	sub, err := h.hub.Subscribe(c.Request.Context(), c.Param("id"), middleware.OrganizerID(c))
	switch {
	case errors.Is(err, live.ErrRoundNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	case errors.Is(err, live.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not an organizer of this round's session"})
		return
	case errors.Is(err, live.ErrRoundNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": "round is not active"})
		return
	case errors.Is(err, live.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open live stream"})
		return
	}
	defer h.hub.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			if ev.Data != nil {
				c.SSEvent(ev.Name, ev.Data)
			} else {
				c.SSEvent(ev.Name, "")
			}
			return true
		}
	})
}
