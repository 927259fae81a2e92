// Package handler exposes round management over HTTP.
package handler

import (
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall/backend/internal/platform/rbac"
	"rollcall/backend/internal/round/domain"
	"rollcall/backend/internal/round/repository"
	"rollcall/backend/internal/server/middleware"
)

// secretLen is the byte length of the generated per-round token secret.
const secretLen = 32

type Handler struct {
	rounds   repository.Repository
	sessions rbac.SessionGetter
}

// New returns the round HTTP handler.
func New(rounds repository.Repository, sessions rbac.SessionGetter) *Handler {
	return &Handler{rounds: rounds, sessions: sessions}
}

type createRoundRequest struct {
	Date           string `json:"date" binding:"required"`      // YYYY-MM-DD
	StartTime      string `json:"startTime" binding:"required"` // HH:MM or HH:MM:SS
	AllowedMinutes int    `json:"allowedMinutes" binding:"required,min=1"`
}

// roundResponse carries everything a client may see. The secret is never
// included; only tokens derived from it are shared.
type roundResponse struct {
	ID             string `json:"id"`
	SessionID      string `json:"sessionId"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	AllowedMinutes int    `json:"allowedMinutes"`
	Status         string `json:"status"`
	RemainingSecs  int64  `json:"remainingSeconds"`
}

func toResponse(r *domain.Round, now time.Time) roundResponse {
	return roundResponse{
		ID:             r.ID,
		SessionID:      r.SessionID,
		Date:           r.Date.Format("2006-01-02"),
		StartTime:      r.StartTime.String(),
		AllowedMinutes: r.AllowedMinutes,
		// Always the derived status, not the cached column.
		Status:        string(r.ComputeStatus(now)),
		RemainingSecs: r.RemainingSeconds(now),
	}
}

// Create handles POST /api/sessions/:id/rounds.
func (h *Handler) Create(c *gin.Context) {
	sessionID := c.Param("id")
	if !h.requireOwner(c, sessionID) {
		return
	}

	var req createRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	startTime, err := domain.ParseClockTime(req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate round secret"})
		return
	}

	now := time.Now()
	r := &domain.Round{
		ID:             uuid.New().String(),
		SessionID:      sessionID,
		Date:           date,
		StartTime:      startTime,
		AllowedMinutes: req.AllowedMinutes,
		Secret:         secret,
		CreatedAt:      now.UTC(),
	}
	r.Status = r.ComputeStatus(now)
	if err := h.rounds.Create(c.Request.Context(), r); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create round"})
		return
	}
	c.JSON(http.StatusCreated, toResponse(r, now))
}

// Get handles GET /api/rounds/:id.
func (h *Handler) Get(c *gin.Context) {
	r, err := h.rounds.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(r, time.Now()))
}

// ListBySession handles GET /api/sessions/:id/rounds.
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID := c.Param("id")
	if !h.requireOwner(c, sessionID) {
		return
	}
	list, err := h.rounds.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	now := time.Now()
	out := make([]roundResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toResponse(r, now))
	}
	c.JSON(http.StatusOK, gin.H{"rounds": out})
}

// Delete handles DELETE /api/rounds/:id.
func (h *Handler) Delete(c *gin.Context) {
	r, err := h.rounds.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	}
	if !h.requireOwner(c, r.SessionID) {
		return
	}
	if err := h.rounds.Delete(c.Request.Context(), r.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete round"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) requireOwner(c *gin.Context, sessionID string) bool {
	err := rbac.RequireSessionAdmin(c.Request.Context(), h.sessions, middleware.OrganizerID(c), sessionID)
	switch {
	case errors.Is(err, rbac.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, rbac.ErrNotSessionAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "not an organizer of this session"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
	default:
		return true
	}
	return false
}
