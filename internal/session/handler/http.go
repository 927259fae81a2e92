// Package handler exposes session management over HTTP. All routes require
// an authenticated organizer; mutations additionally require ownership.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall/backend/internal/geo"
	"rollcall/backend/internal/platform/rbac"
	"rollcall/backend/internal/server/middleware"
	"rollcall/backend/internal/session/domain"
	"rollcall/backend/internal/session/repository"
)

type Handler struct {
	sessions repository.Repository
}

// New returns the session HTTP handler.
func New(sessions repository.Repository) *Handler {
	return &Handler{sessions: sessions}
}

type createSessionRequest struct {
	Title        string   `json:"title" binding:"required"`
	Visibility   string   `json:"visibility"`
	RewardPoints int      `json:"rewardPoints"`
	FenceLat     *float64 `json:"fenceLat"`
	FenceLng     *float64 `json:"fenceLng"`
	FenceRadiusM *float64 `json:"fenceRadiusM"`
}

type sessionResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Visibility   string   `json:"visibility"`
	Status       string   `json:"status"`
	RewardPoints int      `json:"rewardPoints"`
	FenceLat     *float64 `json:"fenceLat,omitempty"`
	FenceLng     *float64 `json:"fenceLng,omitempty"`
	FenceRadiusM *float64 `json:"fenceRadiusM,omitempty"`
	CreatedAt    int64    `json:"createdAtEpochSeconds"`
}

func toResponse(s *domain.Session) sessionResponse {
	out := sessionResponse{
		ID:           s.ID,
		Title:        s.Title,
		Visibility:   string(s.Visibility),
		Status:       string(s.Status),
		RewardPoints: s.RewardPoints,
		CreatedAt:    s.CreatedAt.Unix(),
	}
	if s.Fence != nil {
		out.FenceLat = &s.Fence.Center.Lat
		out.FenceLng = &s.Fence.Center.Lng
		out.FenceRadiusM = &s.Fence.RadiusM
	}
	return out
}

// Create handles POST /api/sessions.
func (h *Handler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := &domain.Session{
		ID:           uuid.New().String(),
		OrganizerID:  middleware.OrganizerID(c),
		Title:        req.Title,
		Visibility:   domain.VisibilityPublic,
		Status:       domain.StatusOpen,
		RewardPoints: req.RewardPoints,
		CreatedAt:    time.Now().UTC(),
	}
	if req.Visibility != "" {
		s.Visibility = domain.Visibility(req.Visibility)
	}
	if req.FenceLat != nil && req.FenceLng != nil && req.FenceRadiusM != nil {
		s.Fence = &geo.Fence{
			Center:  geo.Point{Lat: *req.FenceLat, Lng: *req.FenceLng},
			RadiusM: *req.FenceRadiusM,
		}
	}
	if err := s.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sessions.Create(c.Request.Context(), s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, toResponse(s))
}

// Get handles GET /api/sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.sessions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(s))
}

// List handles GET /api/sessions (the caller's own sessions).
func (h *Handler) List(c *gin.Context) {
	list, err := h.sessions.ListByOrganizer(c.Request.Context(), middleware.OrganizerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// Close handles POST /api/sessions/:id/close.
func (h *Handler) Close(c *gin.Context) {
	id := c.Param("id")
	if !h.requireOwner(c, id) {
		return
	}
	if err := h.sessions.UpdateStatus(c.Request.Context(), id, domain.StatusClosed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.StatusClosed)})
}

// Delete handles DELETE /api/sessions/:id. Rounds and attendance records cascade.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.requireOwner(c, id) {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
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
