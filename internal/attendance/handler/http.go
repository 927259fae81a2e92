// Package handler exposes check-in submission and attendance listing over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/backend/internal/attendance/domain"
	"rollcall/backend/internal/attendance/repository"
	"rollcall/backend/internal/attendance/service"
	"rollcall/backend/internal/geo"
	"rollcall/backend/internal/platform/rbac"
	"rollcall/backend/internal/server/middleware"
)

type Handler struct {
	checkin     *service.CheckIn
	attendances repository.Repository
	rounds      service.RoundGetter
	sessions    rbac.SessionGetter
}

// New returns the attendance HTTP handler.
func New(
	checkin *service.CheckIn,
	attendances repository.Repository,
	rounds service.RoundGetter,
	sessions rbac.SessionGetter,
) *Handler {
	return &Handler{checkin: checkin, attendances: attendances, rounds: rounds, sessions: sessions}
}

type checkInRequest struct {
	RoundID       string  `json:"roundId" binding:"required"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	DisplayName   string  `json:"displayName"`
	ParticipantID string  `json:"participantId"`
	Token         string  `json:"token"`
}

// checkInResponse is the verdict object returned for every submission,
// accepted or rejected. FailureReason is machine-readable; the human text
// rides in error.
type checkInResponse struct {
	Success          bool   `json:"success"`
	Status           string `json:"status,omitempty"`
	FailureReason    string `json:"failureReason,omitempty"`
	Error            string `json:"error,omitempty"`
	AttendanceID     string `json:"attendanceId,omitempty"`
	AwardedPoints    int    `json:"awardedPoints,omitempty"`
	CheckedAt        int64  `json:"checkedAtEpochSeconds,omitempty"`
	RemainingSeconds int64  `json:"remainingSeconds,omitempty"`
}

// CheckIn handles POST /api/checkin. The route is public: anonymous
// participants identify by display name only.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, checkInResponse{
			Success: false, FailureReason: "bad_request", Error: err.Error(),
		})
		return
	}

	res, err := h.checkin.Do(c.Request.Context(), service.Request{
		RoundID:       req.RoundID,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		Location:      geo.Point{Lat: req.Latitude, Lng: req.Longitude},
		Token:         req.Token,
	})
	if err != nil {
		status, reason := rejection(err)
		c.JSON(status, checkInResponse{Success: false, FailureReason: reason, Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, checkInResponse{
		Success:          true,
		Status:           string(res.Status),
		AttendanceID:     res.AttendanceID,
		AwardedPoints:    res.AwardedPoints,
		CheckedAt:        res.CheckedAt.Unix(),
		RemainingSeconds: res.RemainingSeconds,
	})
}

// rejection maps a check-in error to its HTTP status and structured reason.
func rejection(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrRoundNotFound):
		return http.StatusNotFound, "round_not_found"
	case errors.Is(err, service.ErrDuplicateCheckIn):
		return http.StatusConflict, "duplicate_checkin"
	case errors.Is(err, service.ErrTimeWindowExceeded):
		return http.StatusConflict, "time_window_exceeded"
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid"
	case errors.Is(err, service.ErrOutOfRange):
		return http.StatusForbidden, "out_of_range"
	case errors.Is(err, service.ErrMissingIdentity):
		return http.StatusBadRequest, "missing_identity"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type attendanceResponse struct {
	ID          string  `json:"id"`
	RoundID     string  `json:"roundId"`
	DisplayName string  `json:"displayName"`
	Status      string  `json:"status"`
	Points      int     `json:"points"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CheckedAt   int64   `json:"checkedAtEpochSeconds"`
}

// ListByRound handles GET /api/rounds/:id/attendances (organizer only).
func (h *Handler) ListByRound(c *gin.Context) {
	round, ok := h.ownedRound(c)
	if !ok {
		return
	}
	list, err := h.attendances.ListByRound(c.Request.Context(), round.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	out := make([]attendanceResponse, 0, len(list))
	for _, a := range list {
		out = append(out, attendanceResponse{
			ID:          a.ID,
			RoundID:     a.RoundID,
			DisplayName: a.DisplayName,
			Status:      string(a.Status),
			Points:      a.Points,
			Latitude:    a.Location.Lat,
			Longitude:   a.Location.Lng,
			CheckedAt:   a.CheckedAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"attendances": out})
}

type overrideRequest struct {
	AttendanceID string `json:"attendanceId" binding:"required"`
	Status       string `json:"status" binding:"required"`
}

// OverrideStatus handles POST /api/rounds/:id/attendances/override, the
// organizer-side correction of a recorded verdict.
func (h *Handler) OverrideStatus(c *gin.Context) {
	if _, ok := h.ownedRound(c); !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := domain.Status(req.Status)
	if status != domain.StatusPresent && status != domain.StatusLate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be PRESENT or LATE"})
		return
	}
	if err := h.attendances.UpdateStatus(c.Request.Context(), req.AttendanceID, status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(status)})
}

// ownedRound resolves the :id round and checks the caller administers its
// session, writing the error response itself on failure.
func (h *Handler) ownedRound(c *gin.Context) (*roundRef, bool) {
	round, err := h.rounds.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return nil, false
	}
	if round == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return nil, false
	}
	err = rbac.RequireSessionAdmin(c.Request.Context(), h.sessions, middleware.OrganizerID(c), round.SessionID)
	switch {
	case errors.Is(err, rbac.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, rbac.ErrNotSessionAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "not an organizer of this session"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
	default:
		return &roundRef{ID: round.ID, SessionID: round.SessionID}, true
	}
	return nil, false
}

type roundRef struct {
	ID        string
	SessionID string
}
