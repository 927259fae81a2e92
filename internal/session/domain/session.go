// Package domain holds the Session entity, the container for attendance rounds.
package domain

import (
	"errors"
	"strings"
	"time"

	"rollcall/backend/internal/geo"
)

// Visibility controls whether a session is listed publicly.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Status is a session's lifecycle state. Closed sessions accept no new rounds.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

var (
	ErrEmptyTitle        = errors.New("session title must not be empty")
	ErrInvalidVisibility = errors.New("session visibility must be PUBLIC or PRIVATE")
	ErrNegativePoints    = errors.New("session reward points must not be negative")
)

// Session is a recurring attendance-tracked activity owned by one organizer.
type Session struct {
	ID           string
	OrganizerID  string
	Title        string
	Visibility   Visibility
	Status       Status
	RewardPoints int
	// Fence is the optional circular geofence applied to check-ins; nil means
	// location is not checked.
	Fence     *geo.Fence
	CreatedAt time.Time
}

// Validate checks field constraints before persistence.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrEmptyTitle
	}
	if s.Visibility != VisibilityPublic && s.Visibility != VisibilityPrivate {
		return ErrInvalidVisibility
	}
	if s.RewardPoints < 0 {
		return ErrNegativePoints
	}
	return nil
}
