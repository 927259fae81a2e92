// Package domain holds the Attendance record created by a successful check-in.
package domain

import (
	"time"

	"rollcall/backend/internal/geo"
)

// Status is the verdict recorded for a check-in.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusLate    Status = "LATE"
)

// Attendance is one check-in record. At most one exists per (round, attendee).
type Attendance struct {
	ID      string
	RoundID string
	// AttendeeKey is the user id for authenticated participants, or the
	// trimmed display name for anonymous ones. Duplicate prevention keys on
	// (RoundID, AttendeeKey).
	AttendeeKey string
	DisplayName string
	Status      Status
	// Points is the session's reward value copied at check-in time, not a
	// live reference; later session edits do not change past records.
	Points    int
	Location  geo.Point
	CheckedAt time.Time
}
