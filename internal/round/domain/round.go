// Package domain holds the Round entity and its time-derived lifecycle.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status is a round's lifecycle state, derived from wall-clock time.
type Status string

const (
	StatusUpcoming Status = "UPCOMING"
	StatusActive   Status = "ACTIVE"
	StatusClosed   Status = "CLOSED"
)

// ErrInvalidStartTime is returned when a start time string cannot be parsed.
var ErrInvalidStartTime = errors.New("invalid start time")

// ClockTime is a wall-clock time of day (no date, no zone).
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime parses "15:04" or "15:04:05" into a ClockTime.
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	switch {
	case len(s) == 5:
		if _, err := fmt.Sscanf(s, "%02d:%02d", &ct.Hour, &ct.Minute); err != nil {
			return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
		}
	case len(s) == 8:
		if _, err := fmt.Sscanf(s, "%02d:%02d:%02d", &ct.Hour, &ct.Minute, &ct.Second); err != nil {
			return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
		}
	default:
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 || ct.Second < 0 || ct.Second > 59 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
	}
	return ct, nil
}

// String formats the time as "15:04:05".
func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", ct.Hour, ct.Minute, ct.Second)
}

// Round is one dated, time-boxed occurrence within a session.
type Round struct {
	ID             string
	SessionID      string
	Date           time.Time // calendar date; only Y/M/D and location are meaningful
	StartTime      ClockTime
	AllowedMinutes int
	// Status is a cached projection of ComputeStatus; the sweeper refreshes it.
	// Decision paths (subscribe, check-in) must recompute instead of reading it.
	Status    Status
	Secret    []byte // per-round token secret; never serialized to clients
	CreatedAt time.Time
}

// StartAt combines the round's date and start time into an absolute instant
// in the date's location.
func (r *Round) StartAt() time.Time {
	return time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(),
		r.StartTime.Hour, r.StartTime.Minute, r.StartTime.Second, 0, r.Date.Location())
}

// EndAt is the last instant at which a check-in is still inside the window.
func (r *Round) EndAt() time.Time {
	return r.StartAt().Add(time.Duration(r.AllowedMinutes) * time.Minute)
}

// ComputeStatus derives the round's lifecycle status at now. It is pure: the
// same (date, start time, allowed minutes, now) always yields the same status.
// Comparing full instants makes past-dated rounds CLOSED and future-dated
// rounds UPCOMING, for subscribe and check-in alike.
func (r *Round) ComputeStatus(now time.Time) Status {
	start := r.StartAt()
	if now.Before(start) {
		return StatusUpcoming
	}
	if now.After(r.EndAt()) {
		return StatusClosed
	}
	return StatusActive
}

// RemainingSeconds returns how many whole seconds remain until the round's
// check-in window ends, or 0 if it already has.
func (r *Round) RemainingSeconds(now time.Time) int64 {
	d := r.EndAt().Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
