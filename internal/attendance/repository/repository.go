package repository

import (
	"context"
	"errors"

	"rollcall/backend/internal/attendance/domain"
)

// ErrDuplicate is returned by Create when an attendance already exists for
// the (round, attendee) pair. The storage-level uniqueness constraint is the
// backstop for races between concurrent submissions; the loser gets this.
var ErrDuplicate = errors.New("attendance already recorded for this round")

// Repository defines persistence for attendance records.
type Repository interface {
	// Exists reports whether an attendance is recorded for the attendee in the round.
	Exists(ctx context.Context, roundID, attendeeKey string) (bool, error)
	// Create inserts the record, returning ErrDuplicate when the uniqueness
	// constraint on (round_id, attendee_key) rejects it.
	Create(ctx context.Context, a *domain.Attendance) error
	ListByRound(ctx context.Context, roundID string) ([]*domain.Attendance, error)
	// UpdateStatus is the organizer-side correction of a recorded verdict.
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
}
