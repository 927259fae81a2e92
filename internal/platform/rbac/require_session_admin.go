// Package rbac answers "may this caller administer this session".
package rbac

import (
	"context"
	"errors"

	sessiondomain "rollcall/backend/internal/session/domain"
)

var (
	// ErrSessionNotFound is returned when the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotSessionAdmin is returned when the caller does not own the session.
	ErrNotSessionAdmin = errors.New("caller is not an organizer of this session")
)

// SessionGetter resolves a session by id. Used to find the owning organizer.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// Checker decides session administration rights. A session is administered
// only by its owning organizer.
type Checker struct {
	sessions SessionGetter
}

// NewChecker returns a Checker resolving sessions through getter.
func NewChecker(sessions SessionGetter) *Checker {
	return &Checker{sessions: sessions}
}

// IsSessionAdmin reports whether callerID owns sessionID. A missing session
// yields (false, nil): the caller certainly does not administer it.
func (c *Checker) IsSessionAdmin(ctx context.Context, callerID, sessionID string) (bool, error) {
	s, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, nil
	}
	return s.OrganizerID == callerID, nil
}

// RequireSessionAdmin ensures callerID owns sessionID.
// Returns ErrSessionNotFound or ErrNotSessionAdmin on failure.
func RequireSessionAdmin(ctx context.Context, sessions SessionGetter, callerID, sessionID string) error {
	s, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}
	if s.OrganizerID != callerID {
		return ErrNotSessionAdmin
	}
	return nil
}
