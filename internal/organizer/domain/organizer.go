// Package domain holds the Organizer entity, the owner of sessions and rounds.
package domain

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrEmptyName    = errors.New("organizer name must not be empty")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Organizer is an authenticated account that administers sessions.
type Organizer struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Validate checks field constraints before persistence.
func (o *Organizer) Validate() error {
	if !emailPattern.MatchString(o.Email) {
		return ErrInvalidEmail
	}
	if o.Name == "" {
		return ErrEmptyName
	}
	return nil
}
