// Package service implements organizer register and login.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/backend/internal/organizer/domain"
	"rollcall/backend/internal/security"
)

// Sentinel errors for auth; the handler maps them to HTTP statuses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrWeakPassword           = errors.New("password must be at least 8 characters")
)

// OrganizerRepo is the minimal organizer repository needed by the auth service.
type OrganizerRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.Organizer, error)
	Create(ctx context.Context, o *domain.Organizer) error
}

// AuthResult holds the outcome of Register or Login.
type AuthResult struct {
	OrganizerID string
	Token       string
	ExpiresAt   time.Time
}

// AuthService implements password register and login for organizers.
type AuthService struct {
	organizers OrganizerRepo
	hasher     *security.Hasher
	tokens     *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(organizers OrganizerRepo, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{organizers: organizers, hasher: hasher, tokens: tokens}
}

// Register creates an organizer account and returns a fresh API token.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	existing, err := s.organizers.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	o := &domain.Organizer{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := s.organizers.Create(ctx, o); err != nil {
		return nil, err
	}
	return s.issue(o.ID)
}

// Login verifies credentials and returns a fresh API token.
// Missing account and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	o, err := s.organizers.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if o == nil || !s.hasher.Compare(o.PasswordHash, []byte(password)) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(o.ID)
}

func (s *AuthService) issue(organizerID string) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(organizerID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{OrganizerID: organizerID, Token: token, ExpiresAt: expiresAt}, nil
}
