package repository

import (
	"context"

	"rollcall/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	Delete(ctx context.Context, id string) error
}
