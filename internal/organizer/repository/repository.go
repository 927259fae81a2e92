package repository

import (
	"context"

	"rollcall/backend/internal/organizer/domain"
)

// Repository defines persistence for organizers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Organizer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Organizer, error)
	Create(ctx context.Context, o *domain.Organizer) error
}
