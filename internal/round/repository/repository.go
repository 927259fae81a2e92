package repository

import (
	"context"

	"rollcall/backend/internal/round/domain"
)

// Repository defines persistence for rounds.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Round, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Round, error)
	// ListUnclosed returns every round whose cached status is not CLOSED.
	// The sweeper re-derives each one's status from wall-clock time.
	ListUnclosed(ctx context.Context) ([]*domain.Round, error)
	Create(ctx context.Context, r *domain.Round) error
	// UpdateStatus writes the cached status projection. Only the sweeper and
	// round creation should call this; decision paths recompute instead.
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	Delete(ctx context.Context, id string) error
}
