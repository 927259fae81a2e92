package repository

import (
	"context"
	"database/sql"
	"errors"

	"rollcall/backend/internal/organizer/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organizer repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the organizer for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organizer, error) {
	return r.getBy(ctx, `SELECT id, email, name, password_hash, created_at FROM organizers WHERE id = $1`, id)
}

// GetByEmail returns the organizer for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Organizer, error) {
	return r.getBy(ctx, `SELECT id, email, name, password_hash, created_at FROM organizers WHERE email = $1`, email)
}

// Create persists the organizer. The organizer must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organizer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizers (id, email, name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.Email, o.Name, o.PasswordHash, o.CreatedAt)
	return err
}

func (r *PostgresRepository) getBy(ctx context.Context, query, arg string) (*domain.Organizer, error) {
	var o domain.Organizer
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
