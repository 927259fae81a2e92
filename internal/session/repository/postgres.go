package repository

import (
	"context"
	"database/sql"
	"errors"

	"rollcall/backend/internal/geo"
	"rollcall/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, organizer_id, title, visibility, status, reward_points, fence_lat, fence_lng, fence_radius_m, created_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListByOrganizer returns all sessions owned by organizerID, newest first.
func (r *PostgresRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE organizer_id = $1 ORDER BY created_at DESC`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	var lat, lng, radius sql.NullFloat64
	if s.Fence != nil {
		lat = sql.NullFloat64{Float64: s.Fence.Center.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: s.Fence.Center.Lng, Valid: true}
		radius = sql.NullFloat64{Float64: s.Fence.RadiusM, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, organizer_id, title, visibility, status, reward_points, fence_lat, fence_lng, fence_radius_m, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.OrganizerID, s.Title, string(s.Visibility), string(s.Status), s.RewardPoints, lat, lng, radius, s.CreatedAt)
	return err
}

// UpdateStatus sets the session's status (e.g. OPEN -> CLOSED).
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

// Delete removes the session; rounds and attendances cascade at the schema level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var visibility, status string
	var lat, lng, radius sql.NullFloat64
	err := row.Scan(&s.ID, &s.OrganizerID, &s.Title, &visibility, &status,
		&s.RewardPoints, &lat, &lng, &radius, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Visibility = domain.Visibility(visibility)
	s.Status = domain.Status(status)
	if lat.Valid && lng.Valid && radius.Valid {
		s.Fence = &geo.Fence{
			Center:  geo.Point{Lat: lat.Float64, Lng: lng.Float64},
			RadiusM: radius.Float64,
		}
	}
	return &s, nil
}
