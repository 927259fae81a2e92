package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"rollcall/backend/internal/attendance/domain"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an attendance repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Exists reports whether an attendance is recorded for the attendee in the round.
func (r *PostgresRepository) Exists(ctx context.Context, roundID, attendeeKey string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM attendances WHERE round_id = $1 AND attendee_key = $2`,
		roundID, attendeeKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts the record. A unique-violation on (round_id, attendee_key)
// is mapped to ErrDuplicate so a concurrent duplicate submission loses cleanly.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Attendance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendances (id, round_id, attendee_key, display_name, status, points, lat, lng, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.RoundID, a.AttendeeKey, a.DisplayName, string(a.Status),
		a.Points, a.Location.Lat, a.Location.Lng, a.CheckedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

// ListByRound returns the round's attendances ordered by check-in time.
func (r *PostgresRepository) ListByRound(ctx context.Context, roundID string) ([]*domain.Attendance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, round_id, attendee_key, display_name, status, points, lat, lng, checked_at
		 FROM attendances WHERE round_id = $1 ORDER BY checked_at`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Attendance
	for rows.Next() {
		var a domain.Attendance
		var status string
		if err := rows.Scan(&a.ID, &a.RoundID, &a.AttendeeKey, &a.DisplayName,
			&status, &a.Points, &a.Location.Lat, &a.Location.Lng, &a.CheckedAt); err != nil {
			return nil, err
		}
		a.Status = domain.Status(status)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpdateStatus overrides a recorded verdict (organizer correction).
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE attendances SET status = $2 WHERE id = $1`, id, string(status))
	return err
}
