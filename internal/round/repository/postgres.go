package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rollcall/backend/internal/round/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a round repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const roundColumns = `id, session_id, round_date, start_time, allowed_minutes, status, secret, created_at`

// GetByID returns the round for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Round, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	rnd, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rnd, err
}

// ListBySession returns the session's rounds ordered by date and start time.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Round, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE session_id = $1 ORDER BY round_date, start_time`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRounds(rows)
}

// ListUnclosed returns every round whose cached status is not CLOSED.
func (r *PostgresRepository) ListUnclosed(ctx context.Context) ([]*domain.Round, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE status <> $1`, string(domain.StatusClosed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRounds(rows)
}

// Create persists the round. The round must have ID and Secret set.
func (r *PostgresRepository) Create(ctx context.Context, rnd *domain.Round) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rounds (id, session_id, round_date, start_time, allowed_minutes, status, secret, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rnd.ID, rnd.SessionID, rnd.Date, rnd.StartTime.String(), rnd.AllowedMinutes,
		string(rnd.Status), rnd.Secret, rnd.CreatedAt)
	return err
}

// UpdateStatus writes the cached status projection for the given round.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rounds SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

// Delete removes the round; its attendances cascade at the schema level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rounds WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*domain.Round, error) {
	var rnd domain.Round
	var startTime, status string
	err := row.Scan(&rnd.ID, &rnd.SessionID, &rnd.Date, &startTime,
		&rnd.AllowedMinutes, &status, &rnd.Secret, &rnd.CreatedAt)
	if err != nil {
		return nil, err
	}
	rnd.StartTime, err = domain.ParseClockTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("round %s: %w", rnd.ID, err)
	}
	rnd.Status = domain.Status(status)
	return &rnd, nil
}

func collectRounds(rows *sql.Rows) ([]*domain.Round, error) {
	var out []*domain.Round
	for rows.Next() {
		rnd, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rnd)
	}
	return out, rows.Err()
}
