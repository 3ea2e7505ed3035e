package timers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mcdev12/tempo/go/internal/database"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/sqlutil"
)

const timerColumns = `id, user_id, description, started_at, ended_at, duration_ms, active`

// Repository implements timer persistence on Postgres.
// Every statement filters on user_id so one user can never touch another user's rows.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new timers repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{
		db: db,
	}
}

// ListByUser returns every timer of the user, oldest first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Timer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+timerColumns+`
		FROM timers
		WHERE user_id = $1
		ORDER BY started_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	return collectTimers(rows)
}

// ListActiveByUser returns the running timers of the user, oldest first
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Timer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+timerColumns+`
		FROM timers
		WHERE user_id = $1 AND active
		ORDER BY started_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active timers: %w", err)
	}
	return collectTimers(rows)
}

// Insert stores a new timer
func (r *Repository) Insert(ctx context.Context, timer *models.Timer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO timers (`+timerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		timer.ID,
		timer.UserID,
		timer.Description,
		timer.Start,
		sqlutil.ToPgTimestamptz(timer.End),
		sqlutil.ToPgMillis(timer.Duration),
		timer.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert timer: %w", err)
	}
	return nil
}

// GetActive returns the user's active timer with the given id
func (r *Repository) GetActive(ctx context.Context, userID, timerID uuid.UUID) (*models.Timer, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+timerColumns+`
		FROM timers
		WHERE id = $1 AND user_id = $2 AND active
	`, timerID, userID)

	timer, err := scanTimer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimerNotFound
		}
		return nil, fmt.Errorf("failed to get timer: %w", err)
	}
	return timer, nil
}

// MarkStopped flips an active timer to stopped. Returns ErrTimerNotFound if no active row matched.
func (r *Repository) MarkStopped(ctx context.Context, userID, timerID uuid.UUID, end time.Time, duration time.Duration) error {
	result, err := r.db.Exec(ctx, `
		UPDATE timers
		SET active = FALSE, ended_at = $3, duration_ms = $4
		WHERE id = $1 AND user_id = $2 AND active
	`, timerID, userID, end, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to stop timer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTimerNotFound
	}
	return nil
}

func collectTimers(rows pgx.Rows) ([]models.Timer, error) {
	defer rows.Close()

	timers := []models.Timer{}
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timer: %w", err)
		}
		timers = append(timers, *timer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timers: %w", err)
	}
	return timers, nil
}

func scanTimer(row pgx.Row) (*models.Timer, error) {
	var (
		timer    models.Timer
		end      pgtype.Timestamptz
		duration pgtype.Int8
	)
	err := row.Scan(
		&timer.ID,
		&timer.UserID,
		&timer.Description,
		&timer.Start,
		&end,
		&duration,
		&timer.Active,
	)
	if err != nil {
		return nil, err
	}
	timer.End = sqlutil.FromPgTimestamptz(end)
	timer.Duration = sqlutil.FromPgMillis(duration)
	return &timer, nil
}
