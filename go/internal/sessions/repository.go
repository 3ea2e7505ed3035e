package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/tempo/go/internal/database"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Repository implements Store using PostgreSQL.
type Repository struct {
	db database.DBTX
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new PostgreSQL-backed session store.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, session *models.Session) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (session_id, token, user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, session.SessionID, session.Token, session.UserID).Scan(&session.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return ErrDuplicateCredential
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Debug().
		Str("user_id", session.UserID).
		Msg("created session")

	return nil
}

func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	return r.get(ctx, `
		SELECT session_id, token, user_id, created_at
		FROM sessions
		WHERE session_id = $1
	`, sessionID)
}

func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.get(ctx, `
		SELECT session_id, token, user_id, created_at
		FROM sessions
		WHERE token = $1
	`, token)
}

func (r *Repository) get(ctx context.Context, query string, key string) (*models.Session, error) {
	var session models.Session
	err := r.db.QueryRow(ctx, query, key).Scan(
		&session.SessionID,
		&session.Token,
		&session.UserID,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *Repository) Delete(ctx context.Context, sessionID string) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
