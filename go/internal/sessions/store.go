package sessions

import (
	"context"
	"errors"

	"github.com/mcdev12/tempo/go/internal/models"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrDuplicateCredential = errors.New("session credential already in use")
)

// Store persists sessions. Lookups return ErrSessionNotFound when no row matches.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, sessionID string) (bool, error)
}
