package sessions

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

const (
	credentialBytes   = 16
	maxCreateAttempts = 3
)

// Manager creates and destroys sessions on top of a Store.
type Manager struct {
	store Store
	rand  io.Reader
}

// NewManager creates a session manager drawing credentials from crypto/rand.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		rand:  rand.Reader,
	}
}

// Create issues a session-id and an independent token for userID.
// A credential collision regenerates both values, up to maxCreateAttempts times.
func (m *Manager) Create(ctx context.Context, userID string) (*models.Session, error) {
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		sessionID, err := m.newCredential()
		if err != nil {
			return nil, err
		}
		token, err := m.newCredential()
		if err != nil {
			return nil, err
		}

		session := &models.Session{
			SessionID: sessionID,
			Token:     token,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}

		err = m.store.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrDuplicateCredential) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		log.Warn().
			Str("user_id", userID).
			Int("attempt", attempt).
			Msg("session credential collision, regenerating")
	}

	return nil, fmt.Errorf("failed to create session after %d attempts: %w", maxCreateAttempts, ErrDuplicateCredential)
}

// Delete removes the session keyed by sessionID. Deleting an unknown session is not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	deleted, err := m.store.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if !deleted {
		log.Warn().Msg("session to delete was not found")
		return nil
	}

	log.Info().Msg("session deleted")
	return nil
}

// Get returns the session keyed by sessionID.
func (m *Manager) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return m.store.GetBySessionID(ctx, sessionID)
}

// GetByToken returns the session holding token.
func (m *Manager) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return m.store.GetByToken(ctx, token)
}

func (m *Manager) newCredential() (string, error) {
	buf := make([]byte, credentialBytes)
	if _, err := io.ReadFull(m.rand, buf); err != nil {
		return "", fmt.Errorf("failed to generate credential: %w", err)
	}
	return base58.Encode(buf), nil
}
