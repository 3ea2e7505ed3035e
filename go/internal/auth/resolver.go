package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/sessions"
	"github.com/mcdev12/tempo/go/internal/users"
	"github.com/rs/zerolog/log"
)

// SessionLookup is the read side of the session store.
type SessionLookup interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
}

// UserLookup fetches users by identity.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver turns a credential into a user.
// A missing link anywhere in the chain yields (nil, nil); only storage failures return an error.
type Resolver struct {
	sessions SessionLookup
	users    UserLookup
}

// NewResolver creates a Resolver.
func NewResolver(sessions SessionLookup, users UserLookup) *Resolver {
	return &Resolver{
		sessions: sessions,
		users:    users,
	}
}

// ResolveSessionID resolves the cookie-held session id.
func (r *Resolver) ResolveSessionID(ctx context.Context, sessionID string) (*models.User, error) {
	return r.resolve(ctx, "session_id", sessionID, r.sessions.GetBySessionID)
}

// ResolveToken resolves the live-channel handshake token.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	return r.resolve(ctx, "token", token, r.sessions.GetByToken)
}

func (r *Resolver) resolve(
	ctx context.Context,
	kind string,
	credential string,
	lookup func(context.Context, string) (*models.Session, error),
) (*models.User, error) {
	if credential == "" {
		return nil, nil
	}

	session, err := lookup(ctx, credential)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			log.Debug().Str("credential", kind).Msg("no session for credential")
			return nil, nil
		}
		log.Error().Err(err).Str("credential", kind).Msg("session lookup failed")
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		log.Warn().Str("credential", kind).Str("user_id", session.UserID).Msg("session references malformed user id")
		return nil, nil
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			log.Warn().Str("user_id", userID.String()).Msg("session references unknown user")
			return nil, nil
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("user lookup failed")
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return user, nil
}
