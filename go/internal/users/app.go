package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/rs/zerolog/log"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

var (
	_ UsersRepository = (*Repository)(nil)
	_ UsersRepository = (*MemoryStore)(nil)
)

// App handles users business logic
type App struct {
	repo   UsersRepository
	hasher Hasher
}

// NewApp creates a new users App
func NewApp(repo UsersRepository, hasher Hasher) *App {
	return &App{
		repo:   repo,
		hasher: hasher,
	}
}

// Signup creates a new user. The username is taken verbatim: usernames are case-sensitive.
func (a *App) Signup(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	// Check if user with same username already exists
	existing, err := a.repo.GetUserByUsername(ctx, creds.Username)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := a.hasher.Hash(creds.Password)
	if err != nil {
		return nil, err
	}

	// the repository still reports ErrUserExists if a concurrent signup won the race
	user, err := a.repo.CreateUser(ctx, CreateUserRequest{
		Username:     creds.Username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("created user")
	return user, nil
}

// Login checks a username/password pair and returns the matching user.
func (a *App) Login(ctx context.Context, creds Credentials) (*models.User, error) {
	user, err := a.repo.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	ok, err := a.hasher.Verify(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}
