package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/tempo/go/internal/database"
	"github.com/mcdev12/tempo/go/internal/models"
)

// Repository implements user data access operations on Postgres
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new users repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, user.ID, user.Username, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "users_username_key") {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username (case-sensitive)
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
