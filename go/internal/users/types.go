package users

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// CreateUserRequest represents the data needed to persist a new user
type CreateUserRequest struct {
	Username     string
	PasswordHash string
}

// Credentials is what a visitor submits to sign up or log in
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
