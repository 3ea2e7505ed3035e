package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/tempo/go/internal/models"
)

// MemoryStore keeps users in process memory. Data is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]models.User
	byUsername map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[uuid.UUID]models.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[req.Username]; exists {
		return nil, ErrUserExists
	}

	user := models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user
	s.byUsername[user.Username] = user.ID

	return &user, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byUsername[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}
