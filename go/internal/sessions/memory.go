package sessions

import (
	"context"
	"sync"

	"github.com/mcdev12/tempo/go/internal/models"
)

// MemoryStore implements Store in process memory. Data is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	sessions map[string]*models.Session // session_id -> Session
	byToken  map[string]string          // token -> session_id
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		byToken:  make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return ErrDuplicateCredential
	}
	if _, exists := s.byToken[session.Token]; exists {
		return ErrDuplicateCredential
	}

	// Clone to avoid external modifications
	clone := *session
	s.sessions[session.SessionID] = &clone
	s.byToken[session.Token] = session.SessionID

	return nil
}

func (s *MemoryStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	clone := *session
	return &clone, nil
}

func (s *MemoryStore) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, exists := s.byToken[token]
	if !exists {
		return nil, ErrSessionNotFound
	}

	clone := *s.sessions[sessionID]
	return &clone, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return false, nil
	}

	delete(s.byToken, session.Token)
	delete(s.sessions, sessionID)
	return true, nil
}
