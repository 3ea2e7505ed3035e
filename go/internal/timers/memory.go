package timers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/tempo/go/internal/models"
)

// MemoryStore keeps timers in process memory. Data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	timers map[uuid.UUID]map[uuid.UUID]models.Timer // user_id -> timer_id -> Timer
}

// NewMemoryStore creates an empty in-memory timer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		timers: make(map[uuid.UUID]map[uuid.UUID]models.Timer),
	}
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Timer, error) {
	return s.list(userID, false), nil
}

func (s *MemoryStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Timer, error) {
	return s.list(userID, true), nil
}

func (s *MemoryStore) Insert(ctx context.Context, timer *models.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned, exists := s.timers[timer.UserID]
	if !exists {
		owned = make(map[uuid.UUID]models.Timer)
		s.timers[timer.UserID] = owned
	}
	owned[timer.ID] = cloneTimer(*timer)
	return nil
}

func (s *MemoryStore) GetActive(ctx context.Context, userID, timerID uuid.UUID) (*models.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timer, exists := s.timers[userID][timerID]
	if !exists || !timer.Active {
		return nil, ErrTimerNotFound
	}
	clone := cloneTimer(timer)
	return &clone, nil
}

func (s *MemoryStore) MarkStopped(ctx context.Context, userID, timerID uuid.UUID, end time.Time, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, exists := s.timers[userID][timerID]
	if !exists || !timer.Active {
		return ErrTimerNotFound
	}

	timer.Active = false
	timer.End = &end
	timer.Duration = &duration
	s.timers[userID][timerID] = timer
	return nil
}

func (s *MemoryStore) list(userID uuid.UUID, activeOnly bool) []models.Timer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timers := []models.Timer{}
	for _, timer := range s.timers[userID] {
		if activeOnly && !timer.Active {
			continue
		}
		timers = append(timers, cloneTimer(timer))
	}

	sort.Slice(timers, func(i, j int) bool {
		if timers[i].Start.Equal(timers[j].Start) {
			return timers[i].ID.String() < timers[j].ID.String()
		}
		return timers[i].Start.Before(timers[j].Start)
	})
	return timers
}

func cloneTimer(t models.Timer) models.Timer {
	if t.End != nil {
		end := *t.End
		t.End = &end
	}
	if t.Duration != nil {
		d := *t.Duration
		t.Duration = &d
	}
	return t
}
