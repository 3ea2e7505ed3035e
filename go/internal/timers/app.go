package timers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TimersRepository defines what the app layer needs from the repository
type TimersRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Timer, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Timer, error)
	Insert(ctx context.Context, timer *models.Timer) error
	GetActive(ctx context.Context, userID, timerID uuid.UUID) (*models.Timer, error)
	MarkStopped(ctx context.Context, userID, timerID uuid.UUID, end time.Time, duration time.Duration) error
}

var (
	_ TimersRepository = (*Repository)(nil)
	_ TimersRepository = (*MemoryStore)(nil)
)

// App is the timer ledger: start, stop and list a user's timers.
type App struct {
	repo  TimersRepository
	clock clockwork.Clock
}

// NewApp creates a new timers App
func NewApp(repo TimersRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// Now is the ledger clock truncated to milliseconds, the precision timers are stored and sent with.
func (a *App) Now() time.Time {
	return a.clock.Now().UTC().Truncate(time.Millisecond)
}

// Start creates a new active timer for userID.
func (a *App) Start(ctx context.Context, userID uuid.UUID, description string) (*models.Timer, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	timer := &models.Timer{
		ID:          uuid.New(),
		UserID:      userID,
		Description: description,
		Start:       a.Now(),
		Active:      true,
	}

	if err := a.repo.Insert(ctx, timer); err != nil {
		return nil, err
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("timer_id", timer.ID.String()).
		Msg("timer started")

	return timer, nil
}

// Stop ends the user's active timer with the given id.
// It reports false, without error, when no such active timer exists.
func (a *App) Stop(ctx context.Context, userID uuid.UUID, timerID string) (bool, error) {
	id, err := uuid.Parse(timerID)
	if err != nil {
		return false, nil
	}

	timer, err := a.repo.GetActive(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrTimerNotFound) {
			return false, nil
		}
		return false, err
	}

	end := a.Now()
	if end.Before(timer.Start) {
		end = timer.Start
	}
	duration := end.Sub(timer.Start)

	// a concurrent stop may have won between the read and the update
	if err := a.repo.MarkStopped(ctx, userID, id, end, duration); err != nil {
		if errors.Is(err, ErrTimerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stop timer: %w", err)
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("timer_id", timerID).
		Dur("duration", duration).
		Msg("timer stopped")

	return true, nil
}

// List returns all of the user's timers.
func (a *App) List(ctx context.Context, userID uuid.UUID) ([]models.Timer, error) {
	return a.repo.ListByUser(ctx, userID)
}

// ListActive returns the user's running timers.
func (a *App) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Timer, error) {
	return a.repo.ListActiveByUser(ctx, userID)
}
