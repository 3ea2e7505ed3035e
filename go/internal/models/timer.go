package models

import (
	"time"

	"github.com/google/uuid"
)

// Timer is a single time entry owned by a user.
// An active timer has no End or Duration; a stopped one has both and Duration = End - Start.
type Timer struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Description string         `json:"description"`
	Start       time.Time      `json:"start"`
	End         *time.Time     `json:"end,omitempty"`
	Duration    *time.Duration `json:"duration,omitempty"`
	Active      bool           `json:"active"`
}

// Elapsed returns how long the timer has been running at now, or its final duration once stopped.
func (t Timer) Elapsed(now time.Time) time.Duration {
	if t.Duration != nil {
		return *t.Duration
	}
	return now.Sub(t.Start)
}
