package livesync

import (
	"time"

	"github.com/mcdev12/tempo/go/internal/models"
)

// MessageType identifies a live channel frame
type MessageType string

const (
	// client -> server
	MessageTypeAuthenticate MessageType = "authenticate"
	MessageTypeCreateTimer  MessageType = "create_timer"
	MessageTypeStopTimer    MessageType = "stop_timer"

	// server -> client
	MessageTypeAllTimers    MessageType = "all_timers"
	MessageTypeActiveTimers MessageType = "active_timers"
)

// ClientMessage is any frame a client may send. Fields not used by Type are ignored.
type ClientMessage struct {
	Type        MessageType `json:"type"`
	Token       string      `json:"token,omitempty"`
	Description string      `json:"description,omitempty"`
	TimerID     string      `json:"timerId,omitempty"`
}

// ServerMessage carries a timer snapshot to the client
type ServerMessage struct {
	Type MessageType `json:"type"`
	Data []TimerView `json:"data"`
}

// TimerView is the wire form of a timer. Instants and durations are milliseconds.
type TimerView struct {
	TimerID     string `json:"timerId"`
	Description string `json:"description"`
	Start       int64  `json:"start"`
	End         *int64 `json:"end,omitempty"`
	Duration    *int64 `json:"duration,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// NewTimerView converts a stored timer to its wire form
func NewTimerView(t models.Timer) TimerView {
	view := TimerView{
		TimerID:     t.ID.String(),
		Description: t.Description,
		Start:       t.Start.UnixMilli(),
		IsActive:    t.Active,
	}
	if t.End != nil {
		end := t.End.UnixMilli()
		view.End = &end
	}
	if t.Duration != nil {
		d := t.Duration.Milliseconds()
		view.Duration = &d
	}
	return view
}

// AllTimersMessage builds the full snapshot sent after authentication and after every mutation.
func AllTimersMessage(timers []models.Timer) ServerMessage {
	data := make([]TimerView, 0, len(timers))
	for _, t := range timers {
		data = append(data, NewTimerView(t))
	}
	return ServerMessage{Type: MessageTypeAllTimers, Data: data}
}

// ActiveTimersMessage builds the periodic push; duration is the elapsed time at now.
func ActiveTimersMessage(timers []models.Timer, now time.Time) ServerMessage {
	data := make([]TimerView, 0, len(timers))
	for _, t := range timers {
		view := NewTimerView(t)
		elapsed := t.Elapsed(now).Milliseconds()
		if elapsed < 0 {
			elapsed = 0
		}
		view.Duration = &elapsed
		data = append(data, view)
	}
	return ServerMessage{Type: MessageTypeActiveTimers, Data: data}
}
