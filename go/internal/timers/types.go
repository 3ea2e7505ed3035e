package timers

import "errors"

var (
	ErrTimerNotFound    = errors.New("active timer not found")
	ErrEmptyDescription = errors.New("timer description is empty")
)
