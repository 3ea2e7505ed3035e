package livesync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tempo/go/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is the cadence of active_timers pushes
const DefaultTickInterval = time.Second

// Broadcaster periodically pushes each registered user's running timers with elapsed durations.
type Broadcaster struct {
	registry *Registry
	ledger   TimerLedger
	clock    clockwork.Clock
	interval time.Duration
	metrics  *telemetry.Metrics
}

// NewBroadcaster creates a Broadcaster. A non-positive interval uses DefaultTickInterval.
func NewBroadcaster(registry *Registry, ledger TimerLedger, clock clockwork.Clock, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Broadcaster{
		registry: registry,
		ledger:   ledger,
		clock:    clock,
		interval: interval,
		metrics:  telemetry.GetMetrics(),
	}
}

// Run ticks until ctx is cancelled
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", b.interval).Msg("broadcaster started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("broadcaster shutting down")
			return
		case <-ticker.Chan():
			b.Tick(ctx)
		}
	}
}

// Tick performs one broadcast pass and returns the number of messages delivered.
// Users without running timers get nothing.
func (b *Broadcaster) Tick(ctx context.Context) int {
	started := b.clock.Now()
	now := b.ledger.Now()
	pushed := 0

	b.registry.ForEach(func(userID string, conn Conn) {
		if !conn.Open() {
			return
		}

		id, err := uuid.Parse(userID)
		if err != nil {
			log.Warn().Str("user_id", userID).Msg("registry holds malformed user id")
			return
		}

		active, err := b.ledger.ListActive(ctx, id)
		if err != nil {
			b.metrics.StorageErrors.Add(ctx, 1)
			log.Error().Err(err).Str("user_id", userID).Msg("failed to load active timers")
			return
		}
		if len(active) == 0 {
			return
		}

		data, err := json.Marshal(ActiveTimersMessage(active, now))
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to marshal active timers")
			return
		}

		if conn.Send(data) {
			pushed++
		}
	})

	b.metrics.BroadcastPushes.Add(ctx, int64(pushed))
	b.metrics.BroadcastDuration.Record(ctx, float64(b.clock.Since(started).Microseconds())/1000)

	return pushed
}
