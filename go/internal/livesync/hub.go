package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/telemetry"
	"github.com/mcdev12/tempo/go/internal/timers"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TokenResolver resolves the handshake token to a user. (nil, nil) means no user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// TimerLedger is the slice of the timers app the live channel drives
type TimerLedger interface {
	Start(ctx context.Context, userID uuid.UUID, description string) (*models.Timer, error)
	Stop(ctx context.Context, userID uuid.UUID, timerID string) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Timer, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.Timer, error)
	Now() time.Time
}

var _ TimerLedger = (*timers.App)(nil)

// Hub executes the effects produced by Transition against the registry, resolver and ledger.
type Hub struct {
	registry *Registry
	resolver TokenResolver
	ledger   TimerLedger
	metrics  *telemetry.Metrics
}

// NewHub creates a Hub
func NewHub(registry *Registry, resolver TokenResolver, ledger TimerLedger) *Hub {
	return &Hub{
		registry: registry,
		resolver: resolver,
		ledger:   ledger,
		metrics:  telemetry.GetMetrics(),
	}
}

// Attach starts protocol state for a freshly opened connection
func (h *Hub) Attach(conn Conn) *Peer {
	return &Peer{hub: h, conn: conn}
}

// Peer is one connection's protocol state. Its methods must not be called concurrently;
// the read pump drives it sequentially.
type Peer struct {
	hub   *Hub
	conn  Conn
	state State
}

// State returns the current protocol state
func (p *Peer) State() State {
	return p.state
}

// HandleMessage decodes one client frame and applies it. Frames that fail to decode are
// logged and dropped; the connection stays open.
func (p *Peer) HandleMessage(ctx context.Context, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		p.hub.metrics.MessagesRejected.Add(ctx, 1)
		log.Warn().
			Err(err).
			Str("connection_id", p.conn.ID()).
			Msg("dropping malformed client message")
		return
	}

	p.hub.metrics.MessagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(msg.Type))))
	log.Debug().
		Str("connection_id", p.conn.ID()).
		Str("type", string(msg.Type)).
		Str("phase", p.state.Phase.String()).
		Msg("received client message")

	p.dispatch(ctx, MessageReceived{Message: msg})
}

// Disconnect applies the transport close. Safe to call more than once.
func (p *Peer) Disconnect(ctx context.Context) {
	p.dispatch(ctx, TransportClosed{})
}

func (p *Peer) dispatch(ctx context.Context, ev Event) {
	next, effects := Transition(p.state, ev)
	p.state = next

	for _, effect := range effects {
		if err := p.hub.execute(ctx, p, effect); err != nil {
			p.hub.metrics.StorageErrors.Add(ctx, 1)
			log.Error().
				Err(err).
				Str("connection_id", p.conn.ID()).
				Str("user_id", p.state.UserID).
				Msg("failed to handle client message")
			return
		}
	}
}

func (h *Hub) execute(ctx context.Context, p *Peer, effect Effect) error {
	switch e := effect.(type) {
	case ResolveToken:
		user, err := h.resolver.ResolveToken(ctx, e.Token)
		if err != nil {
			// the resolver has logged it; a storage failure counts as no user
			user = nil
		}
		if user == nil {
			h.metrics.AuthFailures.Add(ctx, 1)
			log.Info().Str("connection_id", p.conn.ID()).Msg("live channel authentication failed")
		}
		p.dispatch(ctx, AuthResolved{User: user})
		return nil

	case Register:
		h.registry.Register(e.UserID, p.conn)
		log.Info().
			Str("connection_id", p.conn.ID()).
			Str("user_id", e.UserID).
			Msg("live channel authenticated")
		return nil

	case SendSnapshot:
		return h.sendSnapshot(ctx, e.UserID, p.conn)

	case PushSnapshot:
		conn, ok := h.registry.Lookup(e.UserID)
		if !ok || !conn.Open() {
			return nil
		}
		return h.sendSnapshot(ctx, e.UserID, conn)

	case CreateTimer:
		userID, err := uuid.Parse(e.UserID)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", e.UserID, err)
		}
		if _, err := h.ledger.Start(ctx, userID, e.Description); err != nil {
			if errors.Is(err, timers.ErrEmptyDescription) {
				log.Debug().Str("user_id", e.UserID).Msg("ignoring timer with empty description")
				return nil
			}
			return fmt.Errorf("failed to create timer: %w", err)
		}
		return nil

	case StopTimer:
		userID, err := uuid.Parse(e.UserID)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", e.UserID, err)
		}
		stopped, err := h.ledger.Stop(ctx, userID, e.TimerID)
		if err != nil {
			return err
		}
		if !stopped {
			log.Debug().
				Str("user_id", e.UserID).
				Str("timer_id", e.TimerID).
				Msg("no active timer to stop")
		}
		return nil

	case Close:
		p.conn.Close(e.Code, e.Reason)
		return nil

	case Unregister:
		if h.registry.Release(e.UserID, p.conn) {
			log.Debug().
				Str("connection_id", p.conn.ID()).
				Str("user_id", e.UserID).
				Msg("connection unregistered")
		}
		return nil
	}

	return fmt.Errorf("unknown effect %T", effect)
}

func (h *Hub) sendSnapshot(ctx context.Context, userID string, conn Conn) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	list, err := h.ledger.List(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list timers: %w", err)
	}

	data, err := json.Marshal(AllTimersMessage(list))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if !conn.Send(data) {
		log.Warn().
			Str("connection_id", conn.ID()).
			Str("user_id", userID).
			Msg("snapshot not delivered")
		return nil
	}

	h.metrics.SnapshotsSent.Add(ctx, 1)
	return nil
}
