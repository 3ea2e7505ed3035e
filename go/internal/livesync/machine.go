package livesync

import "github.com/mcdev12/tempo/go/internal/models"

// Phase is where a connection is in the handshake
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticated
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Close codes and reasons sent to clients
const (
	CloseCodePolicyViolation = 1008
	CloseReasonAuthFailed    = "Authentication failed"
)

// State is the per-connection protocol state. UserID is set once authenticated.
type State struct {
	Phase  Phase
	UserID string
}

// Event is an input to the connection state machine
type Event interface{ isEvent() }

// MessageReceived is a decoded client frame
type MessageReceived struct{ Message ClientMessage }

// AuthResolved carries the outcome of a token lookup. A nil User means the token was rejected.
type AuthResolved struct{ User *models.User }

// TransportClosed is raised once when the socket goes away
type TransportClosed struct{}

func (MessageReceived) isEvent() {}
func (AuthResolved) isEvent()    {}
func (TransportClosed) isEvent() {}

// Effect is work the hub performs after a transition, in order
type Effect interface{ isEffect() }

type (
	ResolveToken struct{ Token string }
	Register     struct{ UserID string }
	// SendSnapshot delivers all_timers to the connection that triggered it
	SendSnapshot struct{ UserID string }
	CreateTimer  struct{ UserID, Description string }
	StopTimer    struct{ UserID, TimerID string }
	// PushSnapshot delivers all_timers to whatever connection is registered for the user
	PushSnapshot struct{ UserID string }
	Close        struct {
		Code   int
		Reason string
	}
	Unregister struct{ UserID string }
)

func (ResolveToken) isEffect() {}
func (Register) isEffect()     {}
func (SendSnapshot) isEffect() {}
func (CreateTimer) isEffect()  {}
func (StopTimer) isEffect()    {}
func (PushSnapshot) isEffect() {}
func (Close) isEffect()        {}
func (Unregister) isEffect()   {}

// Transition is the live channel protocol. It performs no I/O; events that do not
// apply to the current phase leave the state unchanged and produce no effects.
func Transition(s State, ev Event) (State, []Effect) {
	if s.Phase == PhaseClosed {
		return s, nil
	}

	switch e := ev.(type) {
	case TransportClosed:
		next := State{Phase: PhaseClosed}
		if s.Phase == PhaseAuthenticated {
			return next, []Effect{Unregister{UserID: s.UserID}}
		}
		return next, nil

	case AuthResolved:
		if s.Phase != PhaseUnauthenticated {
			return s, nil
		}
		if e.User == nil {
			return State{Phase: PhaseClosed}, []Effect{
				Close{Code: CloseCodePolicyViolation, Reason: CloseReasonAuthFailed},
			}
		}
		userID := e.User.ID.String()
		return State{Phase: PhaseAuthenticated, UserID: userID}, []Effect{
			Register{UserID: userID},
			SendSnapshot{UserID: userID},
		}

	case MessageReceived:
		return onMessage(s, e.Message)
	}

	return s, nil
}

func onMessage(s State, msg ClientMessage) (State, []Effect) {
	switch s.Phase {
	case PhaseUnauthenticated:
		if msg.Type == MessageTypeAuthenticate {
			return s, []Effect{ResolveToken{Token: msg.Token}}
		}

	case PhaseAuthenticated:
		switch msg.Type {
		case MessageTypeCreateTimer:
			return s, []Effect{
				CreateTimer{UserID: s.UserID, Description: msg.Description},
				PushSnapshot{UserID: s.UserID},
			}
		case MessageTypeStopTimer:
			return s, []Effect{
				StopTimer{UserID: s.UserID, TimerID: msg.TimerID},
				PushSnapshot{UserID: s.UserID},
			}
		}
	}

	return s, nil
}
