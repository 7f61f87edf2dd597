package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tekflox/inbox/internal/bus"
)

// State represents a daemon runtime state.
type State string

const (
	Booting        State = "BOOTING"
	AuthRequired   State = "AUTH_REQUIRED"
	Connecting     State = "CONNECTING"
	Syncing        State = "SYNCING"
	Ready          State = "READY"
	Degraded       State = "DEGRADED"
	SessionExpired State = "SESSION_EXPIRED"
	Error          State = "ERROR"
)

// validTransitions defines allowed state transitions. SessionExpired has no
// self-loop: once the daemon is in SessionExpired, further expiry signals are
// rejected, so consumers observe the expiry exactly once until re-auth.
var validTransitions = map[State][]State{
	Booting:        {AuthRequired, Connecting, Error},
	AuthRequired:   {Connecting, Error},
	Connecting:     {Syncing, AuthRequired, SessionExpired, Error},
	Syncing:        {Ready, Degraded, AuthRequired, SessionExpired, Error},
	Ready:          {Syncing, Degraded, AuthRequired, SessionExpired, Error},
	Degraded:       {Connecting, Syncing, Ready, AuthRequired, SessionExpired, Error},
	SessionExpired: {AuthRequired, Connecting, Error},
	Error:          {Booting},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
