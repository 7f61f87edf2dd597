package sync

import (
	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/status"
	"go.uber.org/zap"
)

// ExpiryNotifier turns 401 responses into a single session-expired signal.
// The state machine forbids a SessionExpired self-transition, so however many
// requests fail concurrently, exactly one bus event goes out.
type ExpiryNotifier struct {
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewExpiryNotifier creates an expiry notifier.
func NewExpiryNotifier(machine *status.Machine, b *bus.Bus, logger *zap.Logger) *ExpiryNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryNotifier{machine: machine, bus: b, logger: logger}
}

// Notify reports a 401 observation. Returns true if this was the first
// signal since the session was last valid.
func (n *ExpiryNotifier) Notify() bool {
	if err := n.machine.Transition(status.SessionExpired); err != nil {
		return false
	}
	n.logger.Warn("session expired, halting sync loops")
	n.bus.Emit(bus.KindSessionExpired, nil)
	return true
}
