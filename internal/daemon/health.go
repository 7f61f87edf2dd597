package daemon

import (
	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/status"
	intsync "github.com/tekflox/inbox/internal/sync"
	"go.uber.org/zap"
)

// healthSupervisor watches poll outcomes and moves the state machine between
// the healthy and degraded states: the first successful cycle after connect
// walks Connecting through Syncing to Ready, a failed cycle while Ready drops
// to Degraded, and a later success recovers.
type healthSupervisor struct {
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger
	stop    func()
}

func newHealthSupervisor(machine *status.Machine, b *bus.Bus, logger *zap.Logger) *healthSupervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &healthSupervisor{machine: machine, bus: b, logger: logger}
}

func (h *healthSupervisor) Start() {
	ch, unsubscribe := h.bus.Subscribe(bus.KindPollCompleted, 16)
	done := make(chan struct{})
	h.stop = func() {
		unsubscribe()
		close(done)
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case evt := <-ch:
				summary, ok := evt.Payload.(intsync.PollSummary)
				if !ok {
					continue
				}
				h.observe(&summary)
			}
		}
	}()
}

func (h *healthSupervisor) Stop() {
	if h.stop != nil {
		h.stop()
	}
}

func (h *healthSupervisor) observe(summary *intsync.PollSummary) {
	current := h.machine.Current()
	if summary.Err != "" {
		if current == status.Ready || current == status.Syncing {
			_ = h.machine.Transition(status.Degraded)
			h.logger.Warn("poll failing, degraded", zap.String("error", summary.Err))
		}
		return
	}

	switch current {
	case status.Connecting:
		_ = h.machine.Transition(status.Syncing)
		_ = h.machine.Transition(status.Ready)
	case status.Syncing, status.Degraded:
		_ = h.machine.Transition(status.Ready)
	}
}
