package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/metrics"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/store"
	"go.uber.org/zap"
)

// PollSummary is the payload published after every poll cycle.
type PollSummary struct {
	Conversations int
	Messages      int
	Cursor        int64
	Err           string
}

// Poller drives the fixed-cadence global poll. It owns the cursor: no other
// component writes it while the poller runs.
type Poller struct {
	client *remote.Client
	engine *Engine
	db     *store.DB
	bus    *bus.Bus
	expiry *ExpiryNotifier
	logger *zap.Logger

	interval time.Duration
	inFlight atomic.Bool
	pollNow  chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a poller with the given cycle interval.
func NewPoller(client *remote.Client, engine *Engine, db *store.DB, b *bus.Bus, expiry *ExpiryNotifier, logger *zap.Logger, interval time.Duration) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		client:   client,
		engine:   engine,
		db:       db,
		bus:      b,
		expiry:   expiry,
		logger:   logger,
		interval: interval,
		pollNow:  make(chan struct{}, 1),
	}
}

// Start launches the poll loop. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			case <-p.pollNow:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}

			if halt := p.pollOnce(ctx); halt {
				return
			}
			timer.Reset(p.interval)
		}
	}()
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

// PollNow bypasses the pending timer and reschedules the interval from zero.
func (p *Poller) PollNow() {
	select {
	case p.pollNow <- struct{}{}:
	default:
	}
}

// pollOnce runs a single poll cycle. Returns true when the loop must halt
// (session expired). The in-flight guard keeps a slow response from
// overlapping the next tick.
func (p *Poller) pollOnce(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer p.inFlight.Store(false)

	cursor, err := p.db.Cursor()
	if err != nil {
		p.logger.Error("read cursor", zap.Error(err))
		return false
	}

	start := time.Now()
	resp, err := p.client.Conversations(ctx, remote.ConversationsQuery{LastMessageID: cursor})
	metrics.PollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, remote.ErrSessionExpired) {
			metrics.PollCycles.WithLabelValues("expired").Inc()
			p.expiry.Notify()
			return true
		}
		if ctx.Err() != nil {
			return true
		}
		metrics.PollCycles.WithLabelValues("error").Inc()
		p.logger.Warn("poll cycle failed", zap.Error(err), zap.Int64("cursor", cursor))
		p.bus.Emit(bus.KindPollCompleted, PollSummary{Cursor: cursor, Err: err.Error()})
		return false
	}

	result, err := p.engine.IngestSnapshot(resp)
	if err != nil {
		metrics.PollCycles.WithLabelValues("error").Inc()
		p.logger.Error("ingest snapshot", zap.Error(err))
		p.bus.Emit(bus.KindPollCompleted, PollSummary{Cursor: cursor, Err: err.Error()})
		return false
	}

	metrics.PollCycles.WithLabelValues("ok").Inc()
	metrics.MergedMessages.Add(float64(result.Messages))
	if result.Cursor > 0 {
		metrics.Cursor.Set(float64(result.Cursor))
	}

	if result.Messages > 0 {
		p.logger.Info("poll cycle merged updates",
			zap.Int("conversations", result.Conversations),
			zap.Int("messages", result.Messages),
			zap.Int64("cursor", result.Cursor))
	}
	p.bus.Emit(bus.KindPollCompleted, PollSummary{
		Conversations: result.Conversations,
		Messages:      result.Messages,
		Cursor:        result.Cursor,
	})
	return false
}
