package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tekflox/inbox/internal/metrics"
	"github.com/tekflox/inbox/internal/remote"
	"go.uber.org/zap"
)

// Watcher long-polls delivery status updates for the conversation the agent
// currently has open. Switching conversations cancels the held request for
// the old one before the new loop starts, so a late response can never bleed
// into the wrong conversation.
type Watcher struct {
	client *remote.Client
	engine *Engine
	expiry *ExpiryNotifier
	logger *zap.Logger

	budget   time.Duration
	cooldown time.Duration
	errDelay time.Duration

	mu      sync.Mutex
	current int64
	cancel  context.CancelFunc
	done    chan struct{}

	inFlight atomic.Bool
}

// NewWatcher creates a watcher with the default timing profile.
func NewWatcher(client *remote.Client, engine *Engine, expiry *ExpiryNotifier, logger *zap.Logger, budget time.Duration) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		client:   client,
		engine:   engine,
		expiry:   expiry,
		logger:   logger,
		budget:   budget,
		cooldown: 3 * time.Second,
		errDelay: 5 * time.Second,
	}
}

// Watch switches the watched conversation. Watching id 0 just stops the
// current loop. Re-watching the already-watched id is a no-op.
func (w *Watcher) Watch(ctx context.Context, id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if id == w.current {
		return
	}
	w.stopLocked()
	w.current = id
	if id == 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(loopCtx, id, w.done)
}

// Current returns the watched conversation id (0 when idle).
func (w *Watcher) Current() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop cancels the active loop, if any.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.current = 0
}

func (w *Watcher) stopLocked() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
		w.cancel = nil
	}
}

func (w *Watcher) loop(ctx context.Context, id int64, done chan struct{}) {
	w.run(ctx, id, done)
	if ctx.Err() != nil {
		return
	}
	// Self-halt (session expiry): forget the watched id so a Watch for
	// the same conversation after re-login starts a fresh loop instead
	// of hitting the re-watch no-op. The done check skips the cleanup
	// when a newer loop already took over.
	w.mu.Lock()
	if w.done == done {
		w.current = 0
		w.cancel = nil
	}
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context, id int64, done chan struct{}) {
	defer close(done)

	since := time.Now()
	for {
		delay, halt := w.pollUpdates(ctx, id, &since)
		if halt {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// pollUpdates issues one long poll. Returns the delay before the next
// request and whether the loop must halt. Responses arriving after
// cancellation are discarded without touching the store.
func (w *Watcher) pollUpdates(ctx context.Context, id int64, since *time.Time) (time.Duration, bool) {
	if !w.inFlight.CompareAndSwap(false, true) {
		return w.cooldown, false
	}

	resp, err := w.client.MessageUpdates(ctx, id, *since, w.budget)
	w.inFlight.Store(false)

	if ctx.Err() != nil {
		return 0, true
	}
	if err != nil {
		if errors.Is(err, remote.ErrSessionExpired) {
			metrics.LongPollResults.WithLabelValues("expired").Inc()
			w.expiry.Notify()
			return 0, true
		}
		metrics.LongPollResults.WithLabelValues("error").Inc()
		w.logger.Warn("long poll failed", zap.Error(err), zap.Int64("conversation", id))
		return w.errDelay, false
	}

	if resp.HasUpdates {
		metrics.LongPollResults.WithLabelValues("updates").Inc()
		if err := w.engine.ApplyMessageUpdates(id, resp.Messages); err != nil {
			w.logger.Error("apply message updates", zap.Error(err))
		}
		*since = time.Now()
	} else {
		metrics.LongPollResults.WithLabelValues("timeout").Inc()
	}
	return w.cooldown, false
}
