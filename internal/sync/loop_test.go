package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/status"
)

func newExpiry(b *bus.Bus) (*ExpiryNotifier, *status.Machine) {
	m := status.NewMachine(b)
	_ = m.Transition(status.Connecting)
	_ = m.Transition(status.Syncing)
	_ = m.Transition(status.Ready)
	return NewExpiryNotifier(m, b, nil), m
}

func TestExpiryNotifierSingleSignal(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindSessionExpired, 10)
	defer unsub()

	n, m := newExpiry(b)

	if !n.Notify() {
		t.Error("first Notify() should return true")
	}
	if n.Notify() {
		t.Error("second Notify() should return false")
	}
	if n.Notify() {
		t.Error("third Notify() should return false")
	}

	if got := m.Current(); got != status.SessionExpired {
		t.Errorf("state = %v", got)
	}

	// Exactly one event on the bus.
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no expiry event")
	}
	select {
	case <-ch:
		t.Fatal("duplicate expiry event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollerAdvancesCursorAcrossCycles(t *testing.T) {
	db := testDB(t)
	b := bus.New()

	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		cursor := r.URL.Query().Get("last_message_id")
		resp := remote.ConversationsResponse{}
		switch n {
		case 1:
			if cursor != "" {
				t.Errorf("first poll cursor = %q, want empty", cursor)
			}
			resp = *snapshotResponse()
		case 2:
			if cursor != "10" {
				t.Errorf("second poll cursor = %q, want 10", cursor)
			}
			resp = remote.ConversationsResponse{
				Conversations: []remote.Conversation{{
					ID: 1, Platform: "whatsapp", Status: "pending", Timestamp: time.UnixMilli(2000),
					Messages: []remote.Message{{ID: 11, ConversationID: 1, Sender: "customer", Text: "third", Type: "text", Status: "read", Timestamp: time.UnixMilli(2000)}},
				}},
				LastMessageID: 11,
			}
		default:
			if cursor != "11" {
				t.Errorf("poll %d cursor = %q, want 11", n, cursor)
			}
			resp = remote.ConversationsResponse{LastMessageID: 11}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := remote.New(srv.URL)
	e := NewEngine(db, b, nil)
	expiry, _ := newExpiry(b)

	p := NewPoller(client, e, db, b, expiry, nil, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for polls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d polls completed", polls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	p.Stop()

	cur, _ := db.Cursor()
	if cur != 11 {
		t.Errorf("cursor = %d, want 11", cur)
	}
	count, _ := db.MessageCount()
	if count != 3 {
		t.Errorf("message count = %d, want 3", count)
	}
}

func TestPollerHaltsOnSessionExpiry(t *testing.T) {
	db := testDB(t)
	b := bus.New()

	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Token expirado"}`))
	}))
	defer srv.Close()

	ch, unsub := b.Subscribe(bus.KindSessionExpired, 10)
	defer unsub()

	client := remote.New(srv.URL)
	expiry, _ := newExpiry(b)
	p := NewPoller(client, NewEngine(db, b, nil), db, b, expiry, nil, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no expiry signal")
	}

	// Loop halted: no further polls after the signal settles.
	time.Sleep(50 * time.Millisecond)
	before := polls.Load()
	time.Sleep(100 * time.Millisecond)
	if after := polls.Load(); after != before {
		t.Errorf("poller kept polling after expiry: %d -> %d", before, after)
	}
	if before != 1 {
		t.Errorf("polls before halt = %d, want 1", before)
	}
}

func TestPollerKeepsGoingOnServerError(t *testing.T) {
	db := testDB(t)
	b := bus.New()

	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(remote.ConversationsResponse{})
	}))
	defer srv.Close()

	client := remote.New(srv.URL)
	expiry, _ := newExpiry(b)
	p := NewPoller(client, NewEngine(db, b, nil), db, b, expiry, nil, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for polls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("loop stopped after error, polls = %d", polls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWatcherSwitchCancelsOldLoop(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, nil)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/conversations/1/messages/updates" {
			// Hold the conversation 1 request until cancelled.
			select {
			case <-r.Context().Done():
				return
			case <-release:
			}
			_ = json.NewEncoder(w).Encode(remote.UpdatesResponse{
				Messages:   []remote.Message{{ID: 1, ConversationID: 1, Sender: "agent", Text: "stale", Type: "text", Status: "delivered", Timestamp: time.UnixMilli(1000)}},
				HasUpdates: true,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(remote.UpdatesResponse{
			Messages:   []remote.Message{{ID: 2, ConversationID: 2, Sender: "agent", Text: "fresh", Type: "text", Status: "delivered", Timestamp: time.UnixMilli(2000)}},
			HasUpdates: true,
		})
	}))
	defer srv.Close()

	client := remote.New(srv.URL)
	expiry, _ := newExpiry(b)
	w := NewWatcher(client, e, expiry, nil, time.Second)
	w.cooldown = 10 * time.Millisecond

	ctx := context.Background()
	w.Watch(ctx, 1)
	time.Sleep(50 * time.Millisecond)

	// Switching must cancel the held request before the new loop starts.
	w.Watch(ctx, 2)
	close(release)

	deadline := time.After(2 * time.Second)
	for {
		msgs, err := db.ListMessages(2, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no updates merged for conversation 2")
		case <-time.After(10 * time.Millisecond):
		}
	}
	w.Stop()

	// The stale conversation 1 response must have been discarded.
	msgs, err := db.ListMessages(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("stale response merged: %+v", msgs)
	}
}

func TestWatcherRewatchSameIDNoop(t *testing.T) {
	db := testDB(t)
	b := bus.New()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode(remote.UpdatesResponse{})
	}))
	defer srv.Close()

	client := remote.New(srv.URL)
	expiry, _ := newExpiry(b)
	w := NewWatcher(client, NewEngine(db, b, nil), expiry, nil, time.Second)
	w.cooldown = time.Hour

	ctx := context.Background()
	w.Watch(ctx, 5)
	time.Sleep(50 * time.Millisecond)
	w.Watch(ctx, 5)
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1 (re-watch is a no-op)", n)
	}
}

// TestPollerManualPollDoesNotOverlap covers the single in-flight guarantee:
// manual polls requested while a cycle is still on the wire coalesce into
// one follow-up cycle instead of a second concurrent request.
func TestPollerManualPollDoesNotOverlap(t *testing.T) {
	db := testDB(t)
	b := bus.New()

	var active, maxActive, total atomic.Int64
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := active.Add(1)
		defer active.Add(-1)
		for {
			prev := maxActive.Load()
			if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
				break
			}
		}
		n := total.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release
		}
		_ = json.NewEncoder(w).Encode(remote.ConversationsResponse{})
	}))
	defer srv.Close()

	client := remote.New(srv.URL)
	e := NewEngine(db, b, nil)
	expiry, _ := newExpiry(b)

	// Hour-long interval: every cycle past the first must come from PollNow.
	p := NewPoller(client, e, db, b, expiry, nil, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	// First cycle runs immediately and is held open by the handler.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll never started")
	}

	p.PollNow()
	p.PollNow()

	select {
	case <-started:
		t.Fatal("second request started while the first was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	// The queued manual poll runs as soon as the held cycle returns,
	// well before the timer interval.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("manual poll never ran after the in-flight cycle finished")
	}

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent polls = %d, want 1", got)
	}
	if got := total.Load(); got != 2 {
		t.Errorf("total polls = %d, want 2 (manual requests coalesce)", got)
	}
}

// TestWatcherRestartsAfterExpiry: an expired session halts the loop and the
// watcher forgets the conversation, so watching the same id again after
// re-login starts a fresh loop instead of hitting the re-watch no-op.
func TestWatcherRestartsAfterExpiry(t *testing.T) {
	db := testDB(t)
	b := bus.New()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(remote.UpdatesResponse{})
	}))
	defer srv.Close()

	client := remote.New(srv.URL)
	expiry, m := newExpiry(b)
	w := NewWatcher(client, NewEngine(db, b, nil), expiry, nil, time.Second)
	w.cooldown = time.Hour

	ctx := context.Background()
	w.Watch(ctx, 5)

	deadline := time.After(2 * time.Second)
	for w.Current() != 0 {
		select {
		case <-deadline:
			t.Fatalf("watcher still holds conversation %d after expiry", w.Current())
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := m.Current(); got != status.SessionExpired {
		t.Fatalf("state = %v, want %v", got, status.SessionExpired)
	}

	// Re-login, open the same conversation again.
	if err := m.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	w.Watch(ctx, 5)

	deadline = time.After(2 * time.Second)
	for requests.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("no new long poll after re-watching the conversation")
		case <-time.After(5 * time.Millisecond):
		}
	}
	w.Stop()
}
