package outbox

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/status"
	"github.com/tekflox/inbox/internal/store"
	intsync "github.com/tekflox/inbox/internal/sync"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testExpiry builds a notifier over a machine driven to Ready, so a 401
// observation is a real state change.
func testExpiry(t *testing.T, b *bus.Bus) (*intsync.ExpiryNotifier, *status.Machine) {
	t.Helper()
	m := status.NewMachine(b)
	for _, st := range []status.State{status.Connecting, status.Syncing, status.Ready} {
		if err := m.Transition(st); err != nil {
			t.Fatal(err)
		}
	}
	return intsync.NewExpiryNotifier(m, b, nil), m
}

// mockSender records calls and returns configurable results.
type mockSender struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
	next  int64
}

func (m *mockSender) SendMessage(ctx context.Context, conversationID int64, text, actionType string) (*remote.Message, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.next++
	return &remote.Message{
		ID:             m.next,
		ConversationID: conversationID,
		Sender:         "agent",
		Text:           text,
		Type:           "text",
		ActionType:     actionType,
		Status:         "sending",
		Timestamp:      time.Now(),
	}, nil
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestSenderHappyPath(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{next: 40}
	expiry, _ := testExpiry(t, b)
	s := NewSender(db, mock, expiry, b, nil)

	ch, unsub := b.Subscribe(bus.KindSendAck, 10)
	defer unsub()

	if err := db.QueueOutbox("c1", 3, "on the way", "manual"); err != nil {
		t.Fatal(err)
	}
	s.ProcessPending(context.Background())

	select {
	case evt := <-ch:
		payload := evt.Payload.(map[string]string)
		if payload["client_msg_id"] != "c1" || payload["server_msg_id"] != "41" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no send_ack event")
	}

	e, err := db.GetOutboxEntry("c1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != "sent" || e.ServerMsgID != "41" {
		t.Errorf("entry = %+v", e)
	}

	// The placeholder was replaced by the server-confirmed message.
	msgs, err := db.ListMessages(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].MsgID != "41" {
		t.Errorf("messages = %+v", msgs)
	}
	if mock.callCount() != 1 {
		t.Errorf("send calls = %d, want 1", mock.callCount())
	}
}

// TestSenderOptimisticInsert verifies the message appears locally with
// status "sending" before the gateway responds.
func TestSenderOptimisticInsert(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{delay: 500 * time.Millisecond}
	expiry, _ := testExpiry(t, b)
	s := NewSender(db, mock, expiry, b, nil)

	if err := db.QueueOutbox("c1", 3, "optimistic", ""); err != nil {
		t.Fatal(err)
	}

	ch, unsub := b.Subscribe(bus.KindMessageUpserted, 10)
	defer unsub()

	s.Start(context.Background())
	defer s.Stop()

	// Wait for the optimistic insert (before the mock's delay finishes).
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for optimistic message.upserted event")
	}

	msgs, err := db.ListMessages(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (optimistic insert)", len(msgs))
	}
	if msgs[0].Status != "sending" {
		t.Errorf("status = %q, want 'sending' (optimistic)", msgs[0].Status)
	}
	if msgs[0].Sender != "agent" {
		t.Errorf("sender = %q, want agent", msgs[0].Sender)
	}

	// Wait for send to complete.
	time.Sleep(time.Second)

	msgs, err = db.ListMessages(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].MsgID == "pending:c1" {
		t.Error("placeholder not reconciled after confirmation")
	}
}

// TestSenderFailureKeepsPlaceholder verifies that a failed send leaves the
// message visible with status "failed".
func TestSenderFailureKeepsPlaceholder(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{err: fmt.Errorf("timeout")}
	expiry, _ := testExpiry(t, b)
	s := NewSender(db, mock, expiry, b, nil)

	ch, unsub := b.Subscribe(bus.KindSendFailed, 10)
	defer unsub()

	if err := db.QueueOutbox("c1", 3, "oops", ""); err != nil {
		t.Fatal(err)
	}
	s.ProcessPending(context.Background())

	select {
	case evt := <-ch:
		payload := evt.Payload.(map[string]string)
		if payload["error"] != "timeout" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no send_failed event")
	}

	msgs, err := db.ListMessages(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Status != "failed" {
		t.Errorf("messages = %+v", msgs)
	}

	e, err := db.GetOutboxEntry("c1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != "failed" || e.ErrorMessage != "timeout" {
		t.Errorf("entry = %+v", e)
	}
}

// TestSenderReconcilesWithPolledCopy covers the race where the global poll
// merges the server copy before the send acknowledgement arrives.
func TestSenderReconcilesWithPolledCopy(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{next: 54}
	expiry, _ := testExpiry(t, b)
	s := NewSender(db, mock, expiry, b, nil)

	if err := db.QueueOutbox("c1", 3, "on the way", ""); err != nil {
		t.Fatal(err)
	}

	// Simulate the poll winning the race: server message 55 already merged.
	if err := db.UpsertMessage(&store.Message{
		ConversationID: 3, MsgID: "55", Sender: "agent",
		Body: "on the way", MessageType: "text", Status: "sent", Timestamp: 2000,
	}); err != nil {
		t.Fatal(err)
	}

	s.ProcessPending(context.Background())

	msgs, err := db.ListMessages(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (no duplicate)", len(msgs))
	}
	if msgs[0].MsgID != "55" {
		t.Errorf("msg_id = %q, want 55", msgs[0].MsgID)
	}
}

// TestSenderHaltsOnSessionExpiry verifies a 401 from the gateway is not
// treated as a send failure: the entry goes back to the queue, the drain
// stops, and exactly one session.expired event goes out.
func TestSenderHaltsOnSessionExpiry(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{err: remote.ErrSessionExpired}
	expiry, m := testExpiry(t, b)
	s := NewSender(db, mock, expiry, b, nil)

	ch, unsub := b.Subscribe(bus.KindSessionExpired, 10)
	defer unsub()

	if err := db.QueueOutbox("c1", 3, "first", ""); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox("c2", 3, "second", ""); err != nil {
		t.Fatal(err)
	}

	if halt := s.ProcessPending(context.Background()); !halt {
		t.Fatal("ProcessPending() = false, want halt on expired session")
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no session.expired event")
	}
	if got := m.Current(); got != status.SessionExpired {
		t.Fatalf("state = %v, want %v", got, status.SessionExpired)
	}
	if mock.callCount() != 1 {
		t.Errorf("send calls = %d, want 1 (drain must stop at the 401)", mock.callCount())
	}

	// Both entries survive for the next login, none marked failed.
	for _, id := range []string{"c1", "c2"} {
		e, err := db.GetOutboxEntry(id)
		if err != nil {
			t.Fatal(err)
		}
		if e.Status != "queued" {
			t.Errorf("entry %s status = %q, want queued", id, e.Status)
		}
	}

	// The optimistic placeholder keeps its "sending" status: the message
	// was never rejected, only the session.
	msgs, err := db.ListMessages(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Status != "sending" {
		t.Errorf("messages = %+v", msgs)
	}
}
