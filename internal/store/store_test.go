package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + fts)", result.Version)
	}
}

func TestConversationUpsertAndList(t *testing.T) {
	db := testDB(t)

	conv := &Conversation{ID: 1, Platform: "whatsapp", ContactName: "Maria Silva", LastMessage: "hello", Timestamp: 1000, Status: "pending"}
	if err := db.UpsertConversation(conv); err != nil {
		t.Fatal(err)
	}

	// Re-apply with updated preview.
	conv.LastMessage = "hello again"
	conv.Timestamp = 2000
	if err := db.UpsertConversation(conv); err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations("", "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	if convs[0].LastMessage != "hello again" {
		t.Errorf("last_message = %q", convs[0].LastMessage)
	}
}

func TestConversationUpsertKeepsLinks(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: 1, Platform: "whatsapp", Timestamp: 1000, Status: "pending"}); err != nil {
		t.Fatal(err)
	}
	if err := db.LinkConversation(1, 42, 77, 0); err != nil {
		t.Fatal(err)
	}

	// A poll payload without linkage must not clear the local link.
	if err := db.UpsertConversation(&Conversation{ID: 1, Platform: "whatsapp", Timestamp: 2000, Status: "pending"}); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetConversation(1)
	if err != nil {
		t.Fatal(err)
	}
	if c.CustomerID != 42 || c.OrderID != 77 {
		t.Errorf("links lost: customer=%d order=%d", c.CustomerID, c.OrderID)
	}
}

func TestListConversationsFilters(t *testing.T) {
	db := testDB(t)

	seed := []Conversation{
		{ID: 1, Platform: "whatsapp", Timestamp: 3000, Status: "pending"},
		{ID: 2, Platform: "instagram", Timestamp: 2000, Status: "resolved"},
		{ID: 3, Platform: "whatsapp", Timestamp: 1000, Status: "resolved"},
	}
	for i := range seed {
		if err := db.UpsertConversation(&seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := db.ListConversations("whatsapp", "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("platform filter: got %d, want 2", len(convs))
	}
	if convs[0].ID != 1 {
		t.Errorf("order: first conversation = %d, want 1 (newest)", convs[0].ID)
	}

	convs, err = db.ListConversations("whatsapp", "resolved", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].ID != 3 {
		t.Errorf("combined filter: got %+v", convs)
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	m := &Message{ConversationID: 1, MsgID: "10", Sender: "customer", Body: "hi", Status: "read", Timestamp: 1000}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestMessageStatusUpdate(t *testing.T) {
	db := testDB(t)

	m := &Message{ConversationID: 1, MsgID: "10", Sender: "agent", Body: "hi", Status: "sent", Timestamp: 1000}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateMessageStatus(1, "10", "delivered"); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Status != "delivered" {
		t.Errorf("status = %q, want delivered", msgs[0].Status)
	}
}

func TestPendingResolve(t *testing.T) {
	db := testDB(t)

	if err := db.InsertPending(1, "abc", "on the way", ""); err != nil {
		t.Fatal(err)
	}

	server := &Message{ConversationID: 1, MsgID: "55", Sender: "agent", Body: "on the way", Status: "sent", Timestamp: 2000}
	if err := db.ResolvePending("abc", server); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].MsgID != "55" || msgs[0].Status != "sent" {
		t.Errorf("resolved message = %+v", msgs[0])
	}
}

func TestPendingResolveAfterPollRace(t *testing.T) {
	db := testDB(t)

	if err := db.InsertPending(1, "abc", "on the way", ""); err != nil {
		t.Fatal(err)
	}

	// The poll merged the server copy before the send ack arrived.
	server := &Message{ConversationID: 1, MsgID: "55", Sender: "agent", Body: "on the way", Status: "sent", Timestamp: 2000}
	if err := db.UpsertMessage(server); err != nil {
		t.Fatal(err)
	}

	if err := db.ResolvePending("abc", server); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (placeholder dropped)", len(msgs))
	}
}

func TestPendingFailed(t *testing.T) {
	db := testDB(t)

	if err := db.InsertPending(1, "abc", "oops", ""); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkPendingFailed(1, "abc"); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Status != "failed" {
		t.Errorf("status = %q, want failed", msgs[0].Status)
	}
}

func TestCursorAdvance(t *testing.T) {
	db := testDB(t)

	cur, err := db.Cursor()
	if err != nil {
		t.Fatal(err)
	}
	if cur != 0 {
		t.Errorf("fresh cursor = %d, want 0", cur)
	}

	if err := db.AdvanceCursor(10); err != nil {
		t.Fatal(err)
	}
	if err := db.AdvanceCursor(11); err != nil {
		t.Fatal(err)
	}

	cur, err = db.Cursor()
	if err != nil {
		t.Fatal(err)
	}
	if cur != 11 {
		t.Errorf("cursor = %d, want 11", cur)
	}
}

func TestCursorNeverRewinds(t *testing.T) {
	db := testDB(t)

	if err := db.AdvanceCursor(100); err != nil {
		t.Fatal(err)
	}
	if err := db.AdvanceCursor(50); err != nil {
		t.Fatal(err)
	}

	cur, err := db.Cursor()
	if err != nil {
		t.Fatal(err)
	}
	if cur != 100 {
		t.Errorf("cursor = %d, want 100 (no rewind)", cur)
	}
}

func TestApplySnapshotAtomic(t *testing.T) {
	db := testDB(t)

	convs := []Conversation{{ID: 1, Platform: "whatsapp", Timestamp: 1000, Status: "pending"}}
	msgs := []Message{
		{ConversationID: 1, MsgID: "9", Sender: "customer", Body: "first", Timestamp: 900},
		{ConversationID: 1, MsgID: "10", Sender: "customer", Body: "second", Timestamp: 1000},
	}
	if err := db.ApplySnapshot(convs, msgs, 10); err != nil {
		t.Fatal(err)
	}

	// Re-applying the exact same snapshot changes nothing.
	if err := db.ApplySnapshot(convs, msgs, 10); err != nil {
		t.Fatal(err)
	}

	count, err := db.MessageCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("message count = %d, want 2", count)
	}

	cur, _ := db.Cursor()
	if cur != 10 {
		t.Errorf("cursor = %d, want 10", cur)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox("cid-1", 1, "hello", ""); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Status != "queued" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := db.MarkOutboxSending("cid-1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("cid-1", "srv-55"); err != nil {
		t.Fatal(err)
	}

	e, err := db.GetOutboxEntry("cid-1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != "sent" || e.ServerMsgID != "srv-55" {
		t.Errorf("entry = %+v", e)
	}
}

func TestMetadataLazyCreate(t *testing.T) {
	db := testDB(t)

	m, err := db.GetMetadata(7)
	if err != nil {
		t.Fatal(err)
	}
	if m.ConversationID != 7 || m.Notes != "" || len(m.Tags) != 0 {
		t.Errorf("fresh metadata = %+v", m)
	}

	m.Notes = "VIP customer"
	m.Tags = []string{"urgent"}
	if err := db.SaveMetadata(m); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetMetadata(7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Notes != "VIP customer" || len(got.Tags) != 1 || got.Tags[0] != "urgent" {
		t.Errorf("metadata = %+v", got)
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)

	msgs := []Message{
		{ConversationID: 1, MsgID: "1", Sender: "customer", Body: "where is my order", Timestamp: 1000},
		{ConversationID: 1, MsgID: "2", Sender: "agent", Body: "checking now", Timestamp: 1100},
		{ConversationID: 2, MsgID: "1", Sender: "customer", Body: "order arrived broken", Timestamp: 1200},
	}
	for i := range msgs {
		if err := db.UpsertMessage(&msgs[i]); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.SearchMessages("order", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	results, err = db.SearchMessages("order", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Message.ConversationID != 2 {
		t.Errorf("scoped search = %+v", results)
	}
}
