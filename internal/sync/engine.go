// Package sync keeps the local store eventually consistent with the gateway
// through a fixed-cadence global poll and a per-conversation long-poll.
package sync

import (
	"fmt"
	"strconv"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/store"
	"go.uber.org/zap"
)

// Engine folds gateway snapshots into the store idempotently and publishes
// change events on the bus.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: db, bus: b, logger: logger}
}

// SnapshotResult summarizes one merged poll response.
type SnapshotResult struct {
	Conversations int
	Messages      int
	Cursor        int64
}

// IngestSnapshot merges a poll response into the store. The merge is
// idempotent: re-applying a response, or applying one that overlaps a
// previous poll, changes nothing for already-known rows. The cursor advances
// only when the snapshot carried new messages.
func (e *Engine) IngestSnapshot(resp *remote.ConversationsResponse) (*SnapshotResult, error) {
	var (
		convs []store.Conversation
		msgs  []store.Message
	)
	for i := range resp.Conversations {
		rc := &resp.Conversations[i]
		convs = append(convs, toStoreConversation(rc))
		for j := range rc.Messages {
			msgs = append(msgs, toStoreMessage(&rc.Messages[j]))
		}
	}

	cursor := int64(0)
	if len(msgs) > 0 {
		cursor = resp.LastMessageID
	}

	if err := e.db.ApplySnapshot(convs, msgs, cursor); err != nil {
		return nil, fmt.Errorf("apply snapshot: %w", err)
	}

	for i := range convs {
		e.bus.Emit(bus.KindConversationUpdated, convs[i].ID)
	}
	for i := range msgs {
		e.bus.Emit(bus.KindMessageUpserted, map[string]string{
			"conversation_id": strconv.FormatInt(msgs[i].ConversationID, 10),
			"msg_id":          msgs[i].MsgID,
		})
	}

	result := &SnapshotResult{Conversations: len(convs), Messages: len(msgs), Cursor: cursor}
	if len(msgs) > 0 {
		e.bus.Emit(bus.KindSnapshot, result)
	}
	return result, nil
}

// ApplyMessageUpdates merges delivery status changes from a long poll.
func (e *Engine) ApplyMessageUpdates(conversationID int64, updates []remote.Message) error {
	for i := range updates {
		sm := toStoreMessage(&updates[i])
		sm.ConversationID = conversationID
		if err := e.db.UpsertMessage(&sm); err != nil {
			return fmt.Errorf("upsert message %s: %w", sm.MsgID, err)
		}
		e.bus.Emit(bus.KindMessageStatus, map[string]string{
			"conversation_id": strconv.FormatInt(conversationID, 10),
			"msg_id":          sm.MsgID,
			"status":          sm.Status,
		})
	}
	return nil
}

func toStoreConversation(rc *remote.Conversation) store.Conversation {
	return store.Conversation{
		ID:            rc.ID,
		Platform:      rc.Platform,
		ContactName:   rc.Contact.Name,
		ContactHandle: rc.Contact.Username,
		ContactAvatar: rc.Contact.Avatar,
		LastMessage:   rc.LastMessage,
		Timestamp:     rc.Timestamp.UnixMilli(),
		Unread:        rc.Unread,
		Status:        rc.Status,
		CustomerID:    rc.CustomerID,
		OrderID:       rc.OrderID,
		WPAccountID:   rc.WPAccountID,
		ConvType:      rc.Type,
		PostID:        rc.PostID,
		Summary:       rc.Summary,
	}
}

func toStoreMessage(rm *remote.Message) store.Message {
	var statusUpdated int64
	if !rm.StatusUpdatedAt.IsZero() {
		statusUpdated = rm.StatusUpdatedAt.UnixMilli()
	}
	return store.Message{
		ConversationID: rm.ConversationID,
		MsgID:          strconv.FormatInt(rm.ID, 10),
		Sender:         rm.Sender,
		Body:           rm.Text,
		ImageURL:       rm.Image,
		MessageType:    rm.Type,
		ActionType:     rm.ActionType,
		Status:         rm.Status,
		Timestamp:      rm.Timestamp.UnixMilli(),
		StatusUpdated:  statusUpdated,
	}
}
