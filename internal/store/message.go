package store

import (
	"fmt"
	"time"
)

// UpsertMessage inserts or updates a message (idempotent on
// conversation_id + msg_id). Re-applying the same server payload leaves the
// row unchanged; a payload with a newer status updates it in place.
func (db *DB) UpsertMessage(m *Message) error {
	return upsertMessage(db.DB, m)
}

func upsertMessage(ex execer, m *Message) error {
	now := time.Now().UnixMilli()
	_, err := ex.Exec(`
		INSERT INTO messages (conversation_id, msg_id, sender, body, image_url,
			message_type, action_type, status, timestamp, status_updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
			body = excluded.body,
			image_url = excluded.image_url,
			status = excluded.status,
			status_updated_at = excluded.status_updated_at`,
		m.ConversationID, m.MsgID, m.Sender, m.Body, m.ImageURL,
		m.MessageType, m.ActionType, m.Status, m.Timestamp, m.StatusUpdated, now)
	return err
}

const messageCols = `id, conversation_id, msg_id, sender, body, image_url,
	message_type, action_type, status, timestamp, status_updated_at`

// ListMessages returns all messages for a conversation in chronological order.
func (db *DB) ListMessages(conversationID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(`
		SELECT `+messageCols+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MsgID, &m.Sender, &m.Body, &m.ImageURL,
			&m.MessageType, &m.ActionType, &m.Status, &m.Timestamp, &m.StatusUpdated); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// InsertPending records an optimistic outgoing message before the server has
// acknowledged it. The placeholder msg_id carries the client correlation id
// so the acknowledgement can find the row later.
func (db *DB) InsertPending(conversationID int64, clientMsgID, body, actionType string) error {
	now := time.Now().UnixMilli()
	m := &Message{
		ConversationID: conversationID,
		MsgID:          "pending:" + clientMsgID,
		Sender:         "agent",
		Body:           body,
		MessageType:    "text",
		ActionType:     actionType,
		Status:         "sending",
		Timestamp:      now,
		StatusUpdated:  now,
	}
	return upsertMessage(db.DB, m)
}

// ResolvePending replaces a pending placeholder with the server-assigned
// message. If the server copy already arrived through a poll, the placeholder
// is simply dropped so no duplicate remains.
func (db *DB) ResolvePending(clientMsgID string, server *Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pendingID := "pending:" + clientMsgID

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND msg_id = ?`,
		server.ConversationID, server.MsgID).Scan(&exists)
	if err != nil {
		return err
	}

	if exists > 0 {
		if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ? AND msg_id = ?`,
			server.ConversationID, pendingID); err != nil {
			return err
		}
	} else {
		now := time.Now().UnixMilli()
		if _, err := tx.Exec(`
			UPDATE messages SET msg_id = ?, body = ?, status = ?, timestamp = ?, status_updated_at = ?
			WHERE conversation_id = ? AND msg_id = ?`,
			server.MsgID, server.Body, server.Status, server.Timestamp, now,
			server.ConversationID, pendingID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MarkPendingFailed flags an unacknowledged outgoing message as failed so it
// stays visible for retry.
func (db *DB) MarkPendingFailed(conversationID int64, clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE messages SET status = 'failed', status_updated_at = ?
		WHERE conversation_id = ? AND msg_id = ?`,
		now, conversationID, "pending:"+clientMsgID)
	return err
}

// UpdateMessageStatus applies a delivery status change from the gateway.
func (db *DB) UpdateMessageStatus(conversationID int64, msgID, status string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE messages SET status = ?, status_updated_at = ?
		WHERE conversation_id = ? AND msg_id = ?`,
		status, now, conversationID, msgID)
	return err
}
