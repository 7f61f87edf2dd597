package store

import (
	"database/sql"
	"time"
)

// UpsertConversation inserts or updates a conversation record. Linkage
// fields (customer, order, account, post) coming in as zero do not clobber
// an existing local link.
func (db *DB) UpsertConversation(c *Conversation) error {
	return upsertConversation(db.DB, c)
}

func upsertConversation(ex execer, c *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := ex.Exec(`
		INSERT INTO conversations (id, platform, contact_name, contact_handle, contact_avatar,
			last_message, timestamp, unread, status, customer_id, order_id,
			wp_account_id, conv_type, post_id, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			platform = excluded.platform,
			contact_name = CASE WHEN excluded.contact_name != '' THEN excluded.contact_name ELSE conversations.contact_name END,
			contact_handle = CASE WHEN excluded.contact_handle != '' THEN excluded.contact_handle ELSE conversations.contact_handle END,
			contact_avatar = CASE WHEN excluded.contact_avatar != '' THEN excluded.contact_avatar ELSE conversations.contact_avatar END,
			last_message = excluded.last_message,
			timestamp = excluded.timestamp,
			unread = excluded.unread,
			status = excluded.status,
			customer_id = CASE WHEN excluded.customer_id != 0 THEN excluded.customer_id ELSE conversations.customer_id END,
			order_id = CASE WHEN excluded.order_id != 0 THEN excluded.order_id ELSE conversations.order_id END,
			wp_account_id = CASE WHEN excluded.wp_account_id != 0 THEN excluded.wp_account_id ELSE conversations.wp_account_id END,
			conv_type = excluded.conv_type,
			post_id = CASE WHEN excluded.post_id != '' THEN excluded.post_id ELSE conversations.post_id END,
			summary = CASE WHEN excluded.summary != '' THEN excluded.summary ELSE conversations.summary END,
			updated_at = excluded.updated_at`,
		c.ID, c.Platform, c.ContactName, c.ContactHandle, c.ContactAvatar,
		c.LastMessage, c.Timestamp, c.Unread, c.Status, c.CustomerID, c.OrderID,
		c.WPAccountID, c.ConvType, c.PostID, c.Summary, now)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const conversationCols = `id, platform, contact_name, contact_handle, contact_avatar,
	last_message, timestamp, unread, status, customer_id, order_id,
	wp_account_id, conv_type, post_id, summary`

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.Platform, &c.ContactName, &c.ContactHandle, &c.ContactAvatar,
		&c.LastMessage, &c.Timestamp, &c.Unread, &c.Status, &c.CustomerID, &c.OrderID,
		&c.WPAccountID, &c.ConvType, &c.PostID, &c.Summary)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns conversations sorted by last activity descending,
// optionally filtered by platform and status ("" means no filter).
func (db *DB) ListConversations(platform, status string, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 100
	}

	q := `SELECT ` + conversationCols + ` FROM conversations WHERE 1=1`
	args := []any{}
	if platform != "" {
		q += " AND platform = ?"
		args = append(args, platform)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// GetConversation returns a single conversation, or nil if absent.
func (db *DB) GetConversation(id int64) (*Conversation, error) {
	row := db.QueryRow(`SELECT `+conversationCols+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetConversationStatus updates the pending/resolved status locally.
func (db *DB) SetConversationStatus(id int64, status string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE conversations SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	return err
}

// LinkConversation records a customer/order/account association.
func (db *DB) LinkConversation(id, customerID, orderID, wpAccountID int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE conversations SET
			customer_id = CASE WHEN ? != 0 THEN ? ELSE customer_id END,
			order_id = CASE WHEN ? != 0 THEN ? ELSE order_id END,
			wp_account_id = CASE WHEN ? != 0 THEN ? ELSE wp_account_id END,
			updated_at = ?
		WHERE id = ?`,
		customerID, customerID, orderID, orderID, wpAccountID, wpAccountID, now, id)
	return err
}

// ConversationCount returns the total number of conversations.
func (db *DB) ConversationCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
