package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// GetMetadata returns the annotations for a conversation, creating an empty
// record on first access.
func (db *DB) GetMetadata(conversationID int64) (*Metadata, error) {
	var (
		m    Metadata
		tags string
	)
	err := db.QueryRow(`
		SELECT conversation_id, notes, tags, labels, ai_insights
		FROM conversation_metadata WHERE conversation_id = ?`, conversationID).
		Scan(&m.ConversationID, &m.Notes, &tags, &m.Labels, &m.AIInsights)
	if err == sql.ErrNoRows {
		now := time.Now().UnixMilli()
		if _, err := db.Exec(`
			INSERT INTO conversation_metadata (conversation_id, updated_at) VALUES (?, ?)`,
			conversationID, now); err != nil {
			return nil, err
		}
		return &Metadata{ConversationID: conversationID, Tags: []string{}, Labels: "[]"}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &m, nil
}

// SaveMetadata writes the annotations for a conversation.
func (db *DB) SaveMetadata(m *Metadata) error {
	tags, err := json.Marshal(orEmpty(m.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	labels := m.Labels
	if labels == "" {
		labels = "[]"
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO conversation_metadata (conversation_id, notes, tags, labels, ai_insights, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			notes = excluded.notes,
			tags = excluded.tags,
			labels = excluded.labels,
			ai_insights = excluded.ai_insights,
			updated_at = excluded.updated_at`,
		m.ConversationID, m.Notes, string(tags), labels, m.AIInsights, now)
	return err
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
