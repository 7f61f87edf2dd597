package store

import "fmt"

// ApplySnapshot merges one poll response atomically: conversation upserts,
// message upserts and the cursor advance commit together or not at all, so a
// crash mid-merge can never leave the cursor ahead of the data.
func (db *DB) ApplySnapshot(convs []Conversation, msgs []Message, cursor int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range convs {
		if err := upsertConversation(tx, &convs[i]); err != nil {
			return fmt.Errorf("upsert conversation %d: %w", convs[i].ID, err)
		}
	}
	for i := range msgs {
		if err := upsertMessage(tx, &msgs[i]); err != nil {
			return fmt.Errorf("upsert message %s: %w", msgs[i].MsgID, err)
		}
	}
	if cursor > 0 {
		if err := advanceCursor(tx, cursor); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}
	return tx.Commit()
}
