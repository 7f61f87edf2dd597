package store

import (
	"database/sql"
	"strconv"
	"time"
)

const cursorKey = "last_message_id"

// Cursor returns the highest server message id already merged, or 0 on a
// fresh database.
func (db *DB) Cursor() (int64, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, cursorKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// AdvanceCursor moves the poll watermark forward. The cursor never moves
// backwards: a stale or empty poll response cannot rewind it.
func (db *DB) AdvanceCursor(id int64) error {
	return advanceCursor(db.DB, id)
}

func advanceCursor(ex execer, id int64) error {
	now := time.Now().UnixMilli()
	_, err := ex.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = CAST(MAX(CAST(sync_state.value AS INTEGER), CAST(excluded.value AS INTEGER)) AS TEXT),
			updated_at = excluded.updated_at`,
		cursorKey, strconv.FormatInt(id, 10), now)
	return err
}

// SyncState reads an arbitrary sync checkpoint value ("" when unset).
func (db *DB) SyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSyncState writes an arbitrary sync checkpoint value.
func (db *DB) SetSyncState(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now)
	return err
}
