package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/tasko/internal/store"
)

const snapshotKey = "state"

// SaveSnapshot stores the full store state so the next run starts from it
func (db *DB) SaveSnapshot(st store.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO snapshot (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		snapshotKey, string(data), time.Now().UnixMilli(),
	)
	return err
}

// LoadSnapshot returns the last saved state. ok is false when none exists.
func (db *DB) LoadSnapshot() (st store.State, ok bool, err error) {
	var value string
	err = db.QueryRow(`SELECT value FROM snapshot WHERE key = ?`, snapshotKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return store.State{}, false, nil
	}
	if err != nil {
		return store.State{}, false, err
	}
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		return store.State{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return st, true, nil
}

// ClearSnapshot forgets the cached state, used on logout
func (db *DB) ClearSnapshot() error {
	_, err := db.Exec(`DELETE FROM snapshot WHERE key = ?`, snapshotKey)
	return err
}
