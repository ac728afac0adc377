package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Outbox entry states
const (
	StatusPending = "pending"
	StatusFailed  = "failed"
	StatusDone    = "done"
)

// OutboxEntry is one remote write waiting to be applied
type OutboxEntry struct {
	ID        int64
	Table     string
	Op        string
	EntityID  string
	Payload   []byte
	Status    string
	Attempts  int
	Error     ErrorRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrorRecord is the last structured failure seen for an entry
type ErrorRecord struct {
	Code    string
	Message string
	Details string
	Hint    string
}

const outboxColumns = `id, table_name, op, entity_id, payload, status, attempts,
    error_code, error_message, error_details, error_hint, created_at, updated_at`

// Enqueue appends a pending entry and returns its id
func (db *DB) Enqueue(e OutboxEntry) (int64, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(
		`INSERT INTO outbox (table_name, op, entity_id, payload, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Table, e.Op, e.EntityID, string(e.Payload), StatusPending, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s %s: %w", e.Op, e.Table, err)
	}
	return res.LastInsertId()
}

// Pending returns entries after afterID that still need applying, oldest
// first. Entries that failed maxAttempts times or more are left for manual
// inspection; maxAttempts <= 0 returns them too.
func (db *DB) Pending(afterID int64, limit, maxAttempts int) ([]OutboxEntry, error) {
	return db.queryEntries(
		`SELECT `+outboxColumns+` FROM outbox
		 WHERE id > ? AND status IN (?, ?) AND (? <= 0 OR attempts < ?)
		 ORDER BY id LIMIT ?`,
		afterID, StatusPending, StatusFailed, maxAttempts, maxAttempts, limit,
	)
}

// Failures returns entries whose last attempt failed, newest first
func (db *DB) Failures() ([]OutboxEntry, error) {
	return db.queryEntries(
		`SELECT `+outboxColumns+` FROM outbox WHERE status = ? ORDER BY id DESC`,
		StatusFailed,
	)
}

// MarkDone records a successful remote write
func (db *DB) MarkDone(id int64) error {
	_, err := db.Exec(
		`UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?`,
		StatusDone, time.Now().UnixMilli(), id,
	)
	return err
}

// MarkFailed records a failed attempt together with the remote error
func (db *DB) MarkFailed(id int64, rec ErrorRecord) error {
	_, err := db.Exec(
		`UPDATE outbox SET status = ?, attempts = attempts + 1,
		    error_code = ?, error_message = ?, error_details = ?, error_hint = ?, updated_at = ?
		 WHERE id = ?`,
		StatusFailed, rec.Code, rec.Message, rec.Details, rec.Hint, time.Now().UnixMilli(), id,
	)
	return err
}

// Retry resets failed entries to pending with a fresh attempt budget
func (db *DB) Retry() (int64, error) {
	res, err := db.Exec(
		`UPDATE outbox SET status = ?, attempts = 0, updated_at = ? WHERE status = ?`,
		StatusPending, time.Now().UnixMilli(), StatusFailed,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Counts returns how many entries are pending and failed
func (db *DB) Counts() (pending, failed int, err error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM outbox WHERE status != ? GROUP BY status`, StatusDone)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return 0, 0, err
		}
		switch status {
		case StatusPending:
			pending = n
		case StatusFailed:
			failed = n
		}
	}
	return pending, failed, rows.Err()
}

// PurgeDone deletes applied entries older than before
func (db *DB) PurgeDone(before time.Time) (int64, error) {
	res, err := db.Exec(
		`DELETE FROM outbox WHERE status = ? AND updated_at < ?`,
		StatusDone, before.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Discard drops every entry, sent or not
func (db *DB) Discard() (int64, error) {
	res, err := db.Exec(`DELETE FROM outbox`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) queryEntries(query string, args ...any) ([]OutboxEntry, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			e       OutboxEntry
			payload sql.NullString
			created int64
			updated int64
		)
		if err := rows.Scan(&e.ID, &e.Table, &e.Op, &e.EntityID, &payload, &e.Status, &e.Attempts,
			&e.Error.Code, &e.Error.Message, &e.Error.Details, &e.Error.Hint, &created, &updated); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		e.CreatedAt = time.UnixMilli(created)
		e.UpdatedAt = time.UnixMilli(updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
