// Package sync mirrors committed store mutations to the remote service
// through a durable sqlite outbox, and loads remote state into the store.
package sync

import (
	"encoding/json"
	"sync"

	"github.com/existflow/tasko/internal/db"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/remote"
	"github.com/existflow/tasko/internal/store"
)

// Queue turns store mutations into outbox entries. It is the store's
// Dispatcher and never touches the network.
type Queue struct {
	db  *db.DB
	log *logger.Logger

	mu        sync.Mutex
	onEnqueue func()
}

// NewQueue creates a queue writing to database
func NewQueue(database *db.DB) *Queue {
	return &Queue{
		db:  database,
		log: logger.WithFields(logger.F("component", "outbox")),
	}
}

// SetOnEnqueue sets a callback run after every enqueued entry, usually Worker.Trigger
func (q *Queue) SetOnEnqueue(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onEnqueue = fn
}

// Dispatch maps m to its remote row and stores it. Failures are logged;
// the local change stands either way.
func (q *Queue) Dispatch(m store.Mutation) {
	entry, ok, err := entryFor(m)
	if err != nil {
		q.log.Error("Cannot queue mutation",
			logger.F("kind", m.Kind), logger.F("op", m.Op), logger.F("entity", m.ID), logger.Err(err))
		return
	}
	if !ok {
		return
	}

	id, err := q.db.Enqueue(entry)
	if err != nil {
		q.log.Error("Failed to write outbox entry",
			logger.F("table", entry.Table), logger.F("entity", entry.EntityID), logger.Err(err))
		return
	}
	q.log.Debug("Queued remote write",
		logger.F("outbox", id), logger.F("table", entry.Table), logger.F("op", entry.Op), logger.F("entity", entry.EntityID))

	q.mu.Lock()
	fn := q.onEnqueue
	q.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// entryFor builds the outbox entry for m. ok is false when there is nothing
// to send, such as an update touching only local fields.
func entryFor(m store.Mutation) (entry db.OutboxEntry, ok bool, err error) {
	table, err := remote.TableFor(m.Kind)
	if err != nil {
		return db.OutboxEntry{}, false, err
	}
	entry = db.OutboxEntry{Table: table, Op: string(m.Op), EntityID: m.ID}

	var payload any
	switch m.Op {
	case store.OpInsert:
		payload, err = remote.InsertRow(m)
	case store.OpUpdate:
		var row map[string]any
		row, err = remote.UpdateRow(m)
		if err == nil && len(row) == 0 {
			return db.OutboxEntry{}, false, nil
		}
		payload = row
	case store.OpDelete:
		return entry, true, nil
	}
	if err != nil {
		return db.OutboxEntry{}, false, err
	}

	entry.Payload, err = json.Marshal(payload)
	if err != nil {
		return db.OutboxEntry{}, false, err
	}
	return entry, true, nil
}
