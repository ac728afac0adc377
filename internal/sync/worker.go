package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/existflow/tasko/internal/db"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/remote"
	"github.com/existflow/tasko/internal/store"
)

const batchSize = 50

// Remote is the part of the remote client the worker writes through
type Remote interface {
	remote.SessionSource
	Insert(ctx context.Context, table string, row any) error
	Update(ctx context.Context, table, id string, row any) error
	Delete(ctx context.Context, table, id string) error
}

// CurrentUserSource tells the worker whose session must be active
type CurrentUserSource interface {
	CurrentUser() *model.User
}

// Result holds drain statistics
type Result struct {
	Pushed int
	Failed int
}

// Worker drains the outbox in the background
type Worker struct {
	db          *db.DB
	remote      Remote
	users       CurrentUserSource
	verifier    store.SessionVerifier
	log         *logger.Logger
	debounce    time.Duration
	pollEvery   time.Duration
	maxAttempts int

	mu       sync.Mutex
	pending  bool
	drainMu  sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithDebounce sets how long Trigger waits for more changes before draining
func WithDebounce(d time.Duration) WorkerOption {
	return func(w *Worker) { w.debounce = d }
}

// WithRetryInterval sets how often failed entries are retried
func WithRetryInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.pollEvery = d }
}

// WithMaxAttempts sets after how many failures an entry is parked
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) { w.maxAttempts = n }
}

// WithVerifier overrides the session check run before each drain
func WithVerifier(v store.SessionVerifier) WorkerOption {
	return func(w *Worker) { w.verifier = v }
}

// NewWorker creates a worker. Call Start to run background loops.
func NewWorker(database *db.DB, client Remote, users CurrentUserSource, opts ...WorkerOption) *Worker {
	w := &Worker{
		db:          database,
		remote:      client,
		users:       users,
		verifier:    remote.Guard{Sessions: client},
		log:         logger.WithFields(logger.F("component", "sync")),
		debounce:    2 * time.Second,
		pollEvery:   30 * time.Second,
		maxAttempts: 10,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the retry poll loop
func (w *Worker) Start() {
	go w.pollLoop()
}

func (w *Worker) pollLoop() {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.background()
		case <-w.stopCh:
			return
		}
	}
}

// Trigger schedules a drain after the debounce period
func (w *Worker) Trigger() {
	w.mu.Lock()
	if !w.pending {
		w.pending = true
		go w.debouncedDrain()
	}
	w.mu.Unlock()
}

func (w *Worker) debouncedDrain() {
	timer := time.NewTimer(w.debounce)
	defer timer.Stop()

	select {
	case <-timer.C:
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()
		w.background()
	case <-w.stopCh:
	}
}

func (w *Worker) background() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := w.drain(ctx); err != nil {
		w.log.Debug("Background drain stopped", logger.Err(err))
	}
}

// Flush drains everything currently pending and waits for it
func (w *Worker) Flush(ctx context.Context) (Result, error) {
	w.mu.Lock()
	w.pending = false
	w.mu.Unlock()
	return w.drain(ctx)
}

// IsPending reports whether a debounced drain is scheduled
func (w *Worker) IsPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Stop ends the background loops. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Worker) drain(ctx context.Context) (Result, error) {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	var res Result
	if err := w.verify(ctx); err != nil {
		return res, err
	}

	// an entity whose earlier write failed waits so writes stay ordered
	blocked := make(map[string]bool)
	if w.maxAttempts > 0 {
		failures, err := w.db.Failures()
		if err != nil {
			return res, err
		}
		for _, e := range failures {
			if e.Attempts >= w.maxAttempts {
				blocked[e.EntityID] = true
			}
		}
	}
	var lastID int64
	for {
		entries, err := w.db.Pending(lastID, batchSize, w.maxAttempts)
		if err != nil {
			return res, err
		}
		for _, e := range entries {
			lastID = e.ID
			if blocked[e.EntityID] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}

			err := w.apply(ctx, e)
			if err == nil {
				if err := w.db.MarkDone(e.ID); err != nil {
					return res, err
				}
				res.Pushed++
				continue
			}
			if errors.Is(err, remote.ErrNoSession) {
				return res, err
			}

			res.Failed++
			blocked[e.EntityID] = true
			w.recordFailure(e, err)
		}
		if len(entries) < batchSize {
			break
		}
	}

	if res.Pushed > 0 || res.Failed > 0 {
		w.log.Info("Outbox drained", logger.F("pushed", res.Pushed), logger.F("failed", res.Failed))
	}
	return res, nil
}

func (w *Worker) verify(ctx context.Context) error {
	user := w.users.CurrentUser()
	if user == nil {
		w.log.Warn("No current user, outbox left untouched")
		return store.ErrNoCurrentUser
	}
	if err := w.verifier.Verify(ctx, user.ID); err != nil {
		w.log.Error("Session check failed, outbox left untouched", logger.F("user", user.ID), logger.Err(err))
		return err
	}
	return nil
}

func (w *Worker) apply(ctx context.Context, e db.OutboxEntry) error {
	payload := json.RawMessage(e.Payload)
	switch store.Op(e.Op) {
	case store.OpInsert:
		return w.remote.Insert(ctx, e.Table, payload)
	case store.OpUpdate:
		return w.remote.Update(ctx, e.Table, e.EntityID, payload)
	case store.OpDelete:
		err := w.remote.Delete(ctx, e.Table, e.EntityID)
		if rerr, ok := remote.AsError(err); ok && rerr.Status == http.StatusNotFound {
			return nil
		}
		return err
	}
	return errors.New("unknown outbox op " + e.Op)
}

func (w *Worker) recordFailure(e db.OutboxEntry, err error) {
	rec := db.ErrorRecord{Message: err.Error()}
	if rerr, ok := remote.AsError(err); ok {
		rec = db.ErrorRecord{Code: rerr.Code, Message: rerr.Message, Details: rerr.Details, Hint: rerr.Hint}
	}
	w.log.Error("Remote write failed",
		logger.F("outbox", e.ID),
		logger.F("table", e.Table),
		logger.F("op", e.Op),
		logger.F("entity", e.EntityID),
		logger.F("attempt", e.Attempts+1),
		logger.F("code", rec.Code),
		logger.F("message", rec.Message),
		logger.F("details", rec.Details),
		logger.F("hint", rec.Hint))
	if mErr := w.db.MarkFailed(e.ID, rec); mErr != nil {
		w.log.Error("Failed to record outbox failure", logger.F("outbox", e.ID), logger.Err(mErr))
	}
}
