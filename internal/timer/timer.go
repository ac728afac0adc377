// Package timer tracks working time on a single task as a series of
// sessions stored in the task's time-tracking history.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNoTask is returned when the engine's task is not in the store
	ErrNoTask = errors.New("task not found")
	// ErrNoUser is returned when no user is signed in
	ErrNoUser = errors.New("no current user")
	// ErrSessionNotFound is returned for an unknown session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionOpen is returned when editing a session that is still running
	ErrSessionOpen = errors.New("session is still running")
)

// DefaultCheckpointTicks is how many ticks pass between checkpoints when
// none is configured
const DefaultCheckpointTicks = 60

// TaskStore is the part of the store the engine needs
type TaskStore interface {
	Task(id string) (model.Task, bool)
	CurrentUser() *model.User
	UpdateTask(id string, patch model.TaskPatch) (model.Task, error)
}

// State of the engine
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Engine runs the session state machine for one task
type Engine struct {
	mu sync.Mutex

	store  TaskStore
	taskID string
	now    func() time.Time
	newID  func() string
	log    *logger.Logger

	checkpointEvery int

	state     State
	sessionID string
	anchor    time.Time
	// cleared hides the accumulated total after Stop until the next Start
	cleared bool
	ticks   int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides session id generation
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithCheckpointEvery sets how many ticks pass between checkpoints; zero disables them
func WithCheckpointEvery(n int) Option {
	return func(e *Engine) { e.checkpointEvery = n }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an idle engine bound to taskID
func New(store TaskStore, taskID string, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		taskID:          taskID,
		now:             time.Now,
		newID:           func() string { return uuid.New().String() },
		checkpointEvery: DefaultCheckpointTicks,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.WithFields(logger.F("component", "timer"), logger.F("task", taskID))
	}
	return e
}

// State returns Idle or Running
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SessionID returns the id of the open session, or "" when idle
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Start opens a new session. If the task already has an open session the
// engine adopts it instead, so a task never carries two open sessions.
// A persistence failure is returned but the engine stays Running.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Running {
		return nil
	}
	task, ok := e.store.Task(e.taskID)
	if !ok {
		return ErrNoTask
	}
	user := e.store.CurrentUser()
	if user == nil {
		return ErrNoUser
	}

	if open := newestOpen(task.TimeTracking); open >= 0 {
		rec := task.TimeTracking[open]
		e.run(rec.ID, rec.StartTime)
		e.log.Info("Adopted open session", logger.F("session", rec.ID))
		return nil
	}

	now := e.now()
	rec := model.TimeTrackingRecord{
		ID:        e.newID(),
		UserID:    user.ID,
		StartTime: now,
	}
	e.run(rec.ID, now)

	history := append(append([]model.TimeTrackingRecord{}, task.TimeTracking...), rec)
	_, err := e.store.UpdateTask(e.taskID, model.TaskPatch{
		TimeTracking: &history,
		TimeStarted:  &now,
	})
	if err != nil {
		e.log.Error("Failed to persist session start", logger.F("session", rec.ID), logger.Err(err))
		return fmt.Errorf("persist start: %w", err)
	}
	e.log.Info("Session started", logger.F("session", rec.ID), logger.F("user", user.ID))
	return nil
}

// Resume reconstructs the Running state from an open session left in the
// task's history. The newest open session wins; older stray ones are
// dropped. It reports whether a session was resumed.
func (e *Engine) Resume() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Running {
		return true, nil
	}
	task, ok := e.store.Task(e.taskID)
	if !ok {
		return false, ErrNoTask
	}
	open := model.OpenSessions(task.TimeTracking)
	if len(open) == 0 {
		return false, nil
	}

	newest := newestOpen(task.TimeTracking)
	rec := task.TimeTracking[newest]
	e.run(rec.ID, rec.StartTime)
	e.log.Info("Resumed open session", logger.F("session", rec.ID), logger.F("since", rec.StartTime))

	if len(open) == 1 {
		return true, nil
	}

	e.log.Warn("Dropping stray open sessions", logger.F("count", len(open)-1))
	history := make([]model.TimeTrackingRecord, 0, len(task.TimeTracking))
	for i, r := range task.TimeTracking {
		if r.Open() && i != newest {
			continue
		}
		history = append(history, r)
	}
	start := rec.StartTime
	if _, err := e.store.UpdateTask(e.taskID, model.TaskPatch{TimeTracking: &history, TimeStarted: &start}); err != nil {
		e.log.Error("Failed to persist session cleanup", logger.Err(err))
		return true, fmt.Errorf("persist cleanup: %w", err)
	}
	return true, nil
}

// Pause closes the open session and returns to Idle. The task total is
// recomputed from closed sessions.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.close()
}

// Stop is Pause that also resets the displayed counter to zero
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Running {
		return nil
	}
	err := e.close()
	if errors.Is(err, ErrNoUser) {
		return err
	}
	e.cleared = true
	return err
}

// close ends the running session. Without a current user nothing changes
// and the engine keeps running.
func (e *Engine) close() error {
	if e.state != Running {
		return nil
	}
	if e.store.CurrentUser() == nil {
		return ErrNoUser
	}
	now := e.now()
	sessionID := e.sessionID
	e.idle()

	task, ok := e.store.Task(e.taskID)
	if !ok {
		return ErrNoTask
	}

	idx := indexOf(task.TimeTracking, sessionID)
	if idx < 0 || !task.TimeTracking[idx].Open() {
		e.log.Warn("Open session missing from history", logger.F("session", sessionID))
		_, err := e.store.UpdateTask(e.taskID, model.TaskPatch{ClearTimeStarted: true})
		return err
	}

	history := append([]model.TimeTrackingRecord{}, task.TimeTracking...)
	history[idx] = history[idx].Close(now)

	updated, err := e.store.UpdateTask(e.taskID, model.TaskPatch{
		TimeTracking:     &history,
		ClearTimeStarted: true,
	})
	if err != nil {
		e.log.Error("Failed to persist session end", logger.F("session", sessionID), logger.Err(err))
		return fmt.Errorf("persist stop: %w", err)
	}
	e.log.Info("Session closed",
		logger.F("session", sessionID),
		logger.F("minutes", model.Round2(history[idx].Duration)),
		logger.F("timeSpent", model.Round2(updated.TimeSpent)))
	return nil
}

// Elapsed is the display value: closed-session total plus the running
// session so far. It never writes.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed()
}

func (e *Engine) elapsed() time.Duration {
	if e.cleared && e.state != Running {
		return 0
	}
	var closed float64
	if task, ok := e.store.Task(e.taskID); ok {
		closed = model.TimeSpentFrom(task.TimeTracking)
	}
	total := time.Duration(closed * float64(time.Minute))
	if e.state == Running {
		total += e.now().Sub(e.anchor)
	}
	return total.Truncate(time.Second)
}

// Tick advances the display and checkpoints the running session every
// checkpointEvery ticks.
func (e *Engine) Tick() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Running {
		e.ticks++
		if e.checkpointEvery > 0 && e.ticks%e.checkpointEvery == 0 {
			e.checkpoint()
		}
	}
	return e.elapsed()
}

// checkpoint re-persists TimeStarted for the running session so a restart
// can tell the task is being tracked. The open record keeps a zero Duration
// until it is closed.
func (e *Engine) checkpoint() {
	task, ok := e.store.Task(e.taskID)
	if !ok {
		return
	}
	if indexOf(task.TimeTracking, e.sessionID) < 0 {
		e.log.Warn("Running session missing from history", logger.F("session", e.sessionID))
		return
	}
	if task.TimeStarted != nil && task.TimeStarted.Equal(e.anchor) {
		return
	}
	anchor := e.anchor
	if _, err := e.store.UpdateTask(e.taskID, model.TaskPatch{TimeStarted: &anchor}); err != nil {
		e.log.Warn("Checkpoint failed", logger.Err(err))
		return
	}
	e.log.Debug("Checkpoint written", logger.F("session", e.sessionID))
}

// Run calls Tick every interval until ctx is done, passing the elapsed
// value to onTick.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onTick func(time.Duration)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := e.Tick()
			if onTick != nil {
				onTick(elapsed)
			}
		}
	}
}

// EditSession corrects the description and duration of a closed session.
// The task total is recomputed from the full history.
func (e *Engine) EditSession(sessionID, description string, duration float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.store.Task(e.taskID)
	if !ok {
		return ErrNoTask
	}
	idx := indexOf(task.TimeTracking, sessionID)
	if idx < 0 {
		return ErrSessionNotFound
	}
	if task.TimeTracking[idx].Open() {
		return ErrSessionOpen
	}
	if duration < 0 {
		return &model.ValidationError{Field: "duration", Message: "must not be negative"}
	}

	history := append([]model.TimeTrackingRecord{}, task.TimeTracking...)
	history[idx].Description = description
	history[idx].Duration = duration
	if _, err := e.store.UpdateTask(e.taskID, model.TaskPatch{TimeTracking: &history}); err != nil {
		return fmt.Errorf("persist edit: %w", err)
	}
	e.log.Info("Session edited", logger.F("session", sessionID), logger.F("minutes", duration))
	return nil
}

// DeleteSession removes a session from history. Deleting the running
// session returns the engine to Idle.
func (e *Engine) DeleteSession(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.store.Task(e.taskID)
	if !ok {
		return ErrNoTask
	}
	idx := indexOf(task.TimeTracking, sessionID)
	if idx < 0 {
		return ErrSessionNotFound
	}

	history := make([]model.TimeTrackingRecord, 0, len(task.TimeTracking)-1)
	history = append(history, task.TimeTracking[:idx]...)
	history = append(history, task.TimeTracking[idx+1:]...)
	patch := model.TaskPatch{TimeTracking: &history}
	if e.state == Running && e.sessionID == sessionID {
		e.idle()
		patch.ClearTimeStarted = true
	}
	if _, err := e.store.UpdateTask(e.taskID, patch); err != nil {
		return fmt.Errorf("persist delete: %w", err)
	}
	e.log.Info("Session deleted", logger.F("session", sessionID))
	return nil
}

// Reset clears the task's whole history and total
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.idle()
	e.cleared = false
	empty := []model.TimeTrackingRecord{}
	if _, err := e.store.UpdateTask(e.taskID, model.TaskPatch{
		TimeTracking:     &empty,
		ClearTimeStarted: true,
	}); err != nil {
		return fmt.Errorf("persist reset: %w", err)
	}
	e.log.Info("Time tracking reset")
	return nil
}

// Sessions returns the task's history ordered by start time
func (e *Engine) Sessions() []model.TimeTrackingRecord {
	task, ok := e.store.Task(e.taskID)
	if !ok {
		return nil
	}
	out := append([]model.TimeTrackingRecord{}, task.TimeTracking...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (e *Engine) run(sessionID string, anchor time.Time) {
	e.state = Running
	e.sessionID = sessionID
	e.anchor = anchor
	e.cleared = false
	e.ticks = 0
}

func (e *Engine) idle() {
	e.state = Idle
	e.sessionID = ""
	e.anchor = time.Time{}
}

func indexOf(records []model.TimeTrackingRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func newestOpen(records []model.TimeTrackingRecord) int {
	best := -1
	for i, r := range records {
		if !r.Open() {
			continue
		}
		if best < 0 || r.StartTime.After(records[best].StartTime) {
			best = i
		}
	}
	return best
}
