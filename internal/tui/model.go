// Package tui renders the full-screen timer view for a single task.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
	"github.com/existflow/tasko/internal/timer"
	"github.com/gen2brain/beeep"
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeEditNote
	ModeConfirmReset
)

// SyncStatus reports whether local changes are still waiting for the server
type SyncStatus interface {
	IsPending() bool
}

// Notifier shows a desktop notification
type Notifier func(title, message string) error

// Config wires the view to the store and the task's timer engine
type Config struct {
	Store  *store.Store
	Engine *timer.Engine
	TaskID string
	Sync   SyncStatus
	Notify Notifier
}

// Model is the timer view model
type Model struct {
	store  *store.Store
	engine *timer.Engine
	taskID string
	sync   SyncStatus
	notify Notifier

	task     model.Task
	sessions []model.TimeTrackingRecord
	elapsed  time.Duration

	// Store changes land here and are turned into refresh messages
	refresh     chan struct{}
	unsubscribe func()

	width  int
	height int
	mode   Mode
	cursor int
	input  textinput.Model
	help   help.Model

	message string
}

// NewModel creates the timer view for cfg.TaskID
func NewModel(cfg Config) Model {
	logger.Info("Initializing timer view", logger.F("task", cfg.TaskID))

	ti := textinput.New()
	ti.Placeholder = "What did you work on?"
	ti.CharLimit = 256
	ti.Width = 50

	notify := cfg.Notify
	if notify == nil {
		notify = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}

	m := Model{
		store:   cfg.Store,
		engine:  cfg.Engine,
		taskID:  cfg.TaskID,
		sync:    cfg.Sync,
		notify:  notify,
		refresh: make(chan struct{}, 1),
		mode:    ModeNormal,
		input:   ti,
		help:    help.New(),
	}

	refresh := m.refresh
	m.unsubscribe = cfg.Store.Subscribe(func(store.State) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	})

	m.reload()
	return m
}

// Close detaches the view from the store
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Elapsed is the value currently shown on the clock
func (m Model) Elapsed() time.Duration {
	return m.elapsed
}

func (m *Model) reload() {
	if task, ok := m.store.Task(m.taskID); ok {
		m.task = task
	}
	m.sessions = m.engine.Sessions()
	if m.cursor >= len(m.sessions) {
		m.cursor = len(m.sessions) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.elapsed = m.engine.Elapsed()
}

func (m *Model) selected() (model.TimeTrackingRecord, bool) {
	if m.cursor < len(m.sessions) {
		return m.sessions[m.cursor], true
	}
	return model.TimeTrackingRecord{}, false
}

func (m *Model) running() bool {
	return m.engine.State() == timer.Running
}
