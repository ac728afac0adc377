package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
	"github.com/existflow/tasko/internal/timer"
)

type clock2 struct{ now time.Time }

func (c *clock2) Now() time.Time          { return c.now }
func (c *clock2) Advance(d time.Duration) { c.now = c.now.Add(d) }

type pending bool

func (p pending) IsPending() bool { return bool(p) }

type notification struct{ title, body string }

func quiet() *logger.Logger { return logger.NewWriter(io.Discard, logger.ERROR) }

func setup(t *testing.T) (Model, *store.Store, *clock2, *[]notification) {
	t.Helper()
	c := &clock2{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	s := store.New(store.WithClock(c.Now), store.WithLogger(quiet()))
	s.SetCurrentUser(model.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	task, err := s.AddTask(context.Background(), model.Task{Title: "Write report", ProjectID: "p1"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	n := 0
	engine := timer.New(s, task.ID,
		timer.WithClock(c.Now),
		timer.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("s%d", n)
		}),
		timer.WithLogger(quiet()),
	)

	var sent []notification
	m := NewModel(Config{
		Store:  s,
		Engine: engine,
		TaskID: task.ID,
		Sync:   pending(true),
		Notify: func(title, body string) error {
			sent = append(sent, notification{title, body})
			return nil
		},
	})
	t.Cleanup(m.Close)
	return m, s, c, &sent
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return next.(Model)
}

func TestToggleStartsAndPauses(t *testing.T) {
	m, s, c, _ := setup(t)

	m = press(t, m, "s")
	if !m.running() {
		t.Fatal("timer not running after s")
	}
	task, _ := s.Task(m.taskID)
	if len(task.TimeTracking) != 1 || !task.TimeTracking[0].Open() {
		t.Fatalf("history after start = %+v", task.TimeTracking)
	}

	c.Advance(90 * time.Second)
	m = press(t, m, "s")
	if m.running() {
		t.Fatal("timer still running after second s")
	}
	task, _ = s.Task(m.taskID)
	if task.TimeTracking[0].Open() {
		t.Error("session not closed on pause")
	}
	if got := model.Round2(task.TimeSpent); got != 1.5 {
		t.Errorf("TimeSpent = %v, want 1.5", got)
	}
}

func TestTickAdvancesClock(t *testing.T) {
	m, _, c, _ := setup(t)
	m = press(t, m, "s")

	c.Advance(42 * time.Second)
	next, cmd := m.Update(tickMsg(c.Now()))
	m = next.(Model)
	if m.Elapsed() != 42*time.Second {
		t.Errorf("elapsed = %v, want 42s", m.Elapsed())
	}
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
}

func TestStopNotifiesAndClearsCounter(t *testing.T) {
	m, _, c, sent := setup(t)
	m = press(t, m, "s")
	c.Advance(5 * time.Minute)

	m = press(t, m, "x")
	if m.running() {
		t.Fatal("timer running after stop")
	}
	if m.Elapsed() != 0 {
		t.Errorf("elapsed after stop = %v, want 0", m.Elapsed())
	}
	if len(*sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(*sent))
	}
	if got := (*sent)[0].body; !strings.Contains(got, "Write report") || !strings.Contains(got, "00:05:00") {
		t.Errorf("notification body = %q", got)
	}
}

func TestStopWhenIdleDoesNotNotify(t *testing.T) {
	m, _, _, sent := setup(t)
	m = press(t, m, "x")
	if len(*sent) != 0 {
		t.Errorf("notified while idle: %+v", *sent)
	}
	if m.message == "" {
		t.Error("expected a message for stop while idle")
	}
}

func TestEditNote(t *testing.T) {
	m, s, c, _ := setup(t)
	m = press(t, m, "s")
	c.Advance(time.Minute)
	m = press(t, m, "s")

	m = press(t, m, "e")
	if m.mode != ModeEditNote {
		t.Fatalf("mode = %v, want edit", m.mode)
	}
	m = press(t, m, "drafting")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if m.mode != ModeNormal {
		t.Errorf("mode after enter = %v", m.mode)
	}
	task, _ := s.Task(m.taskID)
	if task.TimeTracking[0].Description != "drafting" {
		t.Errorf("description = %q", task.TimeTracking[0].Description)
	}
}

func TestEditRunningSessionRefused(t *testing.T) {
	m, _, _, _ := setup(t)
	m = press(t, m, "s")
	m = press(t, m, "e")
	if m.mode != ModeNormal {
		t.Error("edit mode entered for a running session")
	}
}

func TestResetNeedsConfirmation(t *testing.T) {
	m, s, c, _ := setup(t)
	m = press(t, m, "s")
	c.Advance(time.Minute)
	m = press(t, m, "s")

	m = press(t, m, "R")
	m = press(t, m, "n")
	task, _ := s.Task(m.taskID)
	if len(task.TimeTracking) != 1 {
		t.Fatal("history cleared without confirmation")
	}

	m = press(t, m, "R")
	m = press(t, m, "y")
	task, _ = s.Task(m.taskID)
	if len(task.TimeTracking) != 0 || task.TimeSpent != 0 {
		t.Errorf("after reset: %+v", task)
	}
}

func TestStoreChangesTriggerRefresh(t *testing.T) {
	m, s, _, _ := setup(t)

	if _, err := s.UpdateTask(m.taskID, model.TaskPatch{Title: model.Ptr("Renamed")}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	select {
	case <-m.refresh:
	default:
		t.Fatal("no refresh signalled")
	}

	next, _ := m.Update(refreshMsg{})
	m = next.(Model)
	if m.task.Title != "Renamed" {
		t.Errorf("title = %q", m.task.Title)
	}
}

func TestViewShowsTaskAndSyncState(t *testing.T) {
	m, _, _, _ := setup(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	out := m.View()
	for _, want := range []string{"Write report", "00:00:00", "sync pending", "No sessions yet"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
