package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/tasko/internal/logger"
)

type tickMsg time.Time

type refreshMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForRefresh(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return refreshMsg{}
	}
}

// Init starts the clock and listens for store changes
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForRefresh(m.refresh))
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.elapsed = m.engine.Tick()
		return m, tickCmd()

	case refreshMsg:
		m.reload()
		return m, waitForRefresh(m.refresh)

	case tea.KeyMsg:
		switch m.mode {
		case ModeEditNote:
			return m.handleEditKeys(msg)
		case ModeConfirmReset:
			return m.handleResetKeys(msg)
		default:
			return m.handleNormalKeys(msg)
		}
	}
	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""

	switch {
	case key.Matches(msg, keys.Quit):
		logger.Info("Timer view closed", logger.F("task", m.taskID), logger.F("running", m.running()))
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.Toggle):
		if m.running() {
			if err := m.engine.Pause(); err != nil {
				m.message = "Pause failed: " + err.Error()
			} else {
				m.message = "Paused"
			}
		} else {
			if err := m.engine.Start(); err != nil {
				m.message = "Start failed: " + err.Error()
			} else {
				m.message = "Started"
			}
		}
		m.reload()
		m.cursor = m.openIndex()

	case key.Matches(msg, keys.Stop):
		if !m.running() {
			m.message = "Timer is not running"
			break
		}
		sessionID := m.engine.SessionID()
		if err := m.engine.Stop(); err != nil {
			m.message = "Stop failed: " + err.Error()
		} else {
			m.message = "Stopped"
		}
		m.reload()
		m.notifyStopped(sessionID)

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Edit):
		sel, ok := m.selected()
		if !ok {
			break
		}
		if sel.Open() {
			m.message = "Pause the timer before editing this session"
			break
		}
		m.mode = ModeEditNote
		m.input.SetValue(sel.Description)
		m.input.Focus()
		return m, nil

	case key.Matches(msg, keys.Delete):
		sel, ok := m.selected()
		if !ok {
			break
		}
		if err := m.engine.DeleteSession(sel.ID); err != nil {
			m.message = "Delete failed: " + err.Error()
		} else {
			m.message = "Session deleted"
		}
		m.reload()

	case key.Matches(msg, keys.Reset):
		if len(m.sessions) == 0 {
			break
		}
		m.mode = ModeConfirmReset
	}
	return m, nil
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		m.input.Reset()
		return m, nil

	case key.Matches(msg, keys.Enter):
		if sel, ok := m.selected(); ok {
			if err := m.engine.EditSession(sel.ID, m.input.Value(), sel.Duration); err != nil {
				m.message = "Edit failed: " + err.Error()
			} else {
				m.message = "Note saved"
			}
		}
		m.mode = ModeNormal
		m.input.Blur()
		m.input.Reset()
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	if msg.String() != "y" && msg.String() != "Y" {
		m.message = "Reset cancelled"
		return m, nil
	}
	if err := m.engine.Reset(); err != nil {
		m.message = "Reset failed: " + err.Error()
	} else {
		m.message = "Time tracking reset"
	}
	m.reload()
	return m, nil
}

func (m *Model) openIndex() int {
	for i, s := range m.sessions {
		if s.Open() {
			return i
		}
	}
	return m.cursor
}

func (m *Model) notifyStopped(sessionID string) {
	var minutes float64
	for _, s := range m.sessions {
		if s.ID == sessionID {
			minutes = s.Duration
		}
	}
	body := fmt.Sprintf("%s: %s this session, %s total",
		m.task.Title, clock(fromMinutes(minutes)), clock(fromMinutes(m.task.TimeSpent)))
	if err := m.notify("Timer stopped", body); err != nil {
		logger.Warn("Desktop notification failed", logger.Err(err))
	}
}
