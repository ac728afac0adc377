package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	counter := m.renderClock()
	sessions := m.renderSessions()
	statusBar := m.renderStatusBar()

	mainContent := lipgloss.JoinVertical(lipgloss.Left, header, counter, sessions)

	switch m.mode {
	case ModeEditNote:
		mainContent = lipgloss.Place(
			m.width, max(m.height-4, 0),
			lipgloss.Center, lipgloss.Center,
			m.renderNoteModal(),
			lipgloss.WithWhitespaceChars(" "),
		)
	case ModeConfirmReset:
		mainContent = lipgloss.Place(
			m.width, max(m.height-4, 0),
			lipgloss.Center, lipgloss.Center,
			ModalStyle.Render("Delete every session of this task? (y/N)"),
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render(truncate(m.task.Title, max(m.width-20, 10)))
	meta := FormatPriority(m.task.Priority)
	if p, ok := m.store.Project(m.task.ProjectID); ok {
		meta += SubtleStyle.Render("  " + p.Name)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", meta) + "\n"
}

func (m Model) renderClock() string {
	state := "idle"
	if m.running() {
		state = "running"
	}
	box := clockStyle(m.running()).Render(clock(m.elapsed))
	return lipgloss.JoinHorizontal(lipgloss.Center, box, "  ", SubtleStyle.Render(state)) + "\n"
}

func (m Model) renderSessions() string {
	if len(m.sessions) == 0 {
		return SubtleStyle.Render("  No sessions yet. Press s to start.")
	}

	var b strings.Builder
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("  Sessions (%d)", len(m.sessions))) + "\n")
	for i, s := range m.sessions {
		length := clock(fromMinutes(s.Duration))
		style := SessionStyle
		if s.Open() {
			length = "running "
			style = SessionOpenStyle
		}
		note := s.Description
		if note == "" {
			note = "-"
		}
		line := fmt.Sprintf("%s  %s  %s", s.StartTime.Local().Format("Jan 02 15:04"), length, truncate(note, 40))

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
			style = SessionSelectedStyle
		}
		b.WriteString(cursor + style.Render(line) + "\n")
	}
	return b.String()
}

func (m Model) renderNoteModal() string {
	return ModalStyle.Render("Session note\n\n" + m.input.View() + "\n\n" + SubtleStyle.Render("enter save • esc cancel"))
}

func (m Model) renderStatusBar() string {
	var parts []string
	if m.sync != nil {
		if m.sync.IsPending() {
			parts = append(parts, lipgloss.NewStyle().Foreground(SyncPending).Render("⟳ sync pending"))
		} else {
			parts = append(parts, lipgloss.NewStyle().Foreground(Running).Render("✓ synced"))
		}
	}
	if m.message != "" {
		parts = append(parts, m.message)
	}
	parts = append(parts, m.help.View(keys))
	return StatusBarStyle.Width(max(m.width-2, 0)).Render(strings.Join(parts, "  "))
}
