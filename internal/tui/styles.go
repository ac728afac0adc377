package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/tasko/internal/model"
)

// Color palette
var (
	// Priority colors
	PriorityHigh   = lipgloss.Color("#FF6B6B")
	PriorityMedium = lipgloss.Color("#FFE66D")
	PriorityLow    = lipgloss.Color("#4ECDC4")

	// Timer state colors
	Running     = lipgloss.Color("#95E1A3")
	Idle        = lipgloss.Color("#6C757D")
	SyncPending = lipgloss.Color("#FFE66D")
	SyncError   = lipgloss.Color("#FF6B6B")

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Surface   = lipgloss.Color("#16213e")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	ClockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder())

	SessionStyle = lipgloss.NewStyle().
			Padding(0, 1)

	SessionSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	SessionOpenStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Running)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	ErrorStyle = lipgloss.NewStyle().Foreground(SyncError)
)

// clockStyle colors the counter by timer state
func clockStyle(running bool) lipgloss.Style {
	if running {
		return ClockStyle.BorderForeground(Running).Foreground(Running)
	}
	return ClockStyle.BorderForeground(Idle).Foreground(Idle)
}

// FormatPriority returns a colored priority label
func FormatPriority(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return lipgloss.NewStyle().Foreground(PriorityHigh).Bold(true).Render("high")
	case model.PriorityLow:
		return lipgloss.NewStyle().Foreground(PriorityLow).Render("low")
	default:
		return lipgloss.NewStyle().Foreground(PriorityMedium).Render("medium")
	}
}
