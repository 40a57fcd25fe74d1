// Package watch provides a TUI that follows the worker's live output through
// the control panel.
package watch

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xucongyong/duet/internal/ui"
)

var (
	colorPrimary = ui.ColorAccent
	colorSuccess = ui.ColorPass
	colorWarning = ui.ColorWarn
	colorError   = ui.ColorFail
	colorDim     = ui.ColorMuted
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(0, 1)

	RunningStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	StoppedStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	ScheduleStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	LogPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(colorDim).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError)
)
