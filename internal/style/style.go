// Package style renders the CLI's one-line messages and tables with the
// palette defined in internal/ui.
package style

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/xucongyong/duet/internal/ui"
)

var (
	Success = lipgloss.NewStyle().Foreground(ui.ColorPass).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(ui.ColorWarn).Bold(true)
	Error   = lipgloss.NewStyle().Foreground(ui.ColorFail).Bold(true)
	Info    = lipgloss.NewStyle().Foreground(ui.ColorAccent)

	// Dim is for secondary lines: hints, timestamps, table separators.
	Dim  = lipgloss.NewStyle().Foreground(ui.ColorMuted)
	Bold = lipgloss.NewStyle().Bold(true)
)

// Line prefixes for CLI output.
var (
	SuccessPrefix = Success.Render(ui.IconPass)
	WarningPrefix = Warning.Render(ui.IconWarn)
	ErrorPrefix   = Error.Render(ui.IconFail)
	ArrowPrefix   = Info.Render("→")
)

// Flash formats a control panel message. Requests that took effect get a
// check mark; requests that changed nothing ("Chat is already running.")
// get a warning sign.
func Flash(ok bool, msg string) string {
	if ok {
		return SuccessPrefix + " " + msg
	}
	return WarningPrefix + " " + msg
}

// Hint renders an indented, dimmed secondary line.
func Hint(format string, args ...interface{}) string {
	return "  " + Dim.Render(fmt.Sprintf(format, args...))
}

// PrintWarning writes a warning line to w.
// The format and args work like fmt.Printf.
func PrintWarning(w io.Writer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "%s %s\n", Warning.Render(ui.IconWarn+" Warning:"), msg)
}
