// Package ui holds duet's terminal palette (Ayu, adaptive light/dark) and
// the helpers built on it.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	if ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.TrueColor)
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Ayu theme color palette
// Source: https://github.com/ayu-theme/ayu-colors
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
	ColorSpeakerA = lipgloss.AdaptiveColor{
		Light: "#4cbf99", // ayu light cyan
		Dark:  "#95e6cb", // ayu dark cyan
	}
	ColorSpeakerB = lipgloss.AdaptiveColor{
		Light: "#a37acc", // ayu light purple
		Dark:  "#d2a6ff", // ayu dark purple
	}
)

// Foreground styles for the palette above.
var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	SpeakerAStyle = lipgloss.NewStyle().Foreground(ColorSpeakerA)
	SpeakerBStyle = lipgloss.NewStyle().Foreground(ColorSpeakerB)
)

// CommandStyle is a low-contrast style for command and flag names in help.
var CommandStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#5c6166",
	Dark:  "#bfbdb6",
})

// Outcome icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✖"
)

// Worker state icons
const (
	StateIconRunning = "●"
	StateIconStopped = "○"
)

// Render helpers for one-off colored fragments.
func RenderPass(s string) string    { return PassStyle.Render(s) }
func RenderWarn(s string) string    { return WarnStyle.Render(s) }
func RenderFail(s string) string    { return FailStyle.Render(s) }
func RenderMuted(s string) string   { return MutedStyle.Render(s) }
func RenderAccent(s string) string  { return AccentStyle.Render(s) }
func RenderCommand(s string) string { return CommandStyle.Render(s) }

// RenderStateIcon renders the worker state indicator.
func RenderStateIcon(running bool) string {
	if running {
		return PassStyle.Render(StateIconRunning)
	}
	return MutedStyle.Render(StateIconStopped)
}

// RenderLogLine styles one line of worker output: supervisor lines are
// muted, error lines red and speaker lines take the speaker's color.
func RenderLogLine(line string) string {
	switch {
	case strings.HasPrefix(line, "[system "):
		return MutedStyle.Render(line)
	case strings.Contains(line, "[ERROR]"):
		return FailStyle.Render(line)
	case strings.HasPrefix(line, "Bot 1"):
		return SpeakerAStyle.Render(line)
	case strings.HasPrefix(line, "Bot 2"):
		return SpeakerBStyle.Render(line)
	default:
		return line
	}
}
