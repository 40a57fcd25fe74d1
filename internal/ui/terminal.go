package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// EnvTheme overrides the --theme flag.
const EnvTheme = "DUET_THEME"

// ThemeMode is the CLI color scheme.
type ThemeMode string

const (
	ThemeModeAuto  ThemeMode = "auto" // follow the terminal background
	ThemeModeDark  ThemeMode = "dark"
	ThemeModeLight ThemeMode = "light"
)

var (
	themeMode = ThemeModeAuto
	darkBG    bool
)

// SetupTheme picks the color scheme from DUET_THEME, then flag, then auto,
// and applies it to lipgloss. Unknown names are ignored.
func SetupTheme(flag string) ThemeMode {
	themeMode = resolveThemeMode(os.Getenv(EnvTheme), flag)
	switch themeMode {
	case ThemeModeDark:
		darkBG = true
	case ThemeModeLight:
		darkBG = false
	default:
		darkBG = termenv.HasDarkBackground()
	}
	if ShouldUseColor() {
		lipgloss.SetHasDarkBackground(darkBG)
	}
	return themeMode
}

// HasDarkBackground reports the background chosen by SetupTheme.
func HasDarkBackground() bool {
	return darkBG
}

func resolveThemeMode(candidates ...string) ThemeMode {
	for _, c := range candidates {
		switch m := ThemeMode(strings.ToLower(strings.TrimSpace(c))); m {
		case ThemeModeAuto, ThemeModeDark, ThemeModeLight:
			return m
		}
	}
	return ThemeModeAuto
}

// IsTerminal reports whether stdout is a TTY.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR, CLICOLOR and CLICOLOR_FORCE
// conventions, and otherwise colors only a terminal.
func ShouldUseColor() bool {
	return colorEnabled(os.LookupEnv, IsTerminal())
}

func colorEnabled(lookup func(string) (string, bool), tty bool) bool {
	if _, ok := lookup("NO_COLOR"); ok {
		return false
	}
	if v, _ := lookup("CLICOLOR"); v == "0" {
		return false
	}
	if _, ok := lookup("CLICOLOR_FORCE"); ok {
		return true
	}
	return tty
}
