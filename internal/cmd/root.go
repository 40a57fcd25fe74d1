// Package cmd implements the duet command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/style"
	"github.com/xucongyong/duet/internal/ui"
	"github.com/xucongyong/duet/internal/web"
)

// Command group IDs, shown as sections in `duet --help`.
const (
	GroupControl  = "control"
	GroupSchedule = "schedule"
	GroupDiag     = "diag"
	GroupConfig   = "config"
)

// Persistent flags
var (
	stateDir   string
	configPath string
	panelURL   string
	themeFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "duet",
	Short: "Supervise a scripted two-bot chat worker",
	Long: `duet runs a chat worker program as a child process, keeps its most
recent output in memory and starts or stops it on a daily schedule.

'duet serve' runs the supervisor and its control panel. The other commands
talk to that panel over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetupTheme(themeFlag)
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupControl, Title: "Worker Control:"},
		&cobra.Group{ID: GroupSchedule, Title: "Scheduling:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration:"},
	)

	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", constants.DirState, "State directory (logs, lock, default settings)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default <state-dir>/"+constants.FileSettings+")")
	rootCmd.PersistentFlags().StringVar(&panelURL, "panel-url", "", "Control panel URL (env "+constants.EnvPanelURL+")")
	rootCmd.PersistentFlags().StringVar(&themeFlag, "theme", "", "Color scheme: auto, dark or light")
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	code, report := exitCode(err)
	if report {
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
	}
	return code
}

// settingsPath returns the settings file in effect.
func settingsPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(stateDir, constants.FileSettings)
}

// panelTarget is where client commands send their requests.
type panelTarget struct {
	URL      string
	Username string
	Password string
}

// resolvePanel picks the panel URL and credentials.
// Resolution order for the URL: --panel-url, DUET_PANEL_URL, the listen
// address from the settings file, the built-in default. Credentials come from
// DUET_PANEL_USER/DUET_PANEL_PASSWORD, falling back to the settings file.
func resolvePanel(lookup func(string) string) panelTarget {
	t := panelTarget{
		URL:      panelURL,
		Username: lookup(constants.EnvPanelUser),
		Password: lookup(constants.EnvPanelPassword),
	}
	if t.URL == "" {
		t.URL = lookup(constants.EnvPanelURL)
	}

	if s, err := config.Load(settingsPath()); err == nil {
		if t.URL == "" && s.Panel.Listen != "" {
			t.URL = "http://" + s.Panel.Listen
		}
		if t.Username == "" {
			t.Username = s.Panel.AdminUsername
			t.Password = s.Panel.AdminPassword
		}
	}

	if t.URL == "" {
		t.URL = constants.DefaultPanelURL
	}
	return t
}

// newClient builds a panel client for the current flags and environment.
func newClient() *web.Client {
	t := resolvePanel(os.Getenv)
	c := web.NewClient(t.URL)
	if t.Username != "" {
		c.WithAuth(t.Username, t.Password)
	}
	return c
}
