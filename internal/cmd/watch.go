package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/tui/watch"
	"github.com/xucongyong/duet/internal/ui"
)

var watchInterval string

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupDiag,
	Short:   "Follow the conversation in an interactive view",
	Long: `Open a full-screen view of the worker's output that refreshes from the
control panel every few seconds.

Keys:
  s / x / R   start, stop, restart the worker
  f           toggle follow mode
  j/k, pgup   scroll
  ?           help
  q           quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "Refresh interval (e.g., 1s, 5s)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("duet watch needs a terminal; use 'duet logs -f' instead")
	}

	m := watch.NewModel(newClient())
	if watchInterval != "" {
		d, err := parseInterval(watchInterval)
		if err != nil {
			return err
		}
		m.SetInterval(d)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err := p.Run()
	return err
}

// parseInterval parses a positive refresh interval.
func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid --interval %q: must be positive", s)
	}
	return d, nil
}
