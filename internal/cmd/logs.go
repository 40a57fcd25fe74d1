package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/ui"
)

var (
	logsFollow bool
	logsTail   int
	logsRaw    bool
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	GroupID: GroupDiag,
	Short:   "Print the worker's recent output",
	Long: `Print the lines currently held in the panel's log buffer.

The buffer keeps only the most recent lines and is cleared every time the
worker starts.

Examples:
  duet logs          # Print the whole buffer
  duet logs -n 20    # Print the last 20 lines
  duet logs -f       # Keep printing new lines (like tail -f)`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow new output")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 0, "Number of lines to show (0 = all)")
	logsCmd.Flags().BoolVar(&logsRaw, "raw", false, "Print lines without color")
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	client := newClient()

	lines, err := client.Logs(ctx)
	if err != nil {
		return err
	}
	if logsTail > 0 && len(lines) > logsTail {
		printLogLines(out, lines[len(lines)-logsTail:])
	} else {
		printLogLines(out, lines)
	}
	if !logsFollow {
		return nil
	}

	ticker := time.NewTicker(constants.FollowInterval)
	defer ticker.Stop()
	prev := lines
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			next, err := client.Logs(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			printLogLines(out, newLines(prev, next))
			prev = next
		}
	}
}

func printLogLines(w io.Writer, lines []string) {
	for _, line := range lines {
		if !logsRaw {
			line = ui.RenderLogLine(line)
		}
		fmt.Fprintln(w, line)
	}
}

// newLines returns the lines of next that were not in prev. The buffer only
// grows at the tail and drops from the head, so the longest suffix of prev
// that is a prefix of next marks what was already printed. With no overlap
// (the buffer was cleared, or more lines arrived than it holds) all of next
// is new.
func newLines(prev, next []string) []string {
	n := len(prev)
	if len(next) < n {
		n = len(next)
	}
	for k := n; k > 0; k-- {
		if slices.Equal(prev[len(prev)-k:], next[:k]) {
			return next[k:]
		}
	}
	return next
}
