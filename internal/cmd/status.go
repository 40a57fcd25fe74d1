package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xucongyong/duet/internal/lock"
	"github.com/xucongyong/duet/internal/style"
	"github.com/xucongyong/duet/internal/ui"
	"github.com/xucongyong/duet/internal/web"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupDiag,
	Short:   "Show worker, schedule and panel status",
	Long: `Show whether the chat worker is running, the schedule window, the
log buffer fill and the chat defaults.

Exits with code 2 when the control panel cannot be reached.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client := newClient()

	st, err := client.Status(cmd.Context())
	if err != nil {
		if !errors.Is(err, web.ErrUnreachable) {
			return err
		}
		fmt.Fprintf(out, "%s Control panel unreachable at %s\n", style.ErrorPrefix, client.BaseURL())
		fmt.Fprintln(out, style.Hint("state lock: %s", lock.New(stateDir).Status()))
		return NewSilentExit(exitUnreachable)
	}

	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	renderStatus(out, st, time.Now())
	return nil
}

func renderStatus(w io.Writer, st *web.StatusResponse, now time.Time) {
	title := cases.Title(language.English)

	state := "stopped"
	if st.Running {
		state = "running"
	}
	line := fmt.Sprintf("%s %s %s", ui.RenderStateIcon(st.Running), style.Bold.Render("Worker:"), title.String(state))
	if st.Running {
		line += style.Dim.Render(fmt.Sprintf(" (pid %d, run %s", st.PID, shortCommit(st.RunID)))
		if st.StartedAt != nil {
			line += style.Dim.Render(", up " + now.Sub(*st.StartedAt).Round(time.Second).String())
		}
		line += style.Dim.Render(")")
	}
	fmt.Fprintln(w, line)

	fmt.Fprintf(w, "  Schedule:  %s\n", scheduleSummary(st.Schedule.Window))
	fmt.Fprintf(w, "  Log:       %d/%d lines\n", st.LogLines, st.LogCapacity)

	if e := st.LastExit; e != nil {
		reason := "clean exit"
		if e.Reason != "" {
			reason = e.Reason
		}
		fmt.Fprintf(w, "  Last exit: %s %s\n", reason, style.Dim.Render(fmt.Sprintf("(pid %d at %s)", e.PID, e.At.Local().Format("15:04:05"))))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Bold.Render("Chat defaults"))
	fmt.Fprint(w, workerTable(st.Worker).Render())
}

// workerTable renders a full WorkerPayload as a two-column table.
func workerTable(p web.WorkerPayload) *style.Table {
	t := style.NewTable(
		style.Column{Name: "SETTING", Width: 14},
		style.Column{Name: "VALUE", Width: 48},
	).SetIndent("  ")

	str := func(s *string) string {
		if s == nil {
			return "-"
		}
		return *s
	}
	num := func(n *int) string {
		if n == nil {
			return "-"
		}
		return strconv.Itoa(*n)
	}
	secs := func(f *float64) string {
		if f == nil {
			return "-"
		}
		return strconv.FormatFloat(*f, 'f', -1, 64) + "s"
	}
	flt := func(f *float64) string {
		if f == nil {
			return "-"
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	}

	turns := num(p.MaxTurns)
	if p.MaxTurns != nil && *p.MaxTurns == 0 {
		turns = "unlimited"
	}

	t.AddRow("topic", str(p.Topic))
	t.AddRow("first speaker", str(p.FirstSpeaker))
	t.AddRow("model", str(p.Model))
	t.AddRow("max turns", turns)
	t.AddRow("delay", secs(p.Delay))
	t.AddRow("typing speed", secs(p.TypingSpeed))
	t.AddRow("context", num(p.ContextLimit))
	t.AddRow("temperature", flt(p.Temperature))
	return t
}
