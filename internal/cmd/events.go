package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/eventlog"
	"github.com/xucongyong/duet/internal/ui"
)

var (
	eventsTail    int
	eventsType    string
	eventsActor   string
	eventsSince   string
	eventsNoPager bool
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	GroupID: GroupDiag,
	Short:   "Show the lifecycle event log",
	Long: `Show worker launches and exits, scheduler decisions and panel starts
recorded in <state-dir>/logs/events.log.

Event types:
  launch          - worker process spawned
  exit            - worker process exited
  stop            - SIGTERM sent to the worker
  kill            - worker force-killed after the grace period
  launch_failed   - worker executable could not be started
  schedule_start  - scheduler started the worker
  schedule_stop   - scheduler stopped the worker
  schedule_error  - scheduler tick failed
  panel_start     - control panel began listening
  panel_stop      - control panel shut down
  config_saved    - chat defaults or schedule written to the settings file

Examples:
  duet events                  # Last 20 events
  duet events -n 100           # Last 100 events
  duet events --type exit      # Only exits
  duet events --since 24h      # Events from the last day`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntVarP(&eventsTail, "tail", "n", 20, "Number of events to show (0 = all)")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Filter by event type")
	eventsCmd.Flags().StringVar(&eventsActor, "actor", "", "Filter by actor (worker, scheduler, panel)")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "Show events since duration (e.g., 1h, 30m, 24h)")
	eventsCmd.Flags().BoolVar(&eventsNoPager, "no-pager", false, "Disable the pager")
}

func runEvents(cmd *cobra.Command, args []string) error {
	events, err := eventlog.ReadEvents(stateDir)
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}

	filter := eventlog.Filter{
		Type:  eventlog.EventType(eventsType),
		Actor: eventsActor,
	}
	if eventsSince != "" {
		d, err := time.ParseDuration(eventsSince)
		if err != nil {
			return fmt.Errorf("invalid --since duration: %w", err)
		}
		filter.Since = time.Now().Add(-d)
	}
	events = eventlog.TailEvents(eventlog.FilterEvents(events, filter), eventsTail)

	if len(events) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No events found in %s\n", eventlog.LogPath(stateDir))
		return nil
	}

	return ui.ToPager(cmd.OutOrStdout(), renderEvents(events), ui.PagerOptions{NoPager: eventsNoPager})
}

func renderEvents(events []eventlog.Event) string {
	var b strings.Builder
	for _, e := range events {
		ts := ui.RenderMuted(e.Timestamp.Format("2006-01-02 15:04:05"))
		kind := renderEventType(e.Type)
		fmt.Fprintf(&b, "%s %s %s %s\n", ts, kind, e.Actor, e.Message)
	}
	return b.String()
}

func renderEventType(t eventlog.EventType) string {
	label := fmt.Sprintf("[%s]", t)
	switch t {
	case eventlog.EventLaunch, eventlog.EventScheduleStart, eventlog.EventPanelStart:
		return ui.RenderPass(label)
	case eventlog.EventStop, eventlog.EventKill, eventlog.EventScheduleStop:
		return ui.RenderWarn(label)
	case eventlog.EventLaunchFailed, eventlog.EventScheduleError:
		return ui.RenderFail(label)
	case eventlog.EventExit, eventlog.EventPanelStop:
		return ui.RenderMuted(label)
	default:
		return ui.RenderAccent(label)
	}
}
