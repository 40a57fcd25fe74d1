package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/style"
	"github.com/xucongyong/duet/internal/web"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	GroupID: GroupSchedule,
	Short:   "Show or change the daily run window",
	Long: `Show or change the daily window in which the worker runs.

While a window is set, the scheduler starts the worker when the local time
enters the window and stops it when the time leaves it. A window whose stop
time is earlier than its start time runs across midnight; equal start and
stop times mean all day.

Examples:
  duet schedule                  # Show the current window
  duet schedule set 09:00 17:30  # Run from 9am to 5:30pm
  duet schedule set 22 6         # Run overnight
  duet schedule clear            # Disable the schedule`,
	Args: cobra.NoArgs,
	RunE: runScheduleShow,
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set <start> <stop>",
	Short: "Set the window (HH:MM or HH)",
	Args:  cobra.ExactArgs(2),
	RunE:  runScheduleSet,
}

var scheduleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Disable the schedule",
	Args:  cobra.NoArgs,
	RunE:  runScheduleClear,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleSetCmd, scheduleClearCmd)
}

func runScheduleShow(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Schedule(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schedule: %s\n", scheduleSummary(resp.Window))
	return nil
}

func runScheduleSet(cmd *cobra.Command, args []string) error {
	startHour, startMinute, err := parseClock(args[0])
	if err != nil {
		return err
	}
	stopHour, stopMinute, err := parseClock(args[1])
	if err != nil {
		return err
	}

	resp, err := newClient().SetSchedule(cmd.Context(), config.NewWindow(startHour, startMinute, stopHour, stopMinute))
	if err != nil {
		return err
	}
	printSchedule(cmd, resp)
	return nil
}

func runScheduleClear(cmd *cobra.Command, args []string) error {
	resp, err := newClient().SetSchedule(cmd.Context(), config.Window{})
	if err != nil {
		return err
	}
	printSchedule(cmd, resp)
	return nil
}

func printSchedule(cmd *cobra.Command, resp *web.ScheduleResponse) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s Schedule: %s\n", style.SuccessPrefix, scheduleSummary(resp.Window))
}

// scheduleSummary renders a window for humans.
func scheduleSummary(w config.Window) string {
	switch {
	case !w.Enabled():
		return style.Dim.Render("disabled")
	case w.AllDay():
		return w.String() + style.Dim.Render(" (all day)")
	default:
		return w.String()
	}
}

// parseClock parses "HH:MM" or "HH" into an hour and minute.
func parseClock(s string) (int, int, error) {
	hourPart, minutePart, hasMinute := strings.Cut(strings.TrimSpace(s), ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time %q: hour must be 0-23", s)
	}
	if !hasMinute {
		return hour, 0, nil
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: minute must be 0-59", s)
	}
	return hour, minute, nil
}
