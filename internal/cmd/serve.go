package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/eventlog"
	"github.com/xucongyong/duet/internal/lock"
	"github.com/xucongyong/duet/internal/logbuf"
	"github.com/xucongyong/duet/internal/schedule"
	"github.com/xucongyong/duet/internal/style"
	"github.com/xucongyong/duet/internal/supervisor"
	"github.com/xucongyong/duet/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: GroupControl,
	Short:   "Run the supervisor, scheduler and control panel (start here)",
	Long: `Run the worker supervisor in the foreground.

serve loads the settings file, claims the state directory, starts the daily
window scheduler and exposes the control panel. The worker itself is only
launched on request or when the schedule window opens.

Daemon messages go to <state-dir>/logs/panel.log; lifecycle events go to
<state-dir>/logs/events.log (see 'duet events').

SIGINT or SIGTERM stops the scheduler, the panel and the worker.

Examples:
  duet serve
  duet serve --listen 0.0.0.0:8080
  duet serve -c ./duet.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Panel listen address (overrides settings)")
}

func runServe(cmd *cobra.Command, args []string) error {
	path := settingsPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		style.PrintWarning(cmd.OutOrStdout(), "no settings file at %s, using defaults", path)
	}
	settings, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	control, err := settings.Control()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	listen := settings.Panel.Listen
	if serveListen != "" {
		listen = serveListen
	}

	lk := lock.New(stateDir)
	if err := lk.Acquire(listen); err != nil {
		return fmt.Errorf("claiming %s: %w", stateDir, err)
	}
	defer func() { _ = lk.Release() }()

	logger, logFile, err := openPanelLog(stateDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	events := eventlog.NewLogger(stateDir)
	store := config.NewStore(control)
	buf := logbuf.New(settings.Log.MaxLines)

	sup := supervisor.New(buf,
		supervisor.WithCommand(settings.Worker.Command...),
		supervisor.WithDir(settings.Worker.Dir),
		supervisor.WithLogger(logger),
		supervisor.WithEvents(events),
	)
	sched := schedule.New(sup, store,
		schedule.WithInterval(settings.Schedule.Interval.Duration),
		schedule.WithLogger(logger),
		schedule.WithEvents(events),
	)
	srv := web.NewServer(listen, sup, buf, store,
		web.WithCredentials(settings.Panel.AdminUsername, settings.Panel.AdminPassword),
		web.WithSettingsPath(path),
		web.WithLogger(logger),
		web.WithEvents(events),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger("serve: pid %d, settings %s, schedule %s", os.Getpid(), path, store.Window().String())
	sched.Start()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Control panel listening on %s\n", style.SuccessPrefix, srv.BaseURL())
	fmt.Fprintln(out, style.Hint("schedule %s, press Ctrl-C to stop", store.Window().String()))

	<-ctx.Done()
	fmt.Fprintf(out, "\n%s Shutting down...\n", style.ArrowPrefix)

	return shutdown(sched, srv, sup, logger)
}

// shutdown stops the scheduler first so it cannot relaunch the worker, then
// the panel, then the worker.
func shutdown(sched *schedule.Scheduler, srv *web.Server, sup *supervisor.Supervisor, logger func(string, ...interface{})) error {
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger("serve: panel shutdown: %v", err)
	}

	if err := sup.Shutdown(constants.ShutdownTimeout); err != nil {
		logger("serve: worker shutdown: %v", err)
		return fmt.Errorf("stopping worker: %w", err)
	}
	logger("serve: stopped")
	return nil
}

// openPanelLog opens the daemon log in append mode.
func openPanelLog(stateDir string) (func(format string, args ...interface{}), io.Closer, error) {
	dir := filepath.Join(stateDir, constants.DirLogs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, constants.FilePanelLog), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) //nolint:gosec // G302: log file
	if err != nil {
		return nil, nil, fmt.Errorf("opening panel log: %w", err)
	}
	l := log.New(f, "", log.LstdFlags)
	return l.Printf, f, nil
}
