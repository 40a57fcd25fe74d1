// Package constants defines shared constant values used throughout duet.
// Centralizing these magic strings improves maintainability and consistency.
package constants

import "time"

// Timing constants for the supervisor, scheduler and control panel.
const (
	// ScheduleInterval is how often the window scheduler reconciles the
	// worker's running state against the configured window.
	ScheduleInterval = 60 * time.Second

	// RestartGrace is how long Restart waits for the previous worker to exit
	// after SIGTERM before escalating to SIGKILL.
	RestartGrace = 5 * time.Second

	// ShutdownTimeout bounds how long `duet serve` waits for the worker and
	// the HTTP server during shutdown.
	ShutdownTimeout = 5 * time.Second

	// OutputDrainTimeout bounds how long the exit-waiter waits for the worker's
	// output pipe to close after the process itself has exited.
	OutputDrainTimeout = 2 * time.Second

	// PollInterval is the default polling interval for wait loops.
	PollInterval = 100 * time.Millisecond

	// SettingsLockTimeout is how long to wait for the settings file lock.
	SettingsLockTimeout = 5 * time.Second

	// WatchPollInterval is how often `duet watch` refreshes from the panel.
	WatchPollInterval = 3 * time.Second

	// FollowInterval is how often `duet logs -f` polls for new lines.
	FollowInterval = time.Second

	// ClientTimeout bounds a single panel API request.
	ClientTimeout = 15 * time.Second
)

// Defaults for the log buffer and the control panel.
const (
	// DefaultLogLines is the capacity of the in-memory log buffer.
	DefaultLogLines = 200

	// DefaultListenAddr is where `duet serve` exposes the control panel.
	DefaultListenAddr = "127.0.0.1:5000"

	// DefaultPanelURL is the panel base URL used by client commands.
	DefaultPanelURL = "http://127.0.0.1:5000"
)

// Directory names within a duet state directory.
const (
	// DirState is the default state directory, relative to the cwd.
	DirState = ".duet"

	// DirLogs holds the daemon log and the event log.
	DirLogs = "logs"

	// DirRuntime is the runtime state directory (pid locks).
	DirRuntime = ".runtime"
)

// File names for configuration and state.
const (
	// FileSettings is the default settings file name.
	FileSettings = "duet.toml"

	// FilePanelLog is the daemon log written by `duet serve`.
	FilePanelLog = "panel.log"

	// FileEventLog is the lifecycle event log.
	FileEventLog = "events.log"

	// FilePanelLock is the single-instance lock for `duet serve`.
	FilePanelLock = "panel.lock"
)

// Environment variables understood by duet and passed to the worker.
const (
	// EnvTemperature carries the sampling temperature to the worker, which
	// only receives the seven positional arguments.
	EnvTemperature = "DUET_TEMPERATURE"

	// EnvPanelURL overrides the panel URL for client commands.
	EnvPanelURL = "DUET_PANEL_URL"

	// EnvPanelUser and EnvPanelPassword supply basic auth credentials.
	EnvPanelUser     = "DUET_PANEL_USER"
	EnvPanelPassword = "DUET_PANEL_PASSWORD"
)
