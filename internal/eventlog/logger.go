// Package eventlog provides the lifecycle event log for duet: worker
// launches and exits, scheduler decisions and control panel starts.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xucongyong/duet/internal/constants"
)

// EventType represents the type of lifecycle event.
type EventType string

const (
	// EventLaunch indicates a worker process was spawned.
	EventLaunch EventType = "launch"
	// EventExit indicates a worker process exited (on its own or after stop).
	EventExit EventType = "exit"
	// EventStop indicates a termination request was sent to the worker.
	EventStop EventType = "stop"
	// EventKill indicates the worker was force-killed after a grace period.
	EventKill EventType = "kill"
	// EventLaunchFailed indicates the worker executable could not be started.
	EventLaunchFailed EventType = "launch_failed"

	// Scheduler events
	EventScheduleStart EventType = "schedule_start"
	EventScheduleStop  EventType = "schedule_stop"
	EventScheduleError EventType = "schedule_error"

	// Control panel events
	EventPanelStart  EventType = "panel_start"
	EventPanelStop   EventType = "panel_stop"
	EventConfigSaved EventType = "config_saved"
)

// Event represents a single lifecycle event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Actor     string    `json:"actor"`             // "worker", "scheduler" or "panel"
	Context   string    `json:"context,omitempty"` // run ID, exit status, error message, ...
	Message   string    `json:"message,omitempty"` // rendered detail, filled in when parsing
}

// Logger appends events to the event log file.
// A nil *Logger is valid and discards events.
type Logger struct {
	logPath string
	mu      sync.Mutex
}

// LogPath returns the path to the event log for a state directory.
func LogPath(stateDir string) string {
	return filepath.Join(stateDir, constants.DirLogs, constants.FileEventLog)
}

// NewLogger creates a new Logger for the given state directory.
func NewLogger(stateDir string) *Logger {
	return &Logger{
		logPath: LogPath(stateDir),
	}
}

// LogEvent logs a single event.
func (l *Logger) LogEvent(event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(event) + "\n"); err != nil {
		return fmt.Errorf("writing log line: %w", err)
	}
	return nil
}

// Log is a convenience method that creates an Event and logs it.
func (l *Logger) Log(eventType EventType, actor, context string) error {
	return l.LogEvent(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Actor:     actor,
		Context:   context,
	})
}

// FormatLine formats an event as a human-readable log line.
// Format: 2025-12-26 15:30:45 [launch] worker launched (run 1f0c...)
func FormatLine(e Event) string {
	ts := e.Timestamp.Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s [%s] %s %s", ts, e.Type, e.Actor, detail(e))
}

func detail(e Event) string {
	var d string
	switch e.Type {
	case EventLaunch:
		d = "launched"
	case EventExit:
		d = "exited"
	case EventStop:
		d = "stop requested"
	case EventKill:
		d = "killed"
	case EventLaunchFailed:
		d = "failed to launch"
	case EventScheduleStart:
		d = "started worker inside window"
	case EventScheduleStop:
		d = "stopped worker outside window"
	case EventScheduleError:
		d = "tick failed"
	case EventPanelStart:
		d = "listening"
	case EventPanelStop:
		d = "shut down"
	case EventConfigSaved:
		d = "saved settings"
	default:
		d = string(e.Type)
	}
	if e.Context != "" {
		d += fmt.Sprintf(" (%s)", truncate(e.Context, 200))
	}
	return d
}

// truncate shortens a string to max length with ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ReadEvents reads all events from the event log of a state directory.
func ReadEvents(stateDir string) ([]Event, error) {
	content, err := os.ReadFile(LogPath(stateDir)) //nolint:gosec // G304: path is constructed from the state dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No log file yet
		}
		return nil, fmt.Errorf("reading log file: %w", err)
	}

	return ParseLines(string(content)), nil
}

// ParseLines parses log lines back into Events, skipping malformed lines.
func ParseLines(content string) []Event {
	var events []Event
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		event, err := parseLine(line)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}

// parseLine parses a single log line into an Event.
func parseLine(line string) (Event, error) {
	var event Event

	if len(line) < 20 {
		return event, fmt.Errorf("line too short")
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", line[:19], time.Local)
	if err != nil {
		return event, fmt.Errorf("parsing timestamp: %w", err)
	}
	event.Timestamp = ts

	rest := line[20:]
	if len(rest) < 3 || rest[0] != '[' {
		return event, fmt.Errorf("missing event type")
	}
	closeBracket := strings.IndexByte(rest, ']')
	if closeBracket < 0 {
		return event, fmt.Errorf("unclosed bracket")
	}
	event.Type = EventType(rest[1:closeBracket])

	rest = rest[closeBracket+1:]
	if len(rest) < 2 || rest[0] != ' ' {
		return event, fmt.Errorf("missing actor")
	}
	rest = rest[1:]

	actor, msg, _ := strings.Cut(rest, " ")
	event.Actor = actor
	event.Message = msg
	return event, nil
}

// TailEvents returns the last n events. n <= 0 keeps them all.
func TailEvents(events []Event, n int) []Event {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// Filter selects events.
type Filter struct {
	Type  EventType // Filter by event type (empty for all)
	Actor string    // Filter by actor (empty for all)
	Since time.Time // Filter by time (zero for all)
}

// FilterEvents applies a filter to events.
func FilterEvents(events []Event, f Filter) []Event {
	var result []Event
	for _, e := range events {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		result = append(result, e)
	}
	return result
}
