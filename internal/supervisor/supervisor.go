// Package supervisor runs the chat worker as a child process, relays its
// combined output into a log buffer and tracks its lifecycle.
//
// At most one worker is alive per Supervisor. Start, Stop and the exit
// bookkeeping are serialized by one mutex; the log buffer has its own lock
// and is never touched while a slow operation holds the supervisor lock.
package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/eventlog"
	"github.com/xucongyong/duet/internal/logbuf"
)

// ErrLaunch is returned when the worker executable could not be spawned.
var ErrLaunch = errors.New("worker launch failed")

// maxLineSize caps a single line of worker output.
const maxLineSize = 1024 * 1024

const actor = "worker"

// Sink is the log buffer the supervisor writes into.
type Sink interface {
	Append(line string)
	Clear()
}

// Exit describes how the previous worker run ended.
type Exit struct {
	RunID string    `json:"run_id"`
	PID   int       `json:"pid"`
	Code  int       `json:"code"`
	At    time.Time `json:"at"`
	// Reason is the wait error ("exit status 1", "signal: terminated"),
	// empty for a clean exit.
	Reason string `json:"reason,omitempty"`
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastExit  *Exit     `json:"last_exit,omitempty"`
}

// run is the handle of one spawned worker.
type run struct {
	id      string
	cmd     *exec.Cmd
	pid     int
	started time.Time
	out     *os.File
	done    chan struct{}
}

// Supervisor owns the worker process lifecycle.
type Supervisor struct {
	buf          Sink
	command      []string
	dir          string
	env          []string
	now          func() time.Time
	logger       func(format string, args ...interface{})
	events       *eventlog.Logger
	restartGrace time.Duration
	drainTimeout time.Duration

	mu       sync.Mutex
	active   *run
	lastExit *Exit
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithCommand sets the worker command. The first element is the executable;
// the launch arguments are appended after the remaining elements.
func WithCommand(command ...string) Option {
	return func(s *Supervisor) {
		s.command = append([]string(nil), command...)
	}
}

// WithDir sets the worker's working directory.
func WithDir(dir string) Option {
	return func(s *Supervisor) { s.dir = dir }
}

// WithEnv adds KEY=VALUE entries to the worker environment.
func WithEnv(env ...string) Option {
	return func(s *Supervisor) { s.env = append(s.env, env...) }
}

// WithClock sets the clock used for system line timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// WithLogger sets the daemon logger.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithEvents sets the lifecycle event log.
func WithEvents(events *eventlog.Logger) Option {
	return func(s *Supervisor) { s.events = events }
}

// WithRestartGrace sets how long Restart and Shutdown wait after SIGTERM
// before sending SIGKILL.
func WithRestartGrace(d time.Duration) Option {
	return func(s *Supervisor) { s.restartGrace = d }
}

// New creates a Supervisor writing worker output into buf.
func New(buf Sink, opts ...Option) *Supervisor {
	s := &Supervisor{
		buf:          buf,
		now:          time.Now,
		logger:       func(string, ...interface{}) {},
		restartGrace: constants.RestartGrace,
		drainTimeout: constants.OutputDrainTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buf == nil {
		s.buf = logbuf.New(0)
	}
	return s
}

// Start launches the worker with cfg. It returns false without error when a
// worker is already running.
func (s *Supervisor) Start(cfg config.WorkerConfig) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return false, nil
	}
	if len(s.command) == 0 {
		return false, fmt.Errorf("%w: no worker command configured", ErrLaunch)
	}

	s.buf.Clear()
	s.buf.Append(s.systemLine("Chat launched."))

	args := append(append([]string(nil), s.command[1:]...), cfg.Args()...)
	cmd := exec.Command(s.command[0], args...) //nolint:gosec // G204: command comes from the settings file
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), s.env...)
	cmd.Env = append(cmd.Env, constants.EnvTemperature+"="+strconv.FormatFloat(cfg.Temperature, 'f', -1, 64))
	setSysProcAttr(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return false, fmt.Errorf("%w: creating output pipe: %v", ErrLaunch, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		s.buf.Append(s.systemLine(fmt.Sprintf("Failed to launch chat: %v", err)))
		s.logger("worker launch failed: %v", err)
		_ = s.events.Log(eventlog.EventLaunchFailed, actor, err.Error())
		return false, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	r := &run{
		id:      uuid.NewString(),
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		started: s.now(),
		out:     pr,
		done:    make(chan struct{}),
	}
	s.active = r

	readerDone := make(chan struct{})
	go s.read(r, readerDone)
	go s.wait(r, readerDone)

	s.logger("worker started: pid %d run %s", r.pid, r.id)
	_ = s.events.Log(eventlog.EventLaunch, actor, fmt.Sprintf("pid %d, run %s", r.pid, shortID(r.id)))
	return true, nil
}

// Stop requests graceful termination of the running worker and returns
// without waiting for it to exit. It returns false when no worker is running.
func (s *Supervisor) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked() != nil
}

// stopLocked signals the active run and returns it, or nil when idle.
func (s *Supervisor) stopLocked() *run {
	r := s.active
	if r == nil {
		return nil
	}
	if err := sendTermSignal(r.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.buf.Append(s.systemLine(fmt.Sprintf("Stop signal failed: %v", err)))
		s.logger("worker stop signal failed: pid %d: %v", r.pid, err)
	}
	_ = s.events.Log(eventlog.EventStop, actor, fmt.Sprintf("pid %d", r.pid))
	return r
}

// Restart stops the running worker, waits for it to exit and starts a new
// one with cfg. The wait is bounded by the restart grace period, after which
// the old worker is killed.
func (s *Supervisor) Restart(cfg config.WorkerConfig) (bool, error) {
	s.mu.Lock()
	prev := s.stopLocked()
	s.mu.Unlock()

	if prev != nil {
		s.awaitExit(prev, s.restartGrace)
	}
	return s.Start(cfg)
}

// Shutdown stops the worker and waits up to timeout for it to exit, killing
// it if it does not. It returns an error if the worker is still alive.
func (s *Supervisor) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	r := s.stopLocked()
	s.mu.Unlock()

	if r == nil {
		return nil
	}
	if !s.awaitExit(r, timeout) {
		return fmt.Errorf("worker pid %d did not exit", r.pid)
	}
	return nil
}

// awaitExit waits for r to finish, escalating to SIGKILL after grace.
// It reports whether the run finished.
func (s *Supervisor) awaitExit(r *run, grace time.Duration) bool {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-r.done:
		return true
	case <-timer.C:
	}

	s.logger("worker pid %d ignored SIGTERM for %v, killing", r.pid, grace)
	if err := sendKillSignal(r.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger("worker kill failed: pid %d: %v", r.pid, err)
	}
	_ = s.events.Log(eventlog.EventKill, actor, fmt.Sprintf("pid %d", r.pid))

	timer.Reset(grace + s.drainTimeout)
	select {
	case <-r.done:
		return true
	case <-timer.C:
		return false
	}
}

// IsRunning reports whether a worker is alive.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// CurrentPID returns the running worker's pid.
func (s *Supervisor) CurrentPID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0, false
	}
	return s.active.pid, true
}

// Status returns a snapshot of the supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Status
	if r := s.active; r != nil {
		st.Running = true
		st.PID = r.pid
		st.RunID = r.id
		st.StartedAt = r.started
	}
	if s.lastExit != nil {
		e := *s.lastExit
		st.LastExit = &e
	}
	return st
}

// done returns a channel closed when the current run has been fully
// reaped. When idle the returned channel is already closed.
func (s *Supervisor) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.active.done
}

// read copies the worker's output into the buffer, one cleaned line at a time.
func (s *Supervisor) read(r *run, done chan<- struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r.out)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if line := cleanLine(scanner.Text()); line != "" {
			s.buf.Append(line)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.buf.Append(s.systemLine(fmt.Sprintf("Output stream error: %v", err)))
		s.logger("worker %d output error: %v", r.pid, err)
		// Keep the pipe empty so the worker never blocks on a write.
		_, _ = io.Copy(io.Discard, r.out)
	}
}

// wait reaps the process, lets the reader drain and records the exit.
func (s *Supervisor) wait(r *run, readerDone <-chan struct{}) {
	err := r.cmd.Wait()

	// Descendants of the worker may still hold the pipe open.
	select {
	case <-readerDone:
	case <-time.After(s.drainTimeout):
		_ = r.out.Close()
		<-readerDone
	}
	_ = r.out.Close()

	exit := &Exit{
		RunID: r.id,
		PID:   r.pid,
		Code:  r.cmd.ProcessState.ExitCode(),
		At:    s.now(),
	}
	msg := "Chat process exited."
	if err != nil {
		exit.Reason = err.Error()
		msg = fmt.Sprintf("Chat process exited (%s).", err)
	}
	s.buf.Append(s.systemLine(msg))

	s.logger("worker exited: pid %d code %d", r.pid, exit.Code)
	ctx := fmt.Sprintf("pid %d, code %d", r.pid, exit.Code)
	if exit.Reason != "" {
		ctx = fmt.Sprintf("pid %d, %s", r.pid, exit.Reason)
	}
	_ = s.events.Log(eventlog.EventExit, actor, ctx)

	s.mu.Lock()
	if s.active != nil && s.active.id == r.id {
		s.active = nil
	}
	s.lastExit = exit
	s.mu.Unlock()
	close(r.done)
}

// systemLine formats a supervisor-authored line.
func (s *Supervisor) systemLine(msg string) string {
	return fmt.Sprintf("[system %s] %s", s.now().Format("15:04:05"), msg)
}

// cleanLine strips terminal control sequences and trailing whitespace.
func cleanLine(raw string) string {
	return strings.TrimRightFunc(ansi.Strip(raw), unicode.IsSpace)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
