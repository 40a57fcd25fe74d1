// Package schedule keeps the worker running only inside a daily time window.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/eventlog"
)

const actor = "scheduler"

// Controller is the part of the supervisor the scheduler drives.
type Controller interface {
	Start(cfg config.WorkerConfig) (bool, error)
	Stop() bool
	IsRunning() bool
}

// Action is what a tick did.
type Action int

const (
	// ActionNone means the worker state already matched the window,
	// or scheduling is disabled.
	ActionNone Action = iota
	// ActionStart means the worker was started.
	ActionStart
	// ActionStop means the worker was asked to stop.
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	default:
		return "none"
	}
}

// Scheduler periodically reconciles the worker against the configured window.
// It runs as a background goroutine within `duet serve`.
type Scheduler struct {
	ctl      Controller
	store    *config.Store
	interval time.Duration
	now      func() time.Time
	logger   func(format string, args ...interface{})
	events   *eventlog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock sets the clock consulted on every tick.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the daemon logger.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithEvents sets the lifecycle event log.
func WithEvents(events *eventlog.Logger) Option {
	return func(s *Scheduler) { s.events = events }
}

// New creates a new Scheduler.
func New(ctl Controller, store *config.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		ctl:      ctl,
		store:    store,
		interval: constants.ScheduleInterval,
		now:      time.Now,
		logger:   func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick performs one reconciliation at now.
func (s *Scheduler) Tick(now time.Time) (Action, error) {
	snap := s.store.Snapshot()
	w := snap.Window
	if !w.Enabled() {
		return ActionNone, nil
	}
	if err := w.Validate(); err != nil {
		return ActionNone, err
	}

	start := ClockTime{Hour: *w.StartHour, Minute: *w.StartMinute}
	stop := ClockTime{Hour: *w.StopHour, Minute: *w.StopMinute}
	shouldRun := InWindow(start, stop, ClockOf(now))
	running := s.ctl.IsRunning()

	switch {
	case shouldRun && !running:
		started, err := s.ctl.Start(snap.Worker)
		if err != nil {
			return ActionNone, fmt.Errorf("starting worker: %w", err)
		}
		if !started {
			return ActionNone, nil
		}
		return ActionStart, nil
	case !shouldRun && running:
		if !s.ctl.Stop() {
			return ActionNone, nil
		}
		return ActionStop, nil
	}
	return ActionNone, nil
}

// Start begins the scheduler goroutine. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the scheduler goroutine and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.started = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Reconcile immediately on startup
	s.tick()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs a single reconciliation and reports its outcome. Failures are
// logged and never end the loop.
func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger("schedule tick panic: %v", r)
			_ = s.events.Log(eventlog.EventScheduleError, actor, fmt.Sprintf("panic: %v", r))
		}
	}()

	window := s.store.Window().String()
	action, err := s.Tick(s.now())
	if err != nil {
		s.logger("schedule tick error: %v", err)
		_ = s.events.Log(eventlog.EventScheduleError, actor, err.Error())
		return
	}

	switch action {
	case ActionStart:
		s.logger("schedule: started worker inside window %s", window)
		_ = s.events.Log(eventlog.EventScheduleStart, actor, window)
	case ActionStop:
		s.logger("schedule: stopped worker outside window %s", window)
		_ = s.events.Log(eventlog.EventScheduleStop, actor, window)
	}
}
