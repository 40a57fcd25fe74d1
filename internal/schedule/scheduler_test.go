package schedule

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/eventlog"
)

// fakeController records calls and tracks a running flag.
type fakeController struct {
	mu       sync.Mutex
	running  bool
	starts   int
	stops    int
	startErr error
	lastCfg  config.WorkerConfig
	panicky  bool
}

func (f *fakeController) Start(cfg config.WorkerConfig) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return false, f.startErr
	}
	if f.running {
		return false, nil
	}
	f.running = true
	f.starts++
	f.lastCfg = cfg
	return true, nil
}

func (f *fakeController) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return false
	}
	f.running = false
	f.stops++
	return true
}

func (f *fakeController) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicky {
		panic("controller exploded")
	}
	return f.running
}

func (f *fakeController) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func at(h, m int) time.Time {
	return time.Date(2025, 3, 4, h, m, 0, 0, time.Local)
}

func storeWith(w config.Window) *config.Store {
	return config.NewStore(config.Control{Worker: config.DefaultWorkerConfig(), Window: w})
}

func TestTick(t *testing.T) {
	tests := []struct {
		name       string
		window     config.Window
		running    bool
		now        time.Time
		wantAction Action
		wantStarts int
		wantStops  int
	}{
		{"inside and idle starts", config.NewWindow(9, 0, 17, 0), false, at(10, 0), ActionStart, 1, 0},
		{"inside and running is a no-op", config.NewWindow(9, 0, 17, 0), true, at(10, 0), ActionNone, 0, 0},
		{"outside and running stops", config.NewWindow(9, 0, 17, 0), true, at(18, 0), ActionStop, 0, 1},
		{"outside and idle is a no-op", config.NewWindow(9, 0, 17, 0), false, at(18, 0), ActionNone, 0, 0},
		{"wrapping window after midnight", config.NewWindow(22, 0, 6, 0), false, at(1, 0), ActionStart, 1, 0},
		{"disabled window does nothing", config.Window{}, true, at(3, 0), ActionNone, 0, 0},
		{"partial window does nothing", config.Window{StartHour: intp(9), StopHour: intp(17)}, false, at(10, 0), ActionNone, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := &fakeController{running: tt.running}
			s := New(ctl, storeWith(tt.window))

			action, err := s.Tick(tt.now)
			if err != nil {
				t.Fatalf("Tick() error: %v", err)
			}
			if action != tt.wantAction {
				t.Errorf("Tick() = %v, want %v", action, tt.wantAction)
			}
			starts, stops := ctl.counts()
			if starts != tt.wantStarts || stops != tt.wantStops {
				t.Errorf("starts/stops = %d/%d, want %d/%d", starts, stops, tt.wantStarts, tt.wantStops)
			}
		})
	}
}

func TestTick_Idempotent(t *testing.T) {
	ctl := &fakeController{}
	s := New(ctl, storeWith(config.NewWindow(9, 0, 17, 0)))

	for i := 0; i < 5; i++ {
		if _, err := s.Tick(at(12, i)); err != nil {
			t.Fatal(err)
		}
	}
	if starts, _ := ctl.counts(); starts != 1 {
		t.Errorf("starts = %d after repeated ticks, want 1", starts)
	}
}

func TestTick_UsesStoredWorkerConfig(t *testing.T) {
	ctl := &fakeController{}
	store := storeWith(config.NewWindow(0, 0, 23, 59))
	if err := store.Update(func(c *config.Control) { c.Worker.Topic = "weather" }); err != nil {
		t.Fatal(err)
	}
	s := New(ctl, store)
	if _, err := s.Tick(at(12, 0)); err != nil {
		t.Fatal(err)
	}
	if ctl.lastCfg.Topic != "weather" {
		t.Errorf("started with topic %q, want weather", ctl.lastCfg.Topic)
	}
}

func TestTick_InvalidWindow(t *testing.T) {
	ctl := &fakeController{}
	s := New(ctl, storeWith(config.NewWindow(25, 0, 6, 0)))

	action, err := s.Tick(at(12, 0))
	if !errors.Is(err, config.ErrInvalidWindow) {
		t.Errorf("Tick() err = %v, want ErrInvalidWindow", err)
	}
	if action != ActionNone {
		t.Errorf("Tick() = %v, want none", action)
	}
}

func TestTick_StartError(t *testing.T) {
	launchErr := errors.New("boom")
	ctl := &fakeController{startErr: launchErr}
	s := New(ctl, storeWith(config.NewWindow(9, 0, 17, 0)))

	if _, err := s.Tick(at(10, 0)); !errors.Is(err, launchErr) {
		t.Errorf("Tick() err = %v, want wrapped launch error", err)
	}
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	ctl := &fakeController{}
	s := New(ctl, storeWith(config.NewWindow(9, 0, 17, 0)),
		WithClock(func() time.Time { return at(10, 0) }),
		WithInterval(time.Hour))

	s.Start()
	s.Start() // idempotent
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if starts, _ := ctl.counts(); starts == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduler did not start the worker on its first tick")
}

func TestScheduler_SurvivesErrorsAndPanics(t *testing.T) {
	dir := t.TempDir()
	var ticks atomic.Int32
	ctl := &fakeController{panicky: true}
	s := New(ctl, storeWith(config.NewWindow(9, 0, 17, 0)),
		WithClock(func() time.Time { ticks.Add(1); return at(10, 0) }),
		WithInterval(10*time.Millisecond),
		WithLogger(t.Logf),
		WithEvents(eventlog.NewLogger(dir)))

	s.Start()
	deadline := time.Now().Add(5 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if ticks.Load() < 3 {
		t.Fatalf("loop stopped after %d ticks", ticks.Load())
	}
	events, err := eventlog.ReadEvents(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(eventlog.FilterEvents(events, eventlog.Filter{Type: eventlog.EventScheduleError})) == 0 {
		t.Error("expected schedule_error events")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := New(&fakeController{}, storeWith(config.Window{}))
	s.Stop()
}

func intp(v int) *int { return &v }
