package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/logbuf"
	"github.com/xucongyong/duet/internal/supervisor"
)

// fakeController records the configs it was started with.
type fakeController struct {
	mu       sync.Mutex
	running  bool
	started  []config.WorkerConfig
	restarts int
	startErr error
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
	f.started = append(f.started, cfg)
	return true, nil
}

func (f *fakeController) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.running
	f.running = false
	return was
}

func (f *fakeController) Restart(cfg config.WorkerConfig) (bool, error) {
	f.mu.Lock()
	f.running = false
	f.restarts++
	f.mu.Unlock()
	return f.Start(cfg)
}

func (f *fakeController) Status() supervisor.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return supervisor.Status{}
	}
	return supervisor.Status{Running: true, PID: 4242, RunID: "run-1", StartedAt: time.Unix(1730000000, 0)}
}

func (f *fakeController) calls() ([]config.WorkerConfig, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]config.WorkerConfig(nil), f.started...), f.restarts
}

func (f *fakeController) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

type harness struct {
	ctl      *fakeController
	buf      *logbuf.Buffer
	store    *config.Store
	client   *Client
	settings string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		ctl:      &fakeController{},
		buf:      logbuf.New(5),
		store:    config.NewStore(config.Control{Worker: config.DefaultWorkerConfig()}),
		settings: filepath.Join(t.TempDir(), "duet.toml"),
	}
	opts = append([]Option{WithSettingsPath(h.settings), WithLogger(t.Logf)}, opts...)
	srv := NewServer("127.0.0.1:0", h.ctl, h.buf, h.store, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	h.client = NewClient(ts.URL)
	return h
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	lines, err := h.client.Logs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if lines == nil || len(lines) != 0 {
		t.Errorf("Logs() on empty buffer = %#v, want empty non-nil", lines)
	}

	for _, l := range []string{"a", "b", "c", "d", "e", "f"} {
		h.buf.Append(l)
	}
	lines, err = h.client.Logs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "b,c,d,e,f" {
		t.Errorf("Logs() = %q", lines)
	}
}

func TestLogs_RawJSONShape(t *testing.T) {
	h := newHarness(t)
	h.buf.Append("hello")

	resp, err := http.Get(h.client.BaseURL() + "/logs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(body)); got != `{"lines":["hello"]}` {
		t.Errorf("body = %s", got)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestStartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.client.Start(ctx, WorkerPayload{Topic: strp("rivers"), FirstSpeaker: strp("b")})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Message != "Chat started." {
		t.Errorf("Start() = %+v", resp)
	}
	started, _ := h.ctl.calls()
	if len(started) != 1 || started[0].Topic != "rivers" || started[0].FirstSpeaker != config.SpeakerB {
		t.Errorf("started with %+v", started)
	}
	if h.store.Worker().Topic != "rivers" {
		t.Error("override was not stored")
	}

	resp, err = h.client.Start(ctx, WorkerPayload{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK || resp.Message != "Chat is already running." {
		t.Errorf("second Start() = %+v", resp)
	}

	resp, err = h.client.Stop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Message != "Chat stopped." {
		t.Errorf("Stop() = %+v", resp)
	}
	resp, err = h.client.Stop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK || resp.Message != "No chat is running." {
		t.Errorf("second Stop() = %+v", resp)
	}

	// Actions persist the control state.
	s, err := config.Load(h.settings)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if s.Chat.Topic != "rivers" {
		t.Errorf("persisted topic = %q", s.Chat.Topic)
	}
}

func TestStart_InvalidOverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    WorkerPayload
	}{
		{"bad speaker", WorkerPayload{FirstSpeaker: strp("c")}},
		{"negative turns", WorkerPayload{MaxTurns: intp(-1)}},
		{"empty topic", WorkerPayload{Topic: strp("  ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.client.Start(ctx, tt.p)
			if err == nil || !strings.Contains(err.Error(), "HTTP 400") {
				t.Errorf("Start() err = %v, want HTTP 400", err)
			}
		})
	}
	if started, _ := h.ctl.calls(); len(started) != 0 {
		t.Error("worker started despite invalid override")
	}
	if h.store.Worker() != config.DefaultWorkerConfig() {
		t.Error("store changed despite invalid override")
	}
}

func TestStart_LaunchError(t *testing.T) {
	h := newHarness(t)
	h.ctl.failWith(errors.New("exec: \"python3\": not found"))

	_, err := h.client.Start(context.Background(), WorkerPayload{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Start() err = %v, want HTTP 500 with cause", err)
	}
}

func TestRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.client.Start(ctx, WorkerPayload{}); err != nil {
		t.Fatal(err)
	}
	resp, err := h.client.Restart(ctx, WorkerPayload{Model: strp("other/model")})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Message != "Chat restarted." {
		t.Errorf("Restart() = %+v", resp)
	}
	started, restarts := h.ctl.calls()
	if restarts != 1 || started[len(started)-1].Model != "other/model" {
		t.Errorf("restart state: %d restarts, starts %+v", restarts, started)
	}
}

func TestSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sched, err := h.client.Schedule(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sched.Enabled || sched.Summary != "disabled" {
		t.Errorf("initial schedule = %+v", sched)
	}

	sched, err = h.client.SetSchedule(ctx, config.NewWindow(22, 0, 6, 30))
	if err != nil {
		t.Fatal(err)
	}
	if !sched.Enabled || sched.Summary != "22:00-06:30" {
		t.Errorf("SetSchedule() = %+v", sched)
	}
	if got := h.store.Window().String(); got != "22:00-06:30" {
		t.Errorf("stored window = %s", got)
	}

	s, err := config.Load(h.settings)
	if err != nil {
		t.Fatal(err)
	}
	if s.Window().String() != "22:00-06:30" {
		t.Errorf("persisted window = %s", s.Window())
	}

	if _, err := h.client.SetSchedule(ctx, config.NewWindow(24, 0, 6, 0)); err == nil || !strings.Contains(err.Error(), "HTTP 400") {
		t.Errorf("invalid window err = %v, want HTTP 400", err)
	}
	if got := h.store.Window().String(); got != "22:00-06:30" {
		t.Errorf("invalid window replaced stored one: %s", got)
	}

	sched, err = h.client.SetSchedule(ctx, config.Window{})
	if err != nil {
		t.Fatal(err)
	}
	if sched.Enabled {
		t.Error("clearing the schedule left it enabled")
	}
}

func TestConfig(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.client.SaveConfig(ctx, WorkerPayload{ContextLimit: intp(9)})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Message != "Settings saved." {
		t.Errorf("SaveConfig() = %+v", resp)
	}
	cfg, err := h.client.Config(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContextLimit == nil || *cfg.ContextLimit != 9 {
		t.Errorf("Config() context = %v", cfg.ContextLimit)
	}
	if cfg.Delay == nil || *cfg.Delay != 20 {
		t.Errorf("Config() delay = %v, want 20 seconds", cfg.Delay)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buf.Append("x")

	st, err := h.client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Running || st.StartedAt != nil || st.LogLines != 1 || st.LogCapacity != 5 {
		t.Errorf("idle Status() = %+v", st)
	}

	if _, err := h.client.Start(ctx, WorkerPayload{}); err != nil {
		t.Fatal(err)
	}
	st, err = h.client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Running || st.PID != 4242 || st.StartedAt == nil {
		t.Errorf("running Status() = %+v", st)
	}
	if st.Worker.Topic == nil || *st.Worker.Topic != "Who are you?" {
		t.Errorf("Status().Worker = %+v", st.Worker)
	}
}

func TestBadJSON(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Post(h.client.BaseURL()+"/api/start", "application/json", strings.NewReader(`{"topic":`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.client.BaseURL() + "/api/start")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	h := newHarness(t, WithCredentials("admin", "s3cret"))
	ctx := context.Background()

	if _, err := h.client.Logs(ctx); err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("unauthenticated Logs() err = %v, want HTTP 401", err)
	}
	h.client.WithAuth("admin", "wrong")
	if _, err := h.client.Logs(ctx); err == nil {
		t.Error("wrong password accepted")
	}
	h.client.WithAuth("admin", "s3cret")
	if _, err := h.client.Logs(ctx); err != nil {
		t.Errorf("authenticated Logs() = %v", err)
	}
}

func TestPersistFailureIsReported(t *testing.T) {
	h := newHarness(t)
	// A directory where the settings file should be makes the write fail.
	if err := os.MkdirAll(h.settings, 0755); err != nil {
		t.Fatal(err)
	}
	resp, err := h.client.Start(context.Background(), WorkerPayload{})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || !strings.Contains(resp.Message, "Failed to persist settings.") {
		t.Errorf("Start() = %+v, want persist warning", resp)
	}
}

func TestServerStartShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", &fakeController{}, logbuf.New(3), config.NewStore(config.Control{Worker: config.DefaultWorkerConfig()}))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("Addr() empty after start")
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}

	lines, err := NewClient(srv.BaseURL()).Logs(context.Background())
	if err != nil || len(lines) != 0 {
		t.Errorf("Logs() = %v, %v", lines, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if srv.Addr() != "" {
		t.Error("Addr() non-empty after shutdown")
	}
	if _, err := NewClient("http://127.0.0.1:1").Logs(context.Background()); !errors.Is(err, ErrUnreachable) {
		t.Errorf("unreachable err = %v", err)
	}
}
