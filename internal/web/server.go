// Package web exposes the control panel: a small JSON API over the worker
// supervisor, the log buffer and the schedule, plus a typed client for it.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/eventlog"
	"github.com/xucongyong/duet/internal/supervisor"
)

const actor = "panel"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 * 1024

// Controller is the part of the supervisor the panel drives.
type Controller interface {
	Start(cfg config.WorkerConfig) (bool, error)
	Stop() bool
	Restart(cfg config.WorkerConfig) (bool, error)
	Status() supervisor.Status
}

// LogSource is the log buffer as seen by observers.
type LogSource interface {
	Snapshot() []string
	Len() int
	Cap() int
}

// Server wraps the HTTP listener and handlers backing the control panel.
type Server struct {
	listen       string
	ctl          Controller
	logs         LogSource
	store        *config.Store
	settingsPath string
	username     string
	password     string
	logger       func(format string, args ...interface{})
	events       *eventlog.Logger

	// saveMu serializes persisting the control state.
	saveMu sync.Mutex

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
}

// Option customizes server construction.
type Option func(*Server)

// WithCredentials enables HTTP basic auth. Empty values leave it disabled.
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithSettingsPath sets the file that control changes are persisted to.
// Without it changes live only in memory.
func WithSettingsPath(path string) Option {
	return func(s *Server) { s.settingsPath = path }
}

// WithLogger sets the daemon logger.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents sets the lifecycle event log.
func WithEvents(events *eventlog.Logger) Option {
	return func(s *Server) { s.events = events }
}

// NewServer prepares a control panel server.
func NewServer(listen string, ctl Controller, logs LogSource, store *config.Store, opts ...Option) *Server {
	s := &Server{
		listen: listen,
		ctl:    ctl,
		logs:   logs,
		store:  store,
		logger: func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the panel's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/restart", s.handleRestart)
	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("POST /api/schedule", s.handleSetSchedule)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)
	return s.withAuth(mux)
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("panel: server already started")
	}
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("panel: listen %s: %w", s.listen, err)
	}
	s.listener = listener

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger("panel: serve error: %v", err)
		}
	}()
	addr := listener.Addr().String()
	s.logger("panel: listening on %s", addr)
	_ = s.events.Log(eventlog.EventPanelStart, actor, addr)
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	s.logger("panel: shut down")
	_ = s.events.Log(eventlog.EventPanelStop, actor, "")
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL of the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		addr = s.listen
	}
	return "http://" + addr
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.username == "" || s.password == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="duet"`)
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// persist writes the control state to the settings file. It returns a
// warning for the response message, or "" on success.
func (s *Server) persist() string {
	if s.settingsPath == "" {
		return ""
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := config.SaveControl(s.settingsPath, s.store.Snapshot()); err != nil {
		s.logger("panel: persisting settings: %v", err)
		return "Failed to persist settings."
	}
	_ = s.events.Log(eventlog.EventConfigSaved, actor, s.settingsPath)
	return ""
}
