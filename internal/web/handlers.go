package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/xucongyong/duet/internal/config"
)

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := s.logs.Snapshot()
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, LogsResponse{Lines: lines})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() StatusResponse {
	st := s.ctl.Status()
	snap := s.store.Snapshot()
	resp := StatusResponse{
		Running:     st.Running,
		PID:         st.PID,
		RunID:       st.RunID,
		LastExit:    st.LastExit,
		Schedule:    scheduleResponse(snap.Window),
		LogLines:    s.logs.Len(),
		LogCapacity: s.logs.Cap(),
		Worker:      WorkerPayloadFrom(snap.Worker),
	}
	if st.Running {
		started := st.StartedAt
		resp.StartedAt = &started
	}
	return resp
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.applyWorkerBody(w, r)
	if !ok {
		return
	}
	started, err := s.ctl.Start(cfg)
	if err != nil {
		s.logger("panel: start failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	msg := "Chat started."
	if !started {
		msg = "Chat is already running."
	}
	s.respondAction(w, started, msg)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.applyWorkerBody(w, r); !ok {
		return
	}
	msg := "Chat stopped."
	stopped := s.ctl.Stop()
	if !stopped {
		msg = "No chat is running."
	}
	s.respondAction(w, stopped, msg)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.applyWorkerBody(w, r)
	if !ok {
		return
	}
	started, err := s.ctl.Restart(cfg)
	if err != nil {
		s.logger("panel: restart failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	msg := "Chat restarted."
	if !started {
		msg = "Chat did not restart: previous worker is still exiting."
	}
	s.respondAction(w, started, msg)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scheduleResponse(s.store.Window()))
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var win config.Window
	if err := decodeBody(w, r, &win); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.store.SetWindow(win); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	s.logger("panel: schedule set to %s", win.String())
	resp := scheduleResponse(s.store.Window())
	if warn := s.persist(); warn != "" {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: warn})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WorkerPayloadFrom(s.store.Worker()))
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.applyWorkerBody(w, r); !ok {
		return
	}
	s.respondAction(w, true, "Settings saved.")
}

// applyWorkerBody merges an optional WorkerPayload body into the store and
// returns the resulting config. On failure the response is already written.
func (s *Server) applyWorkerBody(w http.ResponseWriter, r *http.Request) (config.WorkerConfig, bool) {
	var p WorkerPayload
	if err := decodeBody(w, r, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return config.WorkerConfig{}, false
	}
	if !p.Empty() {
		var applyErr error
		err := s.store.Update(func(c *config.Control) {
			applyErr = p.Apply(&c.Worker)
		})
		if applyErr != nil {
			err = applyErr
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return config.WorkerConfig{}, false
		}
	}
	return s.store.Worker(), true
}

// respondAction persists the control state and writes an ActionResponse.
func (s *Server) respondAction(w http.ResponseWriter, ok bool, msg string) {
	if warn := s.persist(); warn != "" {
		msg = strings.TrimSpace(msg + " " + warn)
	}
	writeJSON(w, http.StatusOK, ActionResponse{OK: ok, Message: msg})
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("payload exceeds limit")
		}
		return errors.New("invalid JSON: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
