package web

import (
	"time"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/supervisor"
)

// WorkerPayload is the JSON form of a WorkerConfig. Every field is optional
// on input; durations are decimal seconds.
type WorkerPayload struct {
	Topic        *string  `json:"topic,omitempty"`
	FirstSpeaker *string  `json:"first_speaker,omitempty"`
	Model        *string  `json:"model,omitempty"`
	MaxTurns     *int     `json:"max_turns,omitempty"`
	Delay        *float64 `json:"delay,omitempty"`
	TypingSpeed  *float64 `json:"typing_speed,omitempty"`
	ContextLimit *int     `json:"context_limit,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// WorkerPayloadFrom renders a full payload for c.
func WorkerPayloadFrom(c config.WorkerConfig) WorkerPayload {
	speaker := string(c.FirstSpeaker)
	delay := c.Delay.Seconds()
	typing := c.TypingSpeed.Seconds()
	return WorkerPayload{
		Topic:        &c.Topic,
		FirstSpeaker: &speaker,
		Model:        &c.Model,
		MaxTurns:     &c.MaxTurns,
		Delay:        &delay,
		TypingSpeed:  &typing,
		ContextLimit: &c.ContextLimit,
		Temperature:  &c.Temperature,
	}
}

// Empty reports whether no field is set.
func (p WorkerPayload) Empty() bool {
	return p == WorkerPayload{}
}

// Apply copies the set fields onto c. The result is not validated.
func (p WorkerPayload) Apply(c *config.WorkerConfig) error {
	if p.Topic != nil {
		c.Topic = *p.Topic
	}
	if p.FirstSpeaker != nil {
		sp, err := config.ParseSpeaker(*p.FirstSpeaker)
		if err != nil {
			return err
		}
		c.FirstSpeaker = sp
	}
	if p.Model != nil {
		c.Model = *p.Model
	}
	if p.MaxTurns != nil {
		c.MaxTurns = *p.MaxTurns
	}
	if p.Delay != nil {
		c.Delay = seconds(*p.Delay)
	}
	if p.TypingSpeed != nil {
		c.TypingSpeed = seconds(*p.TypingSpeed)
	}
	if p.ContextLimit != nil {
		c.ContextLimit = *p.ContextLimit
	}
	if p.Temperature != nil {
		c.Temperature = *p.Temperature
	}
	return nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// LogsResponse is returned by GET /logs.
type LogsResponse struct {
	Lines []string `json:"lines"`
}

// ActionResponse is returned by the start, stop, restart and save endpoints.
type ActionResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ScheduleResponse is returned by GET and POST /api/schedule.
type ScheduleResponse struct {
	Window  config.Window `json:"window"`
	Enabled bool          `json:"enabled"`
	Summary string        `json:"summary"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Running     bool             `json:"running"`
	PID         int              `json:"pid,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	LastExit    *supervisor.Exit `json:"last_exit,omitempty"`
	Schedule    ScheduleResponse `json:"schedule"`
	LogLines    int              `json:"log_lines"`
	LogCapacity int              `json:"log_capacity"`
	Worker      WorkerPayload    `json:"worker"`
}

// ErrorResponse carries a request failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

func scheduleResponse(w config.Window) ScheduleResponse {
	return ScheduleResponse{Window: w, Enabled: w.Enabled(), Summary: w.String()}
}
