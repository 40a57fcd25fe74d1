package config

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned when a schedule field is out of range.
var ErrInvalidWindow = errors.New("invalid schedule window")

// Window is the daily [start, stop) run window. Scheduling is enabled only
// when all four fields are set; a partially set window disables it.
type Window struct {
	StartHour   *int `json:"start_hour"`
	StartMinute *int `json:"start_minute"`
	StopHour    *int `json:"stop_hour"`
	StopMinute  *int `json:"stop_minute"`
}

// NewWindow builds a fully specified window.
func NewWindow(startHour, startMinute, stopHour, stopMinute int) Window {
	return Window{
		StartHour:   &startHour,
		StartMinute: &startMinute,
		StopHour:    &stopHour,
		StopMinute:  &stopMinute,
	}
}

// Enabled reports whether all four fields are present.
func (w Window) Enabled() bool {
	return w.StartHour != nil && w.StartMinute != nil && w.StopHour != nil && w.StopMinute != nil
}

// AllDay reports whether the window is enabled with equal endpoints, which
// keeps the worker running around the clock.
func (w Window) AllDay() bool {
	return w.Enabled() && *w.StartHour == *w.StopHour && *w.StartMinute == *w.StopMinute
}

// Validate checks the ranges of the fields that are set.
func (w Window) Validate() error {
	for _, f := range []struct {
		name string
		v    *int
		max  int
	}{
		{"start_hour", w.StartHour, 23},
		{"start_minute", w.StartMinute, 59},
		{"stop_hour", w.StopHour, 23},
		{"stop_minute", w.StopMinute, 59},
	} {
		if f.v != nil && (*f.v < 0 || *f.v > f.max) {
			return fmt.Errorf("%w: %s=%d (want 0-%d)", ErrInvalidWindow, f.name, *f.v, f.max)
		}
	}
	return nil
}

// Clone returns a copy that shares no pointers with w.
func (w Window) Clone() Window {
	return Window{
		StartHour:   cloneInt(w.StartHour),
		StartMinute: cloneInt(w.StartMinute),
		StopHour:    cloneInt(w.StopHour),
		StopMinute:  cloneInt(w.StopMinute),
	}
}

// String renders the window as "HH:MM-HH:MM", or "disabled".
func (w Window) String() string {
	if !w.Enabled() {
		return "disabled"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", *w.StartHour, *w.StartMinute, *w.StopHour, *w.StopMinute)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
