package config

import (
	"errors"
	"testing"
)

func intp(v int) *int { return &v }

func TestWindow_Enabled(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		want bool
	}{
		{"empty", Window{}, false},
		{"only start hour", Window{StartHour: intp(9)}, false},
		{"missing stop minute", Window{StartHour: intp(9), StartMinute: intp(0), StopHour: intp(17)}, false},
		{"full", NewWindow(9, 0, 17, 0), true},
		{"midnight", NewWindow(0, 0, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindow_Validate(t *testing.T) {
	if err := NewWindow(22, 30, 6, 0).Validate(); err != nil {
		t.Errorf("valid window rejected: %v", err)
	}
	if err := (Window{StartHour: intp(24)}).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("hour 24 accepted: %v", err)
	}
	if err := NewWindow(9, 60, 17, 0).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("minute 60 accepted: %v", err)
	}
	if err := (Window{StopMinute: intp(-1)}).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("negative minute accepted: %v", err)
	}
}

func TestWindow_CloneIsIndependent(t *testing.T) {
	w := NewWindow(9, 0, 17, 0)
	c := w.Clone()
	*c.StartHour = 10

	if *w.StartHour != 9 {
		t.Errorf("Clone shares pointers: original start hour = %d", *w.StartHour)
	}
}

func TestWindow_String(t *testing.T) {
	if got := NewWindow(9, 5, 17, 30).String(); got != "09:05-17:30" {
		t.Errorf("String() = %q", got)
	}
	if got := (Window{StartHour: intp(1)}).String(); got != "disabled" {
		t.Errorf("String() = %q, want disabled", got)
	}
}

func TestWindow_AllDay(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		want bool
	}{
		{"equal endpoints", NewWindow(8, 0, 8, 0), true},
		{"midnight to midnight", NewWindow(0, 0, 0, 0), true},
		{"regular window", NewWindow(9, 0, 17, 0), false},
		{"disabled", Window{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.AllDay(); got != tt.want {
				t.Errorf("AllDay() = %v, want %v", got, tt.want)
			}
		})
	}
}
