package config

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestWorkerConfig_Args(t *testing.T) {
	cfg := WorkerConfig{
		Topic:        "Who are you?",
		FirstSpeaker: SpeakerB,
		Model:        "gemma2-9b-it",
		MaxTurns:     10,
		Delay:        1200 * time.Millisecond,
		TypingSpeed:  15 * time.Millisecond,
		ContextLimit: 6,
		Temperature:  0.7,
	}

	want := []string{"Who are you?", "bot2", "gemma2-9b-it", "10", "1.2", "0.015", "6"}
	if got := cfg.Args(); !slices.Equal(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestWorkerConfig_ArgsWholeSeconds(t *testing.T) {
	cfg := DefaultWorkerConfig()
	args := cfg.Args()
	if args[4] != "20" {
		t.Errorf("delay arg = %q, want %q", args[4], "20")
	}
	if args[5] != "0.01" {
		t.Errorf("typing speed arg = %q, want %q", args[5], "0.01")
	}
	if args[3] != "0" {
		t.Errorf("max turns arg = %q, want %q", args[3], "0")
	}
}

func TestParseSpeaker(t *testing.T) {
	tests := []struct {
		in      string
		want    Speaker
		wantErr bool
	}{
		{"a", SpeakerA, false},
		{"A", SpeakerA, false},
		{"bot1", SpeakerA, false},
		{"b", SpeakerB, false},
		{" Bot2 ", SpeakerB, false},
		{"bot3", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpeaker(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpeaker(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSpeaker(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorkerConfig)
		ok     bool
	}{
		{"defaults", func(*WorkerConfig) {}, true},
		{"empty topic", func(c *WorkerConfig) { c.Topic = "  " }, false},
		{"bad speaker", func(c *WorkerConfig) { c.FirstSpeaker = "bot9" }, false},
		{"empty model", func(c *WorkerConfig) { c.Model = "" }, false},
		{"negative turns", func(c *WorkerConfig) { c.MaxTurns = -1 }, false},
		{"negative delay", func(c *WorkerConfig) { c.Delay = -time.Second }, false},
		{"zero context", func(c *WorkerConfig) { c.ContextLimit = 0 }, false},
		{"zero delay ok", func(c *WorkerConfig) { c.Delay = 0; c.TypingSpeed = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWorkerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidWorker) {
				t.Errorf("Validate() = %v, want ErrInvalidWorker", err)
			}
		})
	}
}

func TestParseSeconds(t *testing.T) {
	d, err := ParseSeconds("0.01")
	if err != nil {
		t.Fatal(err)
	}
	if d != 10*time.Millisecond {
		t.Errorf("ParseSeconds(0.01) = %v", d)
	}
	if _, err := ParseSeconds("-1"); err == nil {
		t.Error("expected error for negative seconds")
	}
	if _, err := ParseSeconds("soon"); err == nil {
		t.Error("expected error for non-numeric seconds")
	}
}
