// Package config provides the settings file, the launch-argument contract for
// the worker process, and the shared mutable control state read by the
// scheduler and written by the control panel.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Speaker identifies which of the two conversation bots talks first.
type Speaker string

const (
	// SpeakerA is the first bot. The worker knows it as "bot1".
	SpeakerA Speaker = "bot1"
	// SpeakerB is the second bot. The worker knows it as "bot2".
	SpeakerB Speaker = "bot2"
)

// ErrInvalidWorker is returned when a WorkerConfig fails validation.
var ErrInvalidWorker = errors.New("invalid worker config")

// ParseSpeaker accepts "a", "b", "bot1" or "bot2" (case-insensitive).
func ParseSpeaker(s string) (Speaker, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "bot1":
		return SpeakerA, nil
	case "b", "bot2":
		return SpeakerB, nil
	}
	return "", fmt.Errorf("%w: unknown speaker %q (want a|b)", ErrInvalidWorker, s)
}

// WorkerConfig holds the launch parameters for one worker run.
// A run never observes changes made after it was started.
type WorkerConfig struct {
	Topic        string
	FirstSpeaker Speaker
	Model        string
	// MaxTurns bounds the conversation; 0 means run until stopped.
	MaxTurns int
	// Delay is the pause between turns.
	Delay time.Duration
	// TypingSpeed is the per-character output pacing.
	TypingSpeed time.Duration
	// ContextLimit is how many prior turns the worker keeps per request.
	ContextLimit int
	Temperature  float64
}

// DefaultWorkerConfig returns the built-in chat defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Topic:        "Who are you?",
		FirstSpeaker: SpeakerA,
		Model:        "groq/compound-mini",
		MaxTurns:     0,
		Delay:        20 * time.Second,
		TypingSpeed:  10 * time.Millisecond,
		ContextLimit: 6,
		Temperature:  0.7,
	}
}

// Validate checks the invariants the worker relies on.
func (c WorkerConfig) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidWorker)
	}
	if c.FirstSpeaker != SpeakerA && c.FirstSpeaker != SpeakerB {
		return fmt.Errorf("%w: first speaker %q", ErrInvalidWorker, c.FirstSpeaker)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidWorker)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("%w: max turns must be >= 0, got %d", ErrInvalidWorker, c.MaxTurns)
	}
	if c.Delay < 0 || c.TypingSpeed < 0 {
		return fmt.Errorf("%w: delay and typing speed must be non-negative", ErrInvalidWorker)
	}
	if c.ContextLimit < 1 {
		return fmt.Errorf("%w: context limit must be positive, got %d", ErrInvalidWorker, c.ContextLimit)
	}
	return nil
}

// Args renders the positional arguments passed to the worker, in the fixed
// order topic, first_speaker, model, max_turns, delay, typing_speed,
// context_limit. Durations are written as decimal seconds.
func (c WorkerConfig) Args() []string {
	return []string{
		c.Topic,
		string(c.FirstSpeaker),
		c.Model,
		strconv.Itoa(c.MaxTurns),
		formatSeconds(c.Delay),
		formatSeconds(c.TypingSpeed),
		strconv.Itoa(c.ContextLimit),
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// ParseSeconds parses a decimal number of seconds ("20", "0.01").
func ParseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing seconds %q: %w", s, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("seconds must be non-negative, got %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}
