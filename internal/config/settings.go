package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/util"
)

// Settings is the on-disk configuration for `duet serve`.
type Settings struct {
	Worker   WorkerSettings   `toml:"worker" yaml:"worker"`
	Chat     ChatSettings     `toml:"chat" yaml:"chat"`
	Schedule ScheduleSettings `toml:"schedule" yaml:"schedule"`
	Panel    PanelSettings    `toml:"panel" yaml:"panel"`
	Log      LogSettings      `toml:"log" yaml:"log"`
}

// WorkerSettings describes how to launch the worker program.
type WorkerSettings struct {
	// Command is the executable followed by any fixed leading arguments,
	// e.g. ["python3", "chat.py"]. The seven chat arguments are appended.
	Command []string `toml:"command" yaml:"command"`

	// Dir is the working directory of the worker. Empty means the cwd.
	Dir string `toml:"dir,omitempty" yaml:"dir,omitempty"`
}

// ChatSettings holds the default WorkerConfig.
type ChatSettings struct {
	Topic        string   `toml:"topic" yaml:"topic"`
	FirstSpeaker string   `toml:"first_speaker" yaml:"first_speaker"`
	Model        string   `toml:"model" yaml:"model"`
	MaxTurns     int      `toml:"max_turns" yaml:"max_turns"`
	Delay        Duration `toml:"delay" yaml:"delay"`
	TypingSpeed  Duration `toml:"typing_speed" yaml:"typing_speed"`
	ContextLimit int      `toml:"context_limit" yaml:"context_limit"`
	Temperature  float64  `toml:"temperature" yaml:"temperature"`
}

// ScheduleSettings holds the run window and the reconciliation interval.
type ScheduleSettings struct {
	StartHour   *int     `toml:"start_hour" yaml:"start_hour,omitempty"`
	StartMinute *int     `toml:"start_minute" yaml:"start_minute,omitempty"`
	StopHour    *int     `toml:"stop_hour" yaml:"stop_hour,omitempty"`
	StopMinute  *int     `toml:"stop_minute" yaml:"stop_minute,omitempty"`
	Interval    Duration `toml:"interval" yaml:"interval"`
}

// PanelSettings configures the control panel HTTP server.
type PanelSettings struct {
	Listen        string `toml:"listen" yaml:"listen"`
	AdminUsername string `toml:"admin_username,omitempty" yaml:"admin_username,omitempty"`
	AdminPassword string `toml:"admin_password,omitempty" yaml:"admin_password,omitempty"`
}

// LogSettings configures the in-memory log buffer.
type LogSettings struct {
	MaxLines int `toml:"max_lines" yaml:"max_lines"`
}

// Duration is a wrapper for time.Duration that supports TOML and YAML marshaling.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return d.Duration.String()
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() *Settings {
	w := DefaultWorkerConfig()
	return &Settings{
		Worker: WorkerSettings{
			Command: []string{"python3", "chat.py"},
		},
		Chat: ChatSettings{
			Topic:        w.Topic,
			FirstSpeaker: string(w.FirstSpeaker),
			Model:        w.Model,
			MaxTurns:     w.MaxTurns,
			Delay:        Duration{w.Delay},
			TypingSpeed:  Duration{w.TypingSpeed},
			ContextLimit: w.ContextLimit,
			Temperature:  w.Temperature,
		},
		Schedule: ScheduleSettings{
			Interval: Duration{constants.ScheduleInterval},
		},
		Panel: PanelSettings{
			Listen: constants.DefaultListenAddr,
		},
		Log: LogSettings{
			MaxLines: constants.DefaultLogLines,
		},
	}
}

// Load resolves settings with override resolution.
// Resolution order (later overrides earlier):
//  1. Built-in defaults
//  2. The settings file at path, if it exists (TOML, or YAML by extension)
//  3. CHAT_* environment variables
//
// Each layer merges with (not replaces) the previous. Chat and schedule
// keys written in the file are what the panel saved, so the environment
// does not override those; it only fills in what the file leaves out.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	var keys keySet
	if path != "" {
		override, defined, err := decodeFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		mergeSettings(s, override, defined)
		keys = defined
	}

	applyEnv(s, os.LookupEnv, keys)

	if len(s.Worker.Command) == 0 {
		return nil, fmt.Errorf("worker command is empty")
	}
	if _, err := s.WorkerConfig(); err != nil {
		return nil, err
	}
	if err := s.Window().Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFile decodes a settings file without defaults or env overrides.
func ReadFile(path string) (*Settings, error) {
	s, _, err := decodeFile(path)
	return s, err
}

// keySet holds the "section.key" names a settings file sets explicitly.
type keySet map[string]bool

func (k keySet) has(name string) bool {
	return k[name]
}

// window reports whether the file sets any part of the schedule window.
func (k keySet) window() bool {
	return k["schedule.start_hour"] || k["schedule.start_minute"] ||
		k["schedule.stop_hour"] || k["schedule.stop_minute"]
}

func decodeFile(path string) (*Settings, keySet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var s Settings
	keys := keySet{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
		if err == nil {
			var raw map[string]map[string]any
			err = yaml.Unmarshal(data, &raw)
			for section, fields := range raw {
				for name := range fields {
					keys[section+"."+name] = true
				}
			}
		}
	} else {
		var md toml.MetaData
		md, err = toml.Decode(string(data), &s)
		for _, key := range md.Keys() {
			keys[key.String()] = true
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, keys, nil
}

// WorkerConfig converts the chat section into a validated WorkerConfig.
func (s *Settings) WorkerConfig() (WorkerConfig, error) {
	speaker, err := ParseSpeaker(s.Chat.FirstSpeaker)
	if err != nil {
		return WorkerConfig{}, err
	}
	w := WorkerConfig{
		Topic:        s.Chat.Topic,
		FirstSpeaker: speaker,
		Model:        s.Chat.Model,
		MaxTurns:     s.Chat.MaxTurns,
		Delay:        s.Chat.Delay.Duration,
		TypingSpeed:  s.Chat.TypingSpeed.Duration,
		ContextLimit: s.Chat.ContextLimit,
		Temperature:  s.Chat.Temperature,
	}
	if err := w.Validate(); err != nil {
		return WorkerConfig{}, err
	}
	return w, nil
}

// Window returns the schedule window from the schedule section.
func (s *Settings) Window() Window {
	return Window{
		StartHour:   s.Schedule.StartHour,
		StartMinute: s.Schedule.StartMinute,
		StopHour:    s.Schedule.StopHour,
		StopMinute:  s.Schedule.StopMinute,
	}.Clone()
}

// Control builds the initial shared control state.
func (s *Settings) Control() (Control, error) {
	w, err := s.WorkerConfig()
	if err != nil {
		return Control{}, err
	}
	return Control{Worker: w, Window: s.Window()}, nil
}

// SetControl copies a control state back into the chat and schedule sections.
func (s *Settings) SetControl(c Control) {
	s.Chat = ChatSettings{
		Topic:        c.Worker.Topic,
		FirstSpeaker: string(c.Worker.FirstSpeaker),
		Model:        c.Worker.Model,
		MaxTurns:     c.Worker.MaxTurns,
		Delay:        Duration{c.Worker.Delay},
		TypingSpeed:  Duration{c.Worker.TypingSpeed},
		ContextLimit: c.Worker.ContextLimit,
		Temperature:  c.Worker.Temperature,
	}
	w := c.Window.Clone()
	s.Schedule.StartHour = w.StartHour
	s.Schedule.StartMinute = w.StartMinute
	s.Schedule.StopHour = w.StopHour
	s.Schedule.StopMinute = w.StopMinute
}

// Encode renders settings in the format implied by path's extension.
func Encode(path string, s *Settings) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(s)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveControl persists the chat selection and schedule window into the
// settings file at path, keeping every other section as it is on disk.
// Writers are serialized with a file lock and the file is replaced atomically.
func SaveControl(path string, c Control) error {
	unlock, err := lockSettings(path)
	if err != nil {
		return err
	}
	defer unlock()

	s, err := ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		s = &Settings{}
	}
	s.SetControl(c)

	data, err := Encode(path, s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0600)
}

// lockSettings acquires an exclusive lock adjacent to the settings file.
func lockSettings(path string) (func(), error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), constants.SettingsLockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquiring settings lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("timeout waiting for settings lock")
	}
	return func() { _ = lock.Unlock() }, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// mergeSettings merges override into base. Non-zero values are applied,
// and so are zero numbers the file sets explicitly. The schedule fields are
// taken from the file as a unit when any of them is present there.
func mergeSettings(base, override *Settings, keys keySet) {
	if override == nil {
		return
	}

	if len(override.Worker.Command) > 0 {
		base.Worker.Command = append([]string(nil), override.Worker.Command...)
	}
	if override.Worker.Dir != "" {
		base.Worker.Dir = override.Worker.Dir
	}

	c := override.Chat
	if c.Topic != "" {
		base.Chat.Topic = c.Topic
	}
	if c.FirstSpeaker != "" {
		base.Chat.FirstSpeaker = c.FirstSpeaker
	}
	if c.Model != "" {
		base.Chat.Model = c.Model
	}
	if c.MaxTurns != 0 || keys.has("chat.max_turns") {
		base.Chat.MaxTurns = c.MaxTurns
	}
	if c.Delay.Duration != 0 || keys.has("chat.delay") {
		base.Chat.Delay = c.Delay
	}
	if c.TypingSpeed.Duration != 0 || keys.has("chat.typing_speed") {
		base.Chat.TypingSpeed = c.TypingSpeed
	}
	if c.ContextLimit != 0 {
		base.Chat.ContextLimit = c.ContextLimit
	}
	if c.Temperature != 0 || keys.has("chat.temperature") {
		base.Chat.Temperature = c.Temperature
	}

	sc := override.Schedule
	if keys.window() || sc.StartHour != nil || sc.StartMinute != nil || sc.StopHour != nil || sc.StopMinute != nil {
		base.Schedule.StartHour = cloneInt(sc.StartHour)
		base.Schedule.StartMinute = cloneInt(sc.StartMinute)
		base.Schedule.StopHour = cloneInt(sc.StopHour)
		base.Schedule.StopMinute = cloneInt(sc.StopMinute)
	}
	if sc.Interval.Duration != 0 {
		base.Schedule.Interval = sc.Interval
	}

	if override.Panel.Listen != "" {
		base.Panel.Listen = override.Panel.Listen
	}
	if override.Panel.AdminUsername != "" {
		base.Panel.AdminUsername = override.Panel.AdminUsername
	}
	if override.Panel.AdminPassword != "" {
		base.Panel.AdminPassword = override.Panel.AdminPassword
	}

	if override.Log.MaxLines != 0 {
		base.Log.MaxLines = override.Log.MaxLines
	}
}

// applyEnv layers the CHAT_* environment variables over s. Malformed numbers
// are ignored; a malformed or empty schedule variable clears that field.
// Chat keys in fileKeys are left alone, and so is the whole window when the
// file sets any part of it.
func applyEnv(s *Settings, lookup func(string) (string, bool), fileKeys keySet) {
	get := func(name, key string) (string, bool) {
		if key != "" && fileKeys.has(key) {
			return "", false
		}
		return lookup(name)
	}
	str := func(name, key string, dst *string) {
		if v, ok := get(name, key); ok && v != "" {
			*dst = v
		}
	}
	num := func(name, key string, dst *int) {
		if v, ok := get(name, key); ok && v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	secs := func(name, key string, dst *Duration) {
		if v, ok := get(name, key); ok && v != "" {
			if d, err := ParseSeconds(v); err == nil {
				dst.Duration = d
			}
		}
	}

	num("CHAT_LOG_MAX_LINES", "", &s.Log.MaxLines)
	str("CHAT_DEFAULT_TOPIC", "chat.topic", &s.Chat.Topic)
	str("CHAT_DEFAULT_MODEL", "chat.model", &s.Chat.Model)
	str("CHAT_DEFAULT_FIRST", "chat.first_speaker", &s.Chat.FirstSpeaker)
	num("CHAT_DEFAULT_MAX_TURNS", "chat.max_turns", &s.Chat.MaxTurns)
	secs("CHAT_DEFAULT_DELAY", "chat.delay", &s.Chat.Delay)
	secs("CHAT_DEFAULT_TYPING_SPEED", "chat.typing_speed", &s.Chat.TypingSpeed)
	num("CHAT_DEFAULT_CONTEXT", "chat.context_limit", &s.Chat.ContextLimit)
	if !fileKeys.window() {
		for name, dst := range map[string]**int{
			"CHAT_DEFAULT_START_HOUR":   &s.Schedule.StartHour,
			"CHAT_DEFAULT_START_MINUTE": &s.Schedule.StartMinute,
			"CHAT_DEFAULT_STOP_HOUR":    &s.Schedule.StopHour,
			"CHAT_DEFAULT_STOP_MINUTE":  &s.Schedule.StopMinute,
		} {
			if v, ok := lookup(name); ok {
				*dst = parseOptionalInt(v)
			}
		}
	}
	str("CHAT_ADMIN_USERNAME", "", &s.Panel.AdminUsername)
	str("CHAT_ADMIN_PASSWORD", "", &s.Panel.AdminPassword)
}

func parseOptionalInt(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
