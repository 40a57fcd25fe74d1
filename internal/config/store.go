package config

import "sync"

// Control is the mutable state shared between the control panel (writer)
// and the window scheduler (reader).
type Control struct {
	Worker WorkerConfig
	Window Window
}

// Store guards a Control with a read/write lock. Pass it explicitly to the
// components that need it.
type Store struct {
	mu      sync.RWMutex
	control Control
}

// NewStore creates a Store holding initial.
func NewStore(initial Control) *Store {
	initial.Window = initial.Window.Clone()
	return &Store{control: initial}
}

// Snapshot returns a copy of the current control state.
func (s *Store) Snapshot() Control {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.control
	c.Window = c.Window.Clone()
	return c
}

// Worker returns the current worker config.
func (s *Store) Worker() WorkerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.control.Worker
}

// Window returns a copy of the current schedule window.
func (s *Store) Window() Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.control.Window.Clone()
}

// SetWorker replaces the worker config after validating it.
func (s *Store) SetWorker(w WorkerConfig) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.control.Worker = w
	return nil
}

// SetWindow replaces the schedule window after validating it.
func (s *Store) SetWindow(w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.control.Window = w.Clone()
	return nil
}

// Update applies fn to the control state under the write lock.
// The result is validated; on error the previous state is kept.
func (s *Store) Update(fn func(c *Control)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.control
	next.Window = next.Window.Clone()
	fn(&next)
	if err := next.Worker.Validate(); err != nil {
		return err
	}
	if err := next.Window.Validate(); err != nil {
		return err
	}
	s.control = next
	return nil
}
