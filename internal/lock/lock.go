// Package lock keeps two `duet serve` processes from supervising workers
// out of the same state directory.
//
// The lock is a JSON file at <state>/.runtime/panel.lock naming the owner's
// PID, host, listen address and start time. A lock whose PID is gone is
// stale and is replaced by the next Acquire.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/util"
)

var (
	ErrLocked      = errors.New("state directory is locked by another panel")
	ErrNotLocked   = errors.New("state directory is not locked")
	ErrInvalidLock = errors.New("invalid lock file")
)

// LockInfo is the content of the lock file.
type LockInfo struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	Listen     string    `json:"listen,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
}

// IsStale reports whether the owning process is gone.
func (i *LockInfo) IsStale() bool {
	return !processExists(i.PID)
}

func (i *LockInfo) ours() bool {
	return i.PID == os.Getpid()
}

func (i *LockInfo) String() string {
	return fmt.Sprintf("PID %d (listen: %s)", i.PID, i.Listen)
}

// Lock is the panel lock of one state directory.
type Lock struct {
	path  string
	guard *flock.Flock // serializes Acquire between processes
}

func New(stateDir string) *Lock {
	path := filepath.Join(stateDir, constants.DirRuntime, constants.FilePanelLock)
	return &Lock{path: path, guard: flock.New(path + ".guard")}
}

func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock for a panel listening on listen. It returns
// ErrLocked while another live process holds it. Stale and unreadable lock
// files are replaced, and a second Acquire by the owner refreshes the file.
func (l *Lock) Acquire(listen string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	if err := l.guard.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", l.guard.Path(), err)
	}
	defer func() { _ = l.guard.Unlock() }()

	holder, err := l.holder()
	if err != nil {
		return err
	}
	if holder != nil && !holder.ours() {
		return fmt.Errorf("%w: %s, acquired %s", ErrLocked, holder, holder.AcquiredAt.Format(time.RFC3339))
	}

	hostname, _ := os.Hostname()
	info := LockInfo{PID: os.Getpid(), AcquiredAt: time.Now(), Listen: listen, Hostname: hostname}
	if err := util.AtomicWriteJSON(l.path, info); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

// Release removes the lock file. A missing file is not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

// Read returns the lock file content without changing anything.
func (l *Lock) Read() (*LockInfo, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, ErrNotLocked
	}
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLock, err)
	}
	return &info, nil
}

// Status describes the lock for `duet status`.
func (l *Lock) Status() string {
	info, err := l.Read()
	switch {
	case errors.Is(err, ErrNotLocked):
		return "unlocked"
	case err != nil:
		return "error: " + err.Error()
	case info.IsStale():
		return fmt.Sprintf("stale (dead PID %d)", info.PID)
	case info.ours():
		return "locked (by us)"
	}
	return "locked by " + info.String()
}

// holder returns the live owner of the lock, or nil when it is free.
func (l *Lock) holder() (*LockInfo, error) {
	info, err := l.Read()
	switch {
	case errors.Is(err, ErrNotLocked):
		return nil, nil
	case errors.Is(err, ErrInvalidLock):
		// Half-written by a panel that crashed.
		return nil, l.Release()
	case err != nil:
		return nil, err
	case info.IsStale():
		return nil, l.Release()
	}
	return info, nil
}
