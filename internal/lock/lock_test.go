package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	stateDir := "/tmp/test-state"
	l := New(stateDir)

	expectedPath := filepath.Join(stateDir, ".runtime", "panel.lock")
	if l.Path() != expectedPath {
		t.Errorf("Path() = %q, want %q", l.Path(), expectedPath)
	}
}

func TestLockInfo_IsStale(t *testing.T) {
	tests := []struct {
		name      string
		pid       int
		wantStale bool
	}{
		{"current process", os.Getpid(), false},
		{"invalid pid zero", 0, true},
		{"invalid pid negative", -1, true},
		{"non-existent pid", 999999999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &LockInfo{PID: tt.pid}
			if got := info.IsStale(); got != tt.wantStale {
				t.Errorf("IsStale() = %v, want %v", got, tt.wantStale)
			}
		})
	}
}

func TestLock_AcquireAndRelease(t *testing.T) {
	l := New(t.TempDir())

	if err := l.Acquire("127.0.0.1:5000"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	info, err := l.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", info.PID, os.Getpid())
	}
	if info.Listen != "127.0.0.1:5000" {
		t.Errorf("Listen = %q", info.Listen)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := l.Read(); !errors.Is(err, ErrNotLocked) {
		t.Errorf("Read() after release = %v, want ErrNotLocked", err)
	}
}

func TestLock_AcquireRefreshesOwnLock(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Acquire("a:1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire("b:2"); err != nil {
		t.Fatalf("re-Acquire() by owner = %v", err)
	}
	info, _ := l.Read()
	if info.Listen != "b:2" {
		t.Errorf("Listen = %q, want refreshed value", info.Listen)
	}
}

func writeLock(t *testing.T, l *Lock, info LockInfo) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(l.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(info)
	if err := os.WriteFile(l.Path(), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLock_AcquireHeldByLiveProcess(t *testing.T) {
	l := New(t.TempDir())
	// PID 1 is always alive on unix and never us.
	writeLock(t, l, LockInfo{PID: 1, AcquiredAt: time.Now(), Listen: "x:1"})

	err := l.Acquire("y:2")
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Acquire() = %v, want ErrLocked", err)
	}
	if s := l.Status(); !strings.Contains(s, "locked by PID 1") {
		t.Errorf("Status() = %q", s)
	}
}

func TestLock_AcquireStaleLock(t *testing.T) {
	l := New(t.TempDir())
	writeLock(t, l, LockInfo{PID: 999999999, AcquiredAt: time.Now()})

	if s := l.Status(); !strings.HasPrefix(s, "stale") {
		t.Errorf("Status() = %q, want stale", s)
	}
	if err := l.Acquire("z:3"); err != nil {
		t.Fatalf("Acquire() over stale lock = %v", err)
	}
	info, _ := l.Read()
	if info.PID != os.Getpid() {
		t.Errorf("PID = %d after takeover", info.PID)
	}
}

func TestLock_AcquireInvalidLock(t *testing.T) {
	l := New(t.TempDir())
	if err := os.MkdirAll(filepath.Dir(l.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(l.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Read(); !errors.Is(err, ErrInvalidLock) {
		t.Errorf("Read() = %v, want ErrInvalidLock", err)
	}
	if err := l.Acquire("a:1"); err != nil {
		t.Errorf("Acquire() over corrupt lock = %v", err)
	}
}

func TestLock_StatusUnlocked(t *testing.T) {
	if s := New(t.TempDir()).Status(); s != "unlocked" {
		t.Errorf("Status() = %q, want unlocked", s)
	}
}

func TestLock_ReleaseNonExistent(t *testing.T) {
	if err := New(t.TempDir()).Release(); err != nil {
		t.Errorf("Release() = %v", err)
	}
}

func TestLock_AcquireConcurrent(t *testing.T) {
	dir := t.TempDir()
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() { errs <- New(dir).Acquire("127.0.0.1:5000") }()
	}
	for i := 0; i < 4; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Acquire() = %v", err)
		}
	}
	if info, err := New(dir).Read(); err != nil || info.PID != os.Getpid() {
		t.Errorf("Read() = %+v, %v", info, err)
	}
}

func TestProcessExists(t *testing.T) {
	if !processExists(os.Getpid()) {
		t.Error("current process should exist")
	}
	if processExists(0) {
		t.Error("pid 0 should not exist")
	}
}
