// Package logbuf provides a bounded, thread-safe history of worker output
// lines. Producers (the supervisor's reader) append; consumers (the control
// panel) take point-in-time snapshots. It is a best-effort history, not a
// durable log: once full, the oldest line is evicted.
package logbuf

import (
	"sync"

	"github.com/xucongyong/duet/internal/constants"
)

// Buffer is a fixed-capacity ring of lines. It is safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	head  int // index of the oldest line
	size  int
}

// New creates a Buffer holding at most capacity lines.
// A non-positive capacity falls back to constants.DefaultLogLines.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = constants.DefaultLogLines
	}
	return &Buffer{lines: make([]string, capacity)}
}

// Append adds one line, evicting the oldest line when the buffer is full.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.push(line)
}

// Extend appends lines in order as a single critical section.
func (b *Buffer) Extend(lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range lines {
		b.push(line)
	}
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.head = 0
	b.size = 0
}

// Snapshot returns an independent copy of the current contents, oldest first.
func (b *Buffer) Snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, b.size)
	n := copy(out, b.lines[b.head:min(b.head+b.size, len(b.lines))])
	copy(out[n:], b.lines[:b.size-n])
	return out
}

// Len returns the number of lines currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.lines)
}

// push must be called with mu held.
func (b *Buffer) push(line string) {
	capacity := len(b.lines)
	if b.size < capacity {
		b.lines[(b.head+b.size)%capacity] = line
		b.size++
		return
	}
	b.lines[b.head] = line
	b.head = (b.head + 1) % capacity
}
