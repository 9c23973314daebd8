// Package buffer holds the local task list a user builds up before asking
// for an analysis, together with the form-entry path that feeds it.
package buffer

import (
	"sync"

	"github.com/phrazzld/taskrank/internal/domain"
)

// Buffer is an ordered, append-only collection of task records. It is owned
// by whoever constructs it and passed explicitly to the code that needs it.
type Buffer struct {
	mu    sync.RWMutex
	tasks []domain.TaskRecord
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append coerces out-of-range fields to their defaults and adds the task to
// the end of the buffer. Nothing else is validated.
func (b *Buffer) Append(task domain.TaskRecord) {
	task = task.Normalize()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, task)
}

// Snapshot returns the tasks in insertion order as of the call. The returned
// slice is a copy and is safe to hand to other goroutines.
func (b *Buffer) Snapshot() []domain.TaskRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.TaskRecord, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Len returns the number of buffered tasks.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = nil
}
