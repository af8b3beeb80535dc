package testutil

import (
	"sync"
	"testing"
)

// Recorder collects values delivered from any goroutine.
type Recorder[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{notify: make(chan struct{}, 1)}
}

// Record appends v. Its signature fits session.Listener and similar callbacks.
func (r *Recorder[T]) Record(v T) {
	r.mu.Lock()
	r.items = append(r.items, v)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// All returns a copy of the recorded values.
func (r *Recorder[T]) All() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Reset drops the recorded values.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// Filter returns the recorded values for which keep holds.
func (r *Recorder[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, v := range r.All() {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// WaitFor blocks until at least n values are recorded, failing t after
// DefaultWait.
func (r *Recorder[T]) WaitFor(t *testing.T, n int) []T {
	t.Helper()
	if !poll(func() bool { return r.Len() >= n }, DefaultWait) {
		t.Fatalf("expected at least %d recorded values, got %d: %+v", n, r.Len(), r.All())
	}
	return r.All()
}
