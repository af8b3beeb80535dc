package azure

import (
	"context"
	"sync"

	"github.com/kbukum/speechbridge/recognizer"
)

const (
	eventBuffer = 64
	// terminalSlots stay free for settled events. Progress events are dropped
	// rather than block an SDK callback once only these remain.
	terminalSlots = 4
)

// eventQueue is a handle's event channel. Progress events never block;
// terminal events block until delivered or the queue is closed.
type eventQueue struct {
	mu     sync.Mutex
	closed bool
	ch     chan recognizer.Event
	done   chan struct{}
	once   sync.Once
}

func newEventQueue(size int) *eventQueue {
	return &eventQueue{
		ch:   make(chan recognizer.Event, size),
		done: make(chan struct{}),
	}
}

// progress queues ev unless the queue is closed or only the terminal slots
// are left. It reports whether ev was queued.
func (q *eventQueue) progress(ev recognizer.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.ch) >= cap(q.ch)-terminalSlots {
		return false
	}
	q.ch <- ev
	return true
}

// terminal queues ev, waiting for room if needed.
func (q *eventQueue) terminal(ev recognizer.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- ev:
	case <-q.done:
	}
}

func (q *eventQueue) close() {
	q.once.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}

func (q *eventQueue) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// stopGate orders the background stop that follows a settled utterance
// before the next start.
type stopGate struct {
	mu      sync.Mutex
	pending chan struct{}
}

// begin runs stop in the background after any stop already pending.
func (g *stopGate) begin(stop func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	prev := g.pending
	g.pending = ch
	g.mu.Unlock()

	go func() {
		defer close(ch)
		if prev != nil {
			<-prev
		}
		stop()
	}()
}

// wait blocks until every stop begun so far has returned.
func (g *stopGate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.pending
	g.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
