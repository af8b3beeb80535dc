package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/speechbridge/recognizer"
)

const fakeEventBuffer = 64

// FakeBackend is a scripted recognizer.Backend.
type FakeBackend struct {
	mu        sync.Mutex
	name      string
	available bool
	createErr error
	startErr  error
	onStart   func(h *FakeHandle)
	handles   []*FakeHandle
}

// NewFakeBackend returns an available backend named "fake".
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{name: "fake", available: true}
}

// Name implements recognizer.Backend.
func (b *FakeBackend) Name() string { return b.name }

// IsAvailable implements recognizer.Backend.
func (b *FakeBackend) IsAvailable(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Create implements recognizer.Backend.
func (b *FakeBackend) Create(ctx context.Context, locale recognizer.Locale, opts recognizer.Options) (recognizer.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return nil, recognizer.ErrUnavailable
	}
	if b.createErr != nil {
		return nil, b.createErr
	}
	h := &FakeHandle{
		Locale:   locale,
		Options:  opts,
		events:   make(chan recognizer.Event, fakeEventBuffer),
		startErr: b.startErr,
		onStart:  b.onStart,
	}
	b.handles = append(b.handles, h)
	return h, nil
}

// SetAvailable changes what IsAvailable reports and whether Create succeeds.
func (b *FakeBackend) SetAvailable(ok bool) {
	b.mu.Lock()
	b.available = ok
	b.mu.Unlock()
}

// FailCreate makes later Create calls fail with err; nil clears it.
func (b *FakeBackend) FailCreate(err error) {
	b.mu.Lock()
	b.createErr = err
	b.mu.Unlock()
}

// FailStart makes handles created afterwards fail Start with err.
func (b *FakeBackend) FailStart(err error) {
	b.mu.Lock()
	b.startErr = err
	b.mu.Unlock()
}

// OnStart installs a hook run on every Start of handles created afterwards,
// e.g. to emit ReadyForSpeech.
func (b *FakeBackend) OnStart(fn func(h *FakeHandle)) {
	b.mu.Lock()
	b.onStart = fn
	b.mu.Unlock()
}

// Handles returns every handle created so far, oldest first.
func (b *FakeBackend) Handles() []*FakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*FakeHandle, len(b.handles))
	copy(out, b.handles)
	return out
}

// Created returns the number of handles created.
func (b *FakeBackend) Created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

// Last returns the most recently created handle, or nil.
func (b *FakeBackend) Last() *FakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.handles) == 0 {
		return nil
	}
	return b.handles[len(b.handles)-1]
}

// Live returns the handles not yet destroyed.
func (b *FakeBackend) Live() []*FakeHandle {
	var out []*FakeHandle
	for _, h := range b.Handles() {
		if !h.Destroyed() {
			out = append(out, h)
		}
	}
	return out
}

// FakeHandle is a recognizer.Handle driven by the test.
type FakeHandle struct {
	Locale  recognizer.Locale
	Options recognizer.Options

	mu        sync.Mutex
	events    chan recognizer.Event
	destroyed bool
	starts    int
	stops     int
	destroys  int
	startErr  error
	onStart   func(h *FakeHandle)
	stopBlock chan struct{}
}

// Start implements recognizer.Handle.
func (h *FakeHandle) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return fmt.Errorf("start on destroyed handle")
	}
	if h.startErr != nil {
		h.mu.Unlock()
		return h.startErr
	}
	h.starts++
	hook := h.onStart
	h.mu.Unlock()

	if hook != nil {
		hook(h)
	}
	return nil
}

// Stop implements recognizer.Handle. It records the call only; the test
// emits the terminal event.
func (h *FakeHandle) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.stops++
	block := h.stopBlock
	h.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BlockStop makes Stop wait until ch is closed or its context ends.
func (h *FakeHandle) BlockStop(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopBlock = ch
}

// Destroy implements recognizer.Handle.
func (h *FakeHandle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroys++
	if h.destroyed {
		return
	}
	h.destroyed = true
	close(h.events)
}

// Events implements recognizer.Handle.
func (h *FakeHandle) Events() <-chan recognizer.Event { return h.events }

// Emit delivers ev as if the platform called back. It reports false when
// the handle is already destroyed.
func (h *FakeHandle) Emit(evs ...recognizer.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return false
	}
	for _, ev := range evs {
		h.events <- ev
	}
	return true
}

// Starts returns how many times Start succeeded.
func (h *FakeHandle) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// Stops returns how many times Stop was called.
func (h *FakeHandle) Stops() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

// Destroys returns how many times Destroy was called.
func (h *FakeHandle) Destroys() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroys
}

// Destroyed reports whether the handle was destroyed.
func (h *FakeHandle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}
