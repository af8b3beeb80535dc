package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/speechbridge/component"
)

// DefaultWait bounds the Eventually and WaitFor helpers.
const DefaultWait = 2 * time.Second

// CleanupFunc stops a component started by Setup.
type CleanupFunc func() error

// Setup starts c and returns a cleanup function that stops it.
func Setup(c component.Component) (CleanupFunc, error) {
	return SetupWithContext(context.Background(), c)
}

// SetupWithContext starts c with ctx and returns a cleanup function.
func SetupWithContext(ctx context.Context, c component.Component) (CleanupFunc, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return func() error { return c.Stop(ctx) }, nil
}

// THelper ties helpers to a testing.T.
type THelper struct {
	t   *testing.T
	ctx context.Context
}

// T wraps t.
func T(t *testing.T) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext sets the context used to start and stop components.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c and stops it when the test ends.
func (h *THelper) Setup(c component.Component) {
	h.t.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	h.t.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Eventually polls cond until it holds or DefaultWait passes.
func (h *THelper) Eventually(cond func() bool, msg string) {
	h.t.Helper()
	if !poll(cond, DefaultWait) {
		h.t.Fatalf("condition not met within %s: %s", DefaultWait, msg)
	}
}

// Never checks that cond stays false for d.
func (h *THelper) Never(cond func() bool, d time.Duration, msg string) {
	h.t.Helper()
	if poll(cond, d) {
		h.t.Fatalf("condition unexpectedly met: %s", msg)
	}
}

func poll(cond func() bool, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
