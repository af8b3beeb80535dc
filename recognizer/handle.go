package recognizer

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Backend.Create when no recognition service is
// present.
var ErrUnavailable = errors.New("speech recognition service unavailable")

// Handle wraps one native recognizer.
//
// Start begins one utterance; the handle emits events until a terminal one.
// Stop asks for graceful termination; a terminal event still follows.
// Destroy releases the resource and closes Events; it is idempotent.
type Handle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Destroy()
	Events() <-chan Event
}

// Backend creates handles for one recognition service.
type Backend interface {
	// Name returns the backend's registered name.
	Name() string
	// IsAvailable reports whether the recognition service is present.
	IsAvailable(ctx context.Context) bool
	// Create builds a handle configured for locale and opts.
	Create(ctx context.Context, locale Locale, opts Options) (Handle, error)
}

// DestroyHandle destroys h; a nil handle is a no-op.
func DestroyHandle(h Handle) {
	if h != nil {
		h.Destroy()
	}
}
