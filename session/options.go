package session

import (
	"context"
	"time"

	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/observability"
	"github.com/kbukum/speechbridge/recognizer"
)

// Remediator offers the user a fix for a fatal recognizer error, such as
// installing offline language files.
type Remediator interface {
	OfferOfflineInstall(ctx context.Context, locale recognizer.Locale) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLocale sets the initial locale.
func WithLocale(l recognizer.Locale) Option {
	return func(c *Controller) { c.locale = l }
}

// WithRecognizerOptions sets the options passed to every handle.
func WithRecognizerOptions(o recognizer.Options) Option {
	return func(c *Controller) { c.opts = o }
}

// WithRemediator sets the fatal-error remediation.
func WithRemediator(r Remediator) Option {
	return func(c *Controller) { c.remediator = r }
}

// WithMetrics sets the metrics instruments.
func WithMetrics(m *observability.SessionMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStopTimeout bounds how long Stop waits for the recognizer to stop.
// A recognizer that does not stop in time is discarded.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stopTimeout = d
		}
	}
}

// WithLogger overrides the controller's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}
