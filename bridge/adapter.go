package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/kbukum/speechbridge/errors"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/observability"
	"github.com/kbukum/speechbridge/recognizer"
	"github.com/kbukum/speechbridge/session"
	"github.com/kbukum/speechbridge/validation"
)

// Session is the controller surface the adapter drives.
type Session interface {
	Initialize(ctx context.Context) (bool, error)
	Listen(ctx context.Context, locale *recognizer.Locale) error
	Stop(ctx context.Context) error
	ChangeLocale(ctx context.Context, locale recognizer.Locale) error
	Subscribe(l session.Listener) func()
}

var _ Handler = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) { a.prefix = prefix }
}

// WithMetrics records method calls and notifications.
func WithMetrics(m *observability.SessionMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithLogger overrides the adapter's logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// Adapter translates method calls into session commands and session events
// into notifications.
type Adapter struct {
	session     Session
	channel     Channel
	prefix      string
	metrics     *observability.SessionMetrics
	log         *logger.Logger
	unsubscribe func()
}

// New creates an Adapter and subscribes it to sess.
func New(sess Session, ch Channel, opts ...Option) *Adapter {
	a := &Adapter{
		session: sess,
		channel: ch,
		prefix:  DefaultPrefix,
		metrics: observability.NopSessionMetrics(),
		log:     logger.Get("bridge"),
	}
	for _, o := range opts {
		o(a)
	}
	a.unsubscribe = sess.Subscribe(a.onEvent)
	return a
}

// Close stops forwarding session events.
func (a *Adapter) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Prefix returns the method-name prefix in use.
func (a *Adapter) Prefix() string { return a.prefix }

// Handle runs one inbound method call. Successful calls return true, except
// initialize which returns the service availability.
func (a *Adapter) Handle(ctx context.Context, call MethodCall) (any, error) {
	ctx, mc := observability.StartMethodCall(ctx, call.Method, call.RequestID, a.metrics)
	result, err := a.dispatch(ctx, call)
	mc.End(ctx, err)

	fields := map[string]interface{}{logger.FieldMethod: call.Method}
	if call.RequestID != "" {
		fields[logger.FieldRequestID] = call.RequestID
	}
	if err != nil {
		fields[logger.FieldError] = err.Error()
		a.log.Warn("method call failed", fields)
		return nil, err
	}
	a.log.Debug("method call handled", fields)
	return result, nil
}

func (a *Adapter) dispatch(ctx context.Context, call MethodCall) (any, error) {
	name, ok := strings.CutPrefix(call.Method, a.prefix)
	if !ok {
		return nil, errors.NotImplemented(call.Method)
	}

	switch name {
	case MethodInitialize:
		return a.session.Initialize(ctx)

	case MethodListen:
		locale, err := parseLocaleArgs(call.Args, false)
		if err != nil {
			return nil, err
		}
		if err := a.session.Listen(ctx, locale); err != nil {
			return nil, err
		}
		return true, nil

	case MethodStop, MethodCancel:
		if err := a.session.Stop(ctx); err != nil {
			return nil, err
		}
		return true, nil

	case MethodChangeLocale:
		locale, err := parseLocaleArgs(call.Args, true)
		if err != nil {
			return nil, err
		}
		if err := a.session.ChangeLocale(ctx, *locale); err != nil {
			return nil, err
		}
		return true, nil
	}
	return nil, errors.NotImplemented(call.Method)
}

// parseLocaleArgs accepts null, "en_US" or {"lang":"en","country":"US"}.
func parseLocaleArgs(raw json.RawMessage, required bool) (*recognizer.Locale, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if required {
			return nil, errors.InvalidInput("args", "a locale is required")
		}
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" && !required {
			return nil, nil
		}
		loc, err := recognizer.ParseLocale(s)
		if err != nil {
			return nil, errors.InvalidInput("args", err.Error())
		}
		return &loc, nil
	}

	var args LocaleArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.InvalidInput("args", "expected a locale string or {lang, country}")
	}
	if err := validation.Validate(args); err != nil {
		return nil, err
	}
	loc, err := recognizer.NewLocale(args.Lang, args.Country)
	if err != nil {
		return nil, errors.InvalidInput("args", err.Error())
	}
	return &loc, nil
}

func (a *Adapter) onEvent(ev session.Event) {
	n, ok := a.notification(ev)
	if !ok {
		return
	}
	ctx := context.Background()
	a.metrics.RecordNotification(ctx, n.Method)
	if err := a.channel.Notify(ctx, n); err != nil {
		a.log.Warn("notification not delivered", map[string]interface{}{
			logger.FieldMethod: n.Method,
			logger.FieldError:  err.Error(),
		})
	}
}

// notification maps a session event; partial results have no notification.
func (a *Adapter) notification(ev session.Event) (Notification, bool) {
	switch ev.Kind {
	case session.EventCurrentLocale:
		return Notification{Method: a.prefix + NotifyCurrentLocale, Args: ev.Locale.String()}, true
	case session.EventAvailability:
		return Notification{Method: a.prefix + NotifyAvailability, Args: ev.Available}, true
	case session.EventResult:
		if !ev.Completed {
			return Notification{}, false
		}
		return Notification{Method: a.prefix + NotifyResult, Args: ev.Text}, true
	case session.EventError:
		return Notification{Method: a.prefix + NotifyError, Args: true}, true
	}
	return Notification{}, false
}
