package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/kbukum/speechbridge/errors"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/observability"
	"github.com/kbukum/speechbridge/recognizer"
)

const (
	serviceName = "speech recognition service"

	defaultStopTimeout = 5 * time.Second
)

// Controller owns one recognition session. It is safe for concurrent use.
//
// Command contexts bound the command only; handles outlive them and
// automatic restarts run on the controller's own context.
type Controller struct {
	backend    recognizer.Backend
	opts       recognizer.Options
	remediator Remediator
	metrics    *observability.SessionMetrics
	log        *logger.Logger

	// stopTimeout bounds a handle stop, which runs under mu.
	stopTimeout time.Duration

	runCtx    context.Context
	cancelRun context.CancelFunc

	mu            sync.Mutex
	state         State
	locale        recognizer.Locale
	handle        recognizer.Handle
	generation    uint64
	initialized   bool
	isAvailable   bool
	isUserAborted bool
	text          string
	remediating   bool

	// dispatchMu is acquired before mu is released, so subscribers see
	// events in the order the controller produced them.
	dispatchMu  sync.Mutex
	subMu       sync.RWMutex
	subscribers map[uint64]Listener
	nextSubID   uint64

	// pumps counts handle pumps and running remediations; Destroy waits on it.
	pumps sync.WaitGroup
}

// pending collects the side effects of one locked step. They run after the
// session lock is released.
type pending struct {
	events    []Event
	remediate bool
	locale    recognizer.Locale
}

func (p *pending) add(evs ...Event) { p.events = append(p.events, evs...) }

// New creates a controller over backend.
func New(backend recognizer.Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:     backend,
		opts:        recognizer.DefaultOptions(),
		locale:      recognizer.DefaultLocale,
		metrics:     observability.NopSessionMetrics(),
		stopTimeout: defaultStopTimeout,
		log:         logger.Get("session"),
		subscribers: make(map[uint64]Listener),
	}
	for _, o := range opts {
		o(c)
	}
	c.runCtx, c.cancelRun = context.WithCancel(context.Background())
	return c
}

// Subscribe registers l for session events and returns its cancel func.
func (c *Controller) Subscribe(l Listener) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = l
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

// Initialize queries availability, creates the first handle and reports the
// current locale and availability. Calling it again re-queries and re-reports.
func (c *Controller) Initialize(ctx context.Context) (bool, error) {
	c.mu.Lock()
	p := &pending{}
	defer c.release(p)

	if c.state == StateDestroyed {
		return false, errDestroyed()
	}
	c.initializeLocked(ctx, p)
	return c.isAvailable, nil
}

// Listen starts a listening attempt. A non-nil locale replaces the current
// one and forces a fresh handle, as does listening while already listening.
// Listening before Initialize initializes first.
func (c *Controller) Listen(ctx context.Context, locale *recognizer.Locale) error {
	c.mu.Lock()
	p := &pending{}
	defer c.release(p)

	if c.state == StateDestroyed {
		return errDestroyed()
	}
	if !c.initialized {
		c.initializeLocked(ctx, p)
	}
	if !c.isAvailable {
		return apperrors.ServiceUnavailable(serviceName)
	}

	c.isUserAborted = false
	switch {
	case locale != nil:
		c.locale = *locale
		c.destroyHandleLocked()
	case c.state == StateListening || c.state == StateStopping:
		c.destroyHandleLocked()
	}
	return c.startLocked(ctx, false)
}

// Stop ends the current attempt and disables automatic restart. With no
// live attempt it only sets the abort flag.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	p := &pending{}
	defer c.release(p)

	if c.state == StateDestroyed {
		return errDestroyed()
	}
	c.isUserAborted = true
	if c.handle == nil || c.state != StateListening {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	defer cancel()
	if err := c.handle.Stop(stopCtx); err != nil {
		c.log.Warn("recognizer stop failed, discarding handle", c.fields(logger.ErrorFields("stop", err)))
		c.destroyHandleLocked()
		c.state = StateIdle
		return apperrors.Internal(fmt.Errorf("stop recognizer: %w", err))
	}
	c.state = StateStopping
	c.log.Debug("stop requested", c.fields(nil))
	return nil
}

// ChangeLocale tears down the handle and recreates it under locale.
// Automatic restart stays disabled until the next Listen.
func (c *Controller) ChangeLocale(ctx context.Context, locale recognizer.Locale) error {
	c.mu.Lock()
	p := &pending{}
	defer c.release(p)

	if c.state == StateDestroyed {
		return errDestroyed()
	}
	c.isUserAborted = true
	c.destroyHandleLocked()
	c.locale = locale
	c.state = StateIdle

	if !c.initialized {
		c.initializeLocked(ctx, p)
		return nil
	}

	var err error
	if c.isAvailable {
		if cerr := c.createHandleLocked(ctx); cerr != nil {
			err = createError(cerr)
		}
	}
	p.add(currentLocale(c.locale))
	c.log.Info("locale changed", c.fields(nil))
	return err
}

// Destroy releases the handle. Every later command fails with CONFLICT.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return
	}
	c.destroyHandleLocked()
	c.state = StateDestroyed
	c.cancelRun()
	c.mu.Unlock()

	c.pumps.Wait()
	c.log.Info("session destroyed")
}

// Snapshot returns a copy of the session fields.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:       c.state,
		Locale:      c.locale.String(),
		Available:   c.isAvailable,
		UserAborted: c.isUserAborted,
		Text:        c.text,
		Generation:  c.generation,
		HasHandle:   c.handle != nil,
	}
}

func (c *Controller) initializeLocked(ctx context.Context, p *pending) {
	c.isAvailable = c.backend.IsAvailable(ctx)
	c.initialized = true
	if c.state == StateUninitialized {
		c.state = StateIdle
	}
	if c.isAvailable && c.handle == nil {
		if err := c.createHandleLocked(ctx); err != nil {
			c.log.Warn("initial recognizer creation failed", c.fields(logger.ErrorFields("create", err)))
			if errors.Is(err, recognizer.ErrUnavailable) {
				c.isAvailable = false
			}
		}
	}
	c.log.Info("session initialized", c.fields(map[string]interface{}{"available": c.isAvailable}))
	p.add(currentLocale(c.locale), availability(c.isAvailable))
}

func (c *Controller) startLocked(ctx context.Context, restart bool) error {
	if c.handle == nil {
		if err := c.createHandleLocked(ctx); err != nil {
			c.state = StateIdle
			return createError(err)
		}
	}

	c.text = ""
	if err := c.handle.Start(ctx); err != nil {
		c.log.Warn("recognizer start failed", c.fields(logger.ErrorFields("start", err)))
		c.destroyHandleLocked()
		c.state = StateIdle
		return apperrors.Internal(fmt.Errorf("start recognizer: %w", err))
	}
	c.state = StateListening
	c.metrics.RecordListen(ctx, c.locale.String(), restart)
	c.log.Debug("listening", c.fields(map[string]interface{}{"restart": restart}))
	return nil
}

func (c *Controller) createHandleLocked(ctx context.Context) error {
	h, err := c.backend.Create(ctx, c.locale, c.opts)
	if err != nil {
		return err
	}
	c.generation++
	c.handle = h
	c.metrics.RecordHandleCreated(c.runCtx)

	c.pumps.Add(1)
	go c.pump(h, c.generation)
	return nil
}

func (c *Controller) destroyHandleLocked() {
	if c.handle == nil {
		return
	}
	recognizer.DestroyHandle(c.handle)
	c.handle = nil
	c.metrics.RecordHandleDestroyed(c.runCtx)
}

// pump delivers one handle's events in order until the handle is destroyed.
func (c *Controller) pump(h recognizer.Handle, gen uint64) {
	defer c.pumps.Done()
	for ev := range h.Events() {
		c.handleEvent(gen, ev)
	}
}

func (c *Controller) handleEvent(gen uint64, ev recognizer.Event) {
	c.mu.Lock()
	p := &pending{}
	defer c.release(p)

	if c.handle == nil || gen != c.generation || (c.state != StateListening && c.state != StateStopping) {
		c.log.Debug("dropping recognizer event", c.fields(map[string]interface{}{
			"event":                ev.Type.String(),
			logger.FieldGeneration: gen,
		}))
		return
	}

	switch ev.Type {
	case recognizer.EventReadyForSpeech:
		p.add(availability(true))
	case recognizer.EventBeginningOfSpeech, recognizer.EventEndOfSpeech:
		c.log.Debug(ev.Type.String(), c.fields(nil))
	case recognizer.EventPartial:
		c.text = ev.Text
		c.metrics.RecordResult(c.runCtx, false)
		p.add(result(ev.Text, false))
	case recognizer.EventFinal:
		c.onFinalLocked(ev.Text, p)
	case recognizer.EventError:
		c.onErrorLocked(ev.Code, p)
	}
}

func (c *Controller) onFinalLocked(text string, p *pending) {
	c.text = text
	c.metrics.RecordResult(c.runCtx, true)
	p.add(result(text, true))

	if c.isUserAborted {
		c.state = StateIdle
		return
	}
	if err := c.startLocked(c.runCtx, true); err != nil {
		c.log.Warn("automatic restart failed", c.fields(logger.ErrorFields("restart", err)))
		p.add(availability(c.isAvailable))
	}
}

func (c *Controller) onErrorLocked(code recognizer.ErrorCode, p *pending) {
	class := code.Class()
	c.metrics.RecordRecognizerError(c.runCtx, code.String(), class.String())
	c.log.Info("recognizer error", c.fields(map[string]interface{}{
		logger.FieldErrorCode: code.String(),
		"class":               class.String(),
	}))
	c.state = StateIdle

	switch class {
	case recognizer.ClassRecoverable:
		c.metrics.RecordResult(c.runCtx, true)
		p.add(failure(code), result(c.text, true))
	case recognizer.ClassFatalSession:
		if c.remediator != nil && !c.remediating {
			c.remediating = true
			c.pumps.Add(1)
			p.remediate = true
			p.locale = c.locale
		}
		c.destroyHandleLocked()
		p.add(failure(code), availability(c.isAvailable))
	default:
		p.add(failure(code), availability(c.isAvailable))
	}
}

// release must be called with mu held. It hands over to dispatchMu, drops
// mu, then runs the collected side effects.
func (c *Controller) release(p *pending) {
	c.dispatchMu.Lock()
	c.mu.Unlock()
	defer c.dispatchMu.Unlock()

	if p.remediate {
		go c.remediate(p.locale)
	}
	if len(p.events) == 0 {
		return
	}

	c.subMu.RLock()
	ids := make([]uint64, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.subscribers[id])
	}
	c.subMu.RUnlock()

	for _, ev := range p.events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

// remediate runs the offline install offer off the command path. At most
// one runs at a time.
func (c *Controller) remediate(locale recognizer.Locale) {
	defer c.pumps.Done()
	err := c.remediator.OfferOfflineInstall(c.runCtx, locale)

	c.mu.Lock()
	c.remediating = false
	c.mu.Unlock()
	if err != nil {
		c.log.Warn("offline install offer failed", logger.ErrorFields("remediate", err))
	}
}

// fields must be called with mu held.
func (c *Controller) fields(extra map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{
		logger.FieldLocale:     c.locale.String(),
		logger.FieldState:      c.state.String(),
		logger.FieldGeneration: c.generation,
	}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func createError(err error) error {
	if errors.Is(err, recognizer.ErrUnavailable) {
		return apperrors.ServiceUnavailable(serviceName).WithCause(err)
	}
	return apperrors.Internal(fmt.Errorf("create recognizer: %w", err))
}

func errDestroyed() error {
	return apperrors.Conflict("The speech session has been destroyed.")
}
