package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/speechbridge/component"
	apperrors "github.com/kbukum/speechbridge/errors"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/recognizer"
	"github.com/kbukum/speechbridge/session"
	"github.com/kbukum/speechbridge/testutil"
)

type fixture struct {
	ctrl    *session.Controller
	comp    *session.Component
	backend *testutil.FakeBackend
	events  *testutil.Recorder[session.Event]
}

func newFixture(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()
	backend := testutil.NewFakeBackend()
	opts = append([]session.Option{session.WithLogger(logger.NewNop())}, opts...)
	ctrl := session.New(backend, opts...)
	comp := session.NewComponent(ctrl)
	testutil.T(t).Setup(comp)

	events := testutil.NewRecorder[session.Event]()
	ctrl.Subscribe(events.Record)
	return &fixture{ctrl: ctrl, comp: comp, backend: backend, events: events}
}

// listening initializes, starts listening and clears the recorded events.
func (f *fixture) listening(t *testing.T) *testutil.FakeHandle {
	t.Helper()
	ctx := context.Background()
	if _, err := f.ctrl.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := f.ctrl.Listen(ctx, nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	f.events.Reset()
	return f.backend.Last()
}

func resultEv(text string, completed bool) session.Event {
	return session.Event{Kind: session.EventResult, Text: text, Completed: completed}
}

func availabilityEv(ok bool) session.Event {
	return session.Event{Kind: session.EventAvailability, Available: ok}
}

func errorEv(code recognizer.ErrorCode) session.Event {
	return session.Event{Kind: session.EventError, Code: code}
}

func localeEv(s string) session.Event {
	return session.Event{Kind: session.EventCurrentLocale, Locale: recognizer.MustParseLocale(s)}
}

func assertEvents(t *testing.T, got []session.Event, want ...session.Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d events %+v, got %d %+v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestInitializeReportsLocaleAndAvailability(t *testing.T) {
	f := newFixture(t)

	ok, err := f.ctrl.Initialize(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected available, got %v (%v)", ok, err)
	}
	assertEvents(t, f.events.All(), localeEv("en_US"), availabilityEv(true))

	if f.backend.Created() != 1 {
		t.Errorf("expected eager handle creation, got %d handles", f.backend.Created())
	}
	snap := f.ctrl.Snapshot()
	if snap.State != session.StateIdle || !snap.HasHandle {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestInitializeUnavailable(t *testing.T) {
	f := newFixture(t)
	f.backend.SetAvailable(false)

	ok, err := f.ctrl.Initialize(context.Background())
	if err != nil || ok {
		t.Fatalf("expected unavailable without error, got %v (%v)", ok, err)
	}
	assertEvents(t, f.events.All(), localeEv("en_US"), availabilityEv(false))

	// Availability is not re-queried by listen.
	f.backend.SetAvailable(true)
	err = f.ctrl.Listen(context.Background(), nil)
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if f.backend.Created() != 0 {
		t.Errorf("expected no handle, got %d", f.backend.Created())
	}
	if h := f.comp.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded health, got %s", h.Status)
	}
}

func TestPartialThenFinalRestarts(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	h.Emit(recognizer.Partial("hel"))
	f.events.WaitFor(t, 1)
	if got := f.ctrl.Snapshot().Text; got != "hel" {
		t.Errorf("expected text %q, got %q", "hel", got)
	}

	h.Emit(recognizer.Final("hello"))
	got := f.events.WaitFor(t, 2)
	assertEvents(t, got, resultEv("hel", false), resultEv("hello", true))

	if h.Starts() != 2 {
		t.Errorf("expected one automatic restart, got %d starts", h.Starts())
	}
	snap := f.ctrl.Snapshot()
	if snap.State != session.StateListening || snap.Text != "" {
		t.Errorf("expected a fresh listening attempt, got %+v", snap)
	}
}

func TestEachFinalRestartsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	for i, text := range []string{"one", "two", "three"} {
		h.Emit(recognizer.Final(text))
		f.events.WaitFor(t, i+1)
	}
	if h.Starts() != 4 {
		t.Errorf("expected 1 listen + 3 restarts, got %d starts", h.Starts())
	}
	if f.backend.Created() != 1 {
		t.Errorf("restart must reuse the handle, got %d handles", f.backend.Created())
	}
}

func TestPartialReplacesText(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	h.Emit(recognizer.Partial("a"), recognizer.Partial("ab"), recognizer.Partial("abc"))
	f.events.WaitFor(t, 3)
	if got := f.ctrl.Snapshot().Text; got != "abc" {
		t.Errorf("expected latest partial %q, got %q", "abc", got)
	}
}

func TestStopBeforeEventsThenLateFinal(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	if err := f.ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	snap := f.ctrl.Snapshot()
	if !snap.UserAborted || snap.State != session.StateStopping {
		t.Errorf("unexpected snapshot after stop %+v", snap)
	}
	if h.Stops() != 1 {
		t.Errorf("expected handle stop, got %d", h.Stops())
	}

	h.Emit(recognizer.Final("late"))
	assertEvents(t, f.events.WaitFor(t, 1), resultEv("late", true))

	if h.Starts() != 1 {
		t.Errorf("final after stop must not restart, got %d starts", h.Starts())
	}
	if st := f.ctrl.Snapshot().State; st != session.StateIdle {
		t.Errorf("expected idle, got %s", st)
	}
}

func TestStopAfterPartialsNoRestart(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	h.Emit(recognizer.Partial("stop"))
	f.events.WaitFor(t, 1)
	f.ctrl.Stop(context.Background())
	h.Emit(recognizer.Final("stop here"), recognizer.Final("stray"))
	f.events.WaitFor(t, 2)

	testutil.T(t).Never(func() bool { return h.Starts() > 1 }, 50*time.Millisecond, "restart after stop")
}

func TestStopWithoutHandleSetsAborted(t *testing.T) {
	f := newFixture(t)

	if err := f.ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !f.ctrl.Snapshot().UserAborted {
		t.Error("stop must set the abort flag even without a handle")
	}
	if f.events.Len() != 0 {
		t.Errorf("expected no events, got %+v", f.events.All())
	}
}

func TestStuckRecognizerStopIsBounded(t *testing.T) {
	f := newFixture(t, session.WithStopTimeout(50*time.Millisecond))
	h := f.listening(t)
	h.BlockStop(make(chan struct{}))

	start := time.Now()
	err := f.ctrl.Stop(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeInternal) {
		t.Fatalf("expected internal error from stuck stop, got %v", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("stop held the session for %s", d)
	}
	if h.Destroys() == 0 {
		t.Error("stuck handle must be discarded")
	}
	snap := f.ctrl.Snapshot()
	if snap.State != session.StateIdle || snap.HasHandle {
		t.Errorf("expected idle without handle, got %+v", snap)
	}
}

func TestListenClearsAbortFlag(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)
	f.ctrl.Stop(context.Background())
	h.Emit(recognizer.Final("x"))
	f.events.WaitFor(t, 1)

	if err := f.ctrl.Listen(context.Background(), nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if f.ctrl.Snapshot().UserAborted {
		t.Error("listen must clear the abort flag")
	}
}

func TestRecoverableErrorsReportTextWithoutRestart(t *testing.T) {
	tests := []struct {
		name    string
		partial string
		code    recognizer.ErrorCode
	}{
		{"no match with text", "hel", recognizer.ErrNoMatch},
		{"speech timeout empty", "", recognizer.ErrSpeechTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			h := f.listening(t)

			var want []session.Event
			if tc.partial != "" {
				h.Emit(recognizer.Partial(tc.partial))
				want = append(want, resultEv(tc.partial, false))
			}
			h.Emit(recognizer.Failure(tc.code))
			want = append(want, errorEv(tc.code), resultEv(tc.partial, true))
			assertEvents(t, f.events.WaitFor(t, len(want)), want...)

			if h.Starts() != 1 {
				t.Errorf("errors must not restart, got %d starts", h.Starts())
			}
			snap := f.ctrl.Snapshot()
			if snap.State != session.StateIdle || !snap.HasHandle {
				t.Errorf("expected idle with handle kept, got %+v", snap)
			}

			if err := f.ctrl.Listen(context.Background(), nil); err != nil {
				t.Fatalf("Listen after error: %v", err)
			}
			if h.Starts() != 2 || f.ctrl.Snapshot().Text != "" {
				t.Errorf("expected explicit listen to reuse handle with cleared text")
			}
		})
	}
}

type fakeRemediator struct {
	mu      sync.Mutex
	locales []string
	err     error
	// block, when set, holds every offer until closed or ctx is done.
	block chan struct{}
}

func (r *fakeRemediator) OfferOfflineInstall(ctx context.Context, l recognizer.Locale) error {
	r.mu.Lock()
	r.locales = append(r.locales, l.String())
	r.mu.Unlock()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.err
}

func (r *fakeRemediator) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.locales...)
}

func (r *fakeRemediator) waitCalls(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		calls := r.calls()
		if len(calls) >= n || time.Now().After(deadline) {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerErrorTearsDownAndRemediates(t *testing.T) {
	for _, remErr := range []error{nil, errors.New("no activity")} {
		rem := &fakeRemediator{err: remErr}
		f := newFixture(t, session.WithRemediator(rem))
		h := f.listening(t)

		h.Emit(recognizer.Failure(recognizer.ErrServer))
		assertEvents(t, f.events.WaitFor(t, 2), errorEv(recognizer.ErrServer), availabilityEv(true))

		if calls := rem.waitCalls(t, 1); len(calls) != 1 || calls[0] != "en_US" {
			t.Errorf("expected one offline install offer for en_US, got %v", calls)
		}
		if !h.Destroyed() || f.ctrl.Snapshot().HasHandle {
			t.Error("server error must destroy the handle")
		}

		if err := f.ctrl.Listen(context.Background(), nil); err != nil {
			t.Fatalf("Listen after server error: %v", err)
		}
		if f.backend.Created() != 2 || f.backend.Last().Starts() != 1 {
			t.Errorf("listen must recreate the handle, created=%d", f.backend.Created())
		}
	}
}

func TestSlowOfflineInstallDoesNotBlockSession(t *testing.T) {
	rem := &fakeRemediator{block: make(chan struct{})}
	defer close(rem.block)
	f := newFixture(t, session.WithRemediator(rem))
	h := f.listening(t)

	h.Emit(recognizer.Failure(recognizer.ErrServer))
	assertEvents(t, f.events.WaitFor(t, 2), errorEv(recognizer.ErrServer), availabilityEv(true))
	if calls := rem.waitCalls(t, 1); len(calls) != 1 {
		t.Fatalf("expected the offer to be running, got %v", calls)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.ctrl.Snapshot()
		_ = f.comp.Health(context.Background())
		if err := f.ctrl.Listen(context.Background(), nil); err != nil {
			t.Errorf("Listen: %v", err)
		}
		if err := f.ctrl.Stop(context.Background()); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session commands blocked while the offline install offer ran")
	}

	// A second fatal error while an offer is running does not stack another.
	if err := f.ctrl.Listen(context.Background(), nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	f.events.Reset()
	f.backend.Last().Emit(recognizer.Failure(recognizer.ErrServer))
	f.events.WaitFor(t, 2)
	if calls := rem.calls(); len(calls) != 1 {
		t.Errorf("expected a single running offer, got %v", calls)
	}
}

func TestDestroyCancelsRunningOfflineInstall(t *testing.T) {
	rem := &fakeRemediator{block: make(chan struct{})}
	f := newFixture(t, session.WithRemediator(rem))
	h := f.listening(t)

	h.Emit(recognizer.Failure(recognizer.ErrServer))
	f.events.WaitFor(t, 2)
	rem.waitCalls(t, 1)

	done := make(chan struct{})
	go func() {
		f.ctrl.Destroy()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Destroy did not cancel the running offer")
	}
}

func TestOtherErrorsReportAvailability(t *testing.T) {
	codes := []recognizer.ErrorCode{
		recognizer.ErrNetwork, recognizer.ErrNetworkTimeout, recognizer.ErrAudio,
		recognizer.ErrClient, recognizer.ErrRecognizerBusy, recognizer.ErrInsufficientPermissions,
		recognizer.ErrorFromCode(42),
	}
	for _, code := range codes {
		t.Run(code.String(), func(t *testing.T) {
			f := newFixture(t)
			h := f.listening(t)

			h.Emit(recognizer.Failure(code))
			got := f.events.WaitFor(t, 2)
			assertEvents(t, got, errorEv(code), availabilityEv(true))
			if got[0].Code.String() != code.String() {
				t.Errorf("code not preserved: %s", got[0].Code)
			}
			if h.Starts() != 1 || h.Destroyed() {
				t.Errorf("expected no restart and handle kept")
			}
		})
	}
}

func TestReadyForSpeechReportsAvailability(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	h.Emit(recognizer.ReadyForSpeech(), recognizer.BeginningOfSpeech(), recognizer.EndOfSpeech(), recognizer.Partial("x"))
	assertEvents(t, f.events.WaitFor(t, 2), availabilityEv(true), resultEv("x", false))
}

func TestEventsDroppedWhenIdle(t *testing.T) {
	f := newFixture(t)
	h := f.listening(t)

	h.Emit(recognizer.Failure(recognizer.ErrNoMatch))
	f.events.WaitFor(t, 2)
	h.Emit(recognizer.Partial("ghost"), recognizer.Final("ghost"))

	testutil.T(t).Never(func() bool { return f.events.Len() > 2 }, 50*time.Millisecond, "event delivered while idle")
	if h.Starts() != 1 {
		t.Errorf("expected no restart, got %d", h.Starts())
	}
}

func TestChangeLocaleRecreatesHandle(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	old := f.backend.Last()
	f.events.Reset()

	fr := recognizer.MustParseLocale("fr_FR")
	if err := f.ctrl.ChangeLocale(context.Background(), fr); err != nil {
		t.Fatalf("ChangeLocale: %v", err)
	}

	if old.Destroys() != 1 {
		t.Errorf("expected exactly one teardown, got %d", old.Destroys())
	}
	if f.backend.Created() != 2 || f.backend.Last().Locale != fr {
		t.Errorf("expected exactly one new handle for fr_FR, created=%d", f.backend.Created())
	}
	snap := f.ctrl.Snapshot()
	if !snap.UserAborted || snap.Locale != "fr_FR" || snap.State != session.StateIdle {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	assertEvents(t, f.events.All(), localeEv("fr_FR"))
}

func TestChangeLocaleWhileListeningDropsStaleCallbacks(t *testing.T) {
	f := newFixture(t)
	old := f.listening(t)

	gate := make(chan struct{})
	var held atomic.Bool
	f.ctrl.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventAvailability && held.CompareAndSwap(false, true) {
			<-gate
		}
	})

	// The pump blocks delivering readiness while a stale partial waits behind it.
	old.Emit(recognizer.ReadyForSpeech(), recognizer.Partial("stale"))
	testutil.T(t).Eventually(held.Load, "pump delivering readiness")

	done := make(chan error, 1)
	go func() { done <- f.ctrl.ChangeLocale(context.Background(), recognizer.MustParseLocale("fr_FR")) }()
	testutil.T(t).Eventually(old.Destroyed, "old handle destroyed")
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("ChangeLocale: %v", err)
	}

	f.ctrl.Destroy()
	for _, ev := range f.events.All() {
		if ev.Kind == session.EventResult {
			t.Errorf("stale callback processed after teardown: %+v", ev)
		}
	}
	if last := f.backend.Last(); last.Locale.String() != "fr_FR" || last.Starts() != 0 {
		t.Errorf("expected an idle fr_FR handle, got %s starts=%d", last.Locale, last.Starts())
	}
	if old.Starts() != 1 {
		t.Errorf("old handle must not be restarted, got %d", old.Starts())
	}
}

func TestChangeLocaleBeforeInitialize(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.ChangeLocale(context.Background(), recognizer.MustParseLocale("de_DE")); err != nil {
		t.Fatalf("ChangeLocale: %v", err)
	}
	assertEvents(t, f.events.All(), localeEv("de_DE"), availabilityEv(true))
	if f.backend.Created() != 1 || f.backend.Last().Locale.String() != "de_DE" {
		t.Errorf("expected one de_DE handle")
	}
}

func TestListenWithLocale(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := f.backend.Last()

	de := recognizer.MustParseLocale("de_DE")
	if err := f.ctrl.Listen(context.Background(), &de); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if !first.Destroyed() {
		t.Error("listen with a locale must recreate the handle")
	}
	h := f.backend.Last()
	if h.Locale != de || h.Starts() != 1 {
		t.Errorf("expected started de_DE handle, got %s starts=%d", h.Locale, h.Starts())
	}
	if f.ctrl.Snapshot().Locale != "de_DE" {
		t.Error("locale not updated")
	}
}

func TestListenWhileListeningStartsFreshHandle(t *testing.T) {
	f := newFixture(t)
	first := f.listening(t)

	if err := f.ctrl.Listen(context.Background(), nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if !first.Destroyed() {
		t.Error("previous live handle must be destroyed first")
	}
	live := f.backend.Live()
	if len(live) != 1 || live[0].Starts() != 1 {
		t.Errorf("expected exactly one live started handle, got %d", len(live))
	}
}

func TestListenBeforeInitialize(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.Listen(context.Background(), nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	assertEvents(t, f.events.All(), localeEv("en_US"), availabilityEv(true))
	if f.backend.Created() != 1 || f.backend.Last().Starts() != 1 {
		t.Error("expected implicit initialize then start")
	}
}

func TestListenStartFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.FailStart(errors.New("microphone busy"))

	err := f.ctrl.Listen(context.Background(), nil)
	if !apperrors.HasCode(err, apperrors.ErrCodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
	snap := f.ctrl.Snapshot()
	if snap.State != session.StateIdle || snap.HasHandle {
		t.Errorf("expected idle without handle, got %+v", snap)
	}
}

func TestCommandsAfterDestroy(t *testing.T) {
	f := newFixture(t)
	f.listening(t)
	f.ctrl.Destroy()

	ctx := context.Background()
	_, initErr := f.ctrl.Initialize(ctx)
	errs := map[string]error{
		"initialize":   initErr,
		"listen":       f.ctrl.Listen(ctx, nil),
		"stop":         f.ctrl.Stop(ctx),
		"changeLocale": f.ctrl.ChangeLocale(ctx, recognizer.DefaultLocale),
	}
	for name, err := range errs {
		if !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			t.Errorf("%s: expected CONFLICT, got %v", name, err)
		}
	}
	if len(f.backend.Live()) != 0 {
		t.Error("destroy must release the handle")
	}
	if h := f.comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after destroy, got %s", h.Status)
	}
}

func TestRecognizerOptionsReachHandle(t *testing.T) {
	opts := recognizer.DefaultOptions()
	opts.CompleteSilenceMillis = 1500
	f := newFixture(t, session.WithRecognizerOptions(opts), session.WithLocale(recognizer.MustParseLocale("es_ES")))

	if _, err := f.ctrl.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	h := f.backend.Last()
	if h.Options.CompleteSilenceMillis != 1500 || h.Options.MaxAlternatives != 3 {
		t.Errorf("options not passed through: %+v", h.Options)
	}
	if h.Locale.String() != "es_ES" {
		t.Errorf("expected es_ES, got %s", h.Locale)
	}
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	other := testutil.NewRecorder[session.Event]()
	cancel := f.ctrl.Subscribe(other.Record)
	cancel()

	f.ctrl.Initialize(context.Background())
	if other.Len() != 0 {
		t.Errorf("unsubscribed listener received %d events", other.Len())
	}
	if f.events.Len() != 2 {
		t.Errorf("expected 2 events on remaining listener, got %d", f.events.Len())
	}
}

func TestDescribe(t *testing.T) {
	f := newFixture(t)
	d := f.comp.Describe()
	if d.Type != "session" || d.Details != "backend=fake locale=en_US" {
		t.Errorf("unexpected description %+v", d)
	}
}
