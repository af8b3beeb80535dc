// Package testutil provides test doubles and helpers for the bridge.
//
// FakeBackend and FakeHandle stand in for a platform recognizer: tests push
// recognizer events with Emit and inspect how the session drove the handle.
// Recorder collects values delivered from other goroutines, and THelper
// starts components with automatic cleanup.
//
//	func TestListen(t *testing.T) {
//	    backend := testutil.NewFakeBackend()
//	    ctrl := session.New(backend)
//	    testutil.T(t).Setup(session.NewComponent(ctrl))
//
//	    events := testutil.NewRecorder[session.Event]()
//	    ctrl.Subscribe(events.Record)
//	    ...
//	    backend.Last().Emit(recognizer.Final("hello"))
//	    events.WaitFor(t, 3)
//	}
package testutil
