// Package session implements the recognition session controller: the state
// machine that owns the recognizer handle, the current locale and the
// user-abort flag, and turns recognizer callbacks into session events.
//
// The platform recognizer answers one utterance per start. The controller
// restarts it after every completed result until the caller stops, which
// gives hosts continuous dictation. Errors never restart; the caller listens
// again.
//
// # States
//
//	Uninitialized -> Idle -> Listening -> Stopping -> Idle
//	                  ^          |
//	                  +----------+  (result with restart, error, changeLocale)
//	any -> Destroyed
//
// # Usage
//
//	ctrl := session.New(backend,
//		session.WithLocale(recognizer.MustParseLocale("en_US")),
//		session.WithRemediator(launcher),
//	)
//	unsubscribe := ctrl.Subscribe(func(ev session.Event) { ... })
//	defer unsubscribe()
//
//	available, err := ctrl.Initialize(ctx)
//	err = ctrl.Listen(ctx, nil)
//	err = ctrl.Stop(ctx)
//
// NewComponent puts the controller under the component registry; stopping
// the component destroys the session.
package session
