// Package recognizer defines the contract between the session controller and a
// platform speech-recognition service.
//
// A Backend creates Handles. Each Handle wraps one native recognizer and
// answers one utterance per Start, reporting progress on its Events channel:
// readiness, begin/end of speech, partial and final hypotheses, and terminal
// error codes. Backends are registered by name in a Registry and chosen at
// runtime through a Manager and a Selector.
//
// # Usage
//
//	mgr := recognizer.NewManager()
//	mgr.Register("azure", azure.Factory)
//	if err := mgr.Initialize("azure", map[string]any{"key": key, "region": region}); err != nil {
//		return err
//	}
//	backend, err := mgr.Get(ctx)
package recognizer
