package session

import (
	"fmt"

	"github.com/kbukum/speechbridge/recognizer"
)

// EventKind identifies a session event.
type EventKind int

// Session event kinds.
const (
	EventCurrentLocale EventKind = iota + 1
	EventAvailability
	EventResult
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCurrentLocale:
		return "current_locale"
	case EventAvailability:
		return "availability"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is what the controller reports to subscribers.
type Event struct {
	Kind EventKind
	// Locale is set for EventCurrentLocale.
	Locale recognizer.Locale
	// Available is set for EventAvailability.
	Available bool
	// Text and Completed are set for EventResult.
	Text      string
	Completed bool
	// Code is set for EventError.
	Code recognizer.ErrorCode
}

// Listener receives session events. Listeners run on the goroutine that
// produced the event and must not call back into the Controller.
type Listener func(Event)

func currentLocale(l recognizer.Locale) Event { return Event{Kind: EventCurrentLocale, Locale: l} }
func availability(ok bool) Event             { return Event{Kind: EventAvailability, Available: ok} }
func failure(code recognizer.ErrorCode) Event { return Event{Kind: EventError, Code: code} }

func result(text string, completed bool) Event {
	return Event{Kind: EventResult, Text: text, Completed: completed}
}
