package recognizer

import "fmt"

// EventType identifies a recognizer callback.
type EventType int

// Recognizer event types.
const (
	EventReadyForSpeech EventType = iota + 1
	EventBeginningOfSpeech
	EventEndOfSpeech
	EventPartial
	EventFinal
	EventError
)

var eventTypeNames = map[EventType]string{
	EventReadyForSpeech:    "ready_for_speech",
	EventBeginningOfSpeech: "beginning_of_speech",
	EventEndOfSpeech:       "end_of_speech",
	EventPartial:           "partial",
	EventFinal:             "final",
	EventError:             "error",
}

// String returns the event type name.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is one callback from a running handle.
// Text is set for partial and final events, Code for error events.
type Event struct {
	Type EventType
	Text string
	Code ErrorCode
}

// Terminal reports whether the event ends the current utterance.
func (e Event) Terminal() bool {
	return e.Type == EventFinal || e.Type == EventError
}

// ReadyForSpeech builds a readiness event.
func ReadyForSpeech() Event { return Event{Type: EventReadyForSpeech} }

// BeginningOfSpeech builds a begin-of-speech event.
func BeginningOfSpeech() Event { return Event{Type: EventBeginningOfSpeech} }

// EndOfSpeech builds an end-of-speech event.
func EndOfSpeech() Event { return Event{Type: EventEndOfSpeech} }

// Partial builds a partial-hypothesis event.
func Partial(text string) Event { return Event{Type: EventPartial, Text: text} }

// Final builds a final-result event.
func Final(text string) Event { return Event{Type: EventFinal, Text: text} }

// Failure builds an error event.
func Failure(code ErrorCode) Event { return Event{Type: EventError, Code: code} }
