// Package bridge connects a host application's named-method channel to the
// recognition session.
//
// Inbound method calls ("SpeechRecognizer.listen", ...) are dispatched to the
// session by Adapter.Handle; unknown methods fail with NOT_IMPLEMENTED.
// Session events are mapped to outbound notifications and sent through a
// Channel:
//
//	onCurrentLocale(string)            current locale, e.g. "en_US"
//	onSpeechAvailability(bool)         recognizer ready / usable
//	onSpeechRecognitionResult(string)  completed results only
//	onSpeechRecognitionError(bool)     a recognizer error occurred
package bridge
