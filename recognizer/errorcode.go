package recognizer

import "fmt"

// ErrorCode is a terminal error reported by the platform recognizer.
// Values match the platform's numeric codes; any other value is kept as is
// and reported as Unknown(code).
type ErrorCode int

// Known platform error codes.
const (
	ErrNetworkTimeout          ErrorCode = 1
	ErrNetwork                 ErrorCode = 2
	ErrAudio                   ErrorCode = 3
	ErrServer                  ErrorCode = 4
	ErrClient                  ErrorCode = 5
	ErrSpeechTimeout           ErrorCode = 6
	ErrNoMatch                 ErrorCode = 7
	ErrRecognizerBusy          ErrorCode = 8
	ErrInsufficientPermissions ErrorCode = 9
)

var errorNames = map[ErrorCode]string{
	ErrNetworkTimeout:          "NetworkTimeout",
	ErrNetwork:                 "Network",
	ErrAudio:                   "Audio",
	ErrServer:                  "Server",
	ErrClient:                  "Client",
	ErrSpeechTimeout:           "SpeechTimeout",
	ErrNoMatch:                 "NoMatch",
	ErrRecognizerBusy:          "RecognizerBusy",
	ErrInsufficientPermissions: "InsufficientPermissions",
}

// ErrorFromCode maps a raw platform code. It never fails: codes outside the
// known set become Unknown(code).
func ErrorFromCode(code int) ErrorCode { return ErrorCode(code) }

// Known reports whether c is one of the enumerated platform codes.
func (c ErrorCode) Known() bool {
	_, ok := errorNames[c]
	return ok
}

// String returns the code name, or Unknown(n) for unlisted codes.
func (c ErrorCode) String() string {
	if name, ok := errorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(c))
}

// Class groups error codes by how the session reacts to them.
type Class int

const (
	// ClassUnclassified covers codes outside the known set.
	ClassUnclassified Class = iota
	// ClassRecoverable ends the attempt but reports the accumulated text.
	ClassRecoverable
	// ClassFatalSession tears down the handle and offers remediation.
	ClassFatalSession
	// ClassTransient ends the attempt; the caller may listen again.
	ClassTransient
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassRecoverable:
		return "recoverable"
	case ClassFatalSession:
		return "fatal_session"
	case ClassTransient:
		return "transient"
	default:
		return "unclassified"
	}
}

// Class returns the handling class of the code.
func (c ErrorCode) Class() Class {
	switch c {
	case ErrNoMatch, ErrSpeechTimeout:
		return ClassRecoverable
	case ErrServer:
		return ClassFatalSession
	}
	if c.Known() {
		return ClassTransient
	}
	return ClassUnclassified
}
