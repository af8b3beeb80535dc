package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors
const (
	// ErrCodeServiceUnavailable indicates the recognition service is absent.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates a host sent too many method calls.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Command errors
const (
	// ErrCodeNotImplemented indicates an unknown inbound method.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// ErrCodeConflict indicates a command that does not fit the current state.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeInvalidInput indicates malformed command arguments.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Recognition and internal errors
const (
	// ErrCodeRecognition indicates the platform recognizer reported an error.
	ErrCodeRecognition ErrorCode = "RECOGNITION_ERROR"
	// ErrCodeInternal indicates an internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:     true,
	ErrCodeRateLimited: true,
	ErrCodeRecognition: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
