package sse

// SSE event names.
const (
	// EventTypeConnected is sent once when a stream opens.
	EventTypeConnected = "connected"
	// EventTypeNotification carries one bridge notification.
	EventTypeNotification = "notification"
)
