// Package ws carries the bridge over a WebSocket: the host sends method
// calls as {"id", "method", "args"} frames and receives {"id", "result"} or
// {"id", "error"} replies interleaved with {"method", "args"} notifications.
package ws
