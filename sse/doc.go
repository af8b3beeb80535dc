// Package sse fans bridge notifications out to connected hosts.
//
// A Hub tracks clients by ID and broadcasts payloads to those whose ID
// matches a glob pattern. ServeSSE streams a client's queue as
// Server-Sent Events; the WebSocket transport registers its clients in the
// same hub. Notifier adapts a hub to bridge.Channel.
//
//	c := sse.NewComponent("/v1/speech/events")
//	adapter := bridge.New(session, sse.NewNotifier(c.Hub()))
package sse
