// Package server exposes the bridge over HTTP using Gin, with h2c so
// HTTP/2 clients work without TLS.
//
// Routes:
//
//   - POST /v1/speech/methods/:method: one method call
//   - GET /v1/speech/events: notifications as Server-Sent Events
//   - GET /v1/speech/ws: method calls and notifications over WebSocket
//   - /health, /alive, /ready, /info, /metrics: health, readiness and build info
//
// Middleware (server/middleware) runs at the server level so it covers
// every route: panic recovery, request IDs, CORS and request logging.
// Method calls additionally get a body-size limit and an optional
// per-client rate limit.
package server
