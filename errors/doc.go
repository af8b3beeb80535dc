// Package errors provides the structured error type used across the bridge.
// Errors carry a machine-readable code, a retryable flag and an HTTP status
// so every transport can render them the same way.
package errors
