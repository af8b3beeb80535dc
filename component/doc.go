// Package component defines the lifecycle interface shared by the bridge's
// long-lived parts and a Registry that starts them in registration order,
// stops them in reverse, and aggregates their health.
package component
