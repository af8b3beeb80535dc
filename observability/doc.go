// Package observability sets up OpenTelemetry metrics and tracing for the
// bridge and defines its instruments.
//
// Setup installs OTLP/HTTP exporters from Config and hands back the
// SessionMetrics instruments. Method calls are traced with StartMethodCall,
// which opens a span and records call count and latency when it ends.
package observability
