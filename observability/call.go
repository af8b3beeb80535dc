package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Status values recorded for method calls.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// MethodCall tracks one inbound method call from start to end.
type MethodCall struct {
	Method    string
	RequestID string
	StartTime time.Time
	Metrics   *SessionMetrics

	span trace.Span
}

// StartMethodCall opens a span for method. A nil metrics skips recording.
func StartMethodCall(ctx context.Context, method, requestID string, metrics *SessionMetrics) (context.Context, *MethodCall) {
	ctx, span := startSpan(ctx, SpanMethodCall)
	span.SetAttributes(attribute.String(AttrMethod, method))
	if requestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
	return ctx, &MethodCall{
		Method:    method,
		RequestID: requestID,
		StartTime: time.Now(),
		Metrics:   metrics,
		span:      span,
	}
}

// End closes the span and records the call outcome.
func (c *MethodCall) End(ctx context.Context, err error) {
	duration := time.Since(c.StartTime)
	status := StatusOK
	if err != nil {
		status = StatusError
		c.span.RecordError(err)
		c.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	c.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	c.span.End()

	if c.Metrics != nil {
		c.Metrics.RecordMethodCall(ctx, c.Method, status, duration)
	}
}
