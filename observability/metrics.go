package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// SessionMetrics holds the bridge's instruments.
type SessionMetrics struct {
	listenTotal       metric.Int64Counter
	resultTotal       metric.Int64Counter
	errorTotal        metric.Int64Counter
	handlesActive     metric.Int64UpDownCounter
	methodTotal       metric.Int64Counter
	methodDuration    metric.Float64Histogram
	notificationTotal metric.Int64Counter
}

// NewSessionMetrics creates the instruments on meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	listenTotal, err := meter.Int64Counter("speech.listen.total",
		metric.WithDescription("Listening attempts, labeled by whether they were automatic restarts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speech.listen.total counter: %w", err)
	}

	resultTotal, err := meter.Int64Counter("speech.result.total",
		metric.WithDescription("Recognition results by completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speech.result.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("speech.error.total",
		metric.WithDescription("Recognizer errors by code and class"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speech.error.total counter: %w", err)
	}

	handlesActive, err := meter.Int64UpDownCounter("speech.handles.active",
		metric.WithDescription("Live recognizer handles"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speech.handles.active gauge: %w", err)
	}

	methodTotal, err := meter.Int64Counter("bridge.method.total",
		metric.WithDescription("Inbound method calls by method and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bridge.method.total counter: %w", err)
	}

	methodDuration, err := meter.Float64Histogram("bridge.method.duration",
		metric.WithDescription("Inbound method call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bridge.method.duration histogram: %w", err)
	}

	notificationTotal, err := meter.Int64Counter("bridge.notification.total",
		metric.WithDescription("Outbound notifications by method"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bridge.notification.total counter: %w", err)
	}

	return &SessionMetrics{
		listenTotal:       listenTotal,
		resultTotal:       resultTotal,
		errorTotal:        errorTotal,
		handlesActive:     handlesActive,
		methodTotal:       methodTotal,
		methodDuration:    methodDuration,
		notificationTotal: notificationTotal,
	}, nil
}

// NopSessionMetrics returns instruments that record nothing.
func NopSessionMetrics() *SessionMetrics {
	m, _ := NewSessionMetrics(noop.NewMeterProvider().Meter("nop"))
	return m
}

// RecordListen counts a listening attempt.
func (m *SessionMetrics) RecordListen(ctx context.Context, locale string, restart bool) {
	m.listenTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("locale", locale),
		attribute.Bool("restart", restart),
	))
}

// RecordResult counts a recognition result.
func (m *SessionMetrics) RecordResult(ctx context.Context, completed bool) {
	m.resultTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("completed", completed)))
}

// RecordRecognizerError counts a recognizer error.
func (m *SessionMetrics) RecordRecognizerError(ctx context.Context, code, class string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("class", class),
	))
}

// RecordHandleCreated increments the live handle count.
func (m *SessionMetrics) RecordHandleCreated(ctx context.Context) {
	m.handlesActive.Add(ctx, 1)
}

// RecordHandleDestroyed decrements the live handle count.
func (m *SessionMetrics) RecordHandleDestroyed(ctx context.Context) {
	m.handlesActive.Add(ctx, -1)
}

// RecordMethodCall records a completed inbound method call.
func (m *SessionMetrics) RecordMethodCall(ctx context.Context, method, status string, duration time.Duration) {
	m.methodTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.methodDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordNotification counts an outbound notification.
func (m *SessionMetrics) RecordNotification(ctx context.Context, method string) {
	m.notificationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}
