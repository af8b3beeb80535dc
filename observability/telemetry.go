package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/speechbridge/logger"
)

const instrumentationName = "github.com/kbukum/speechbridge"

// Span names and attribute keys.
const (
	SpanMethodCall = "bridge.method"

	AttrMethod       = "bridge.method"
	AttrRequestID    = "request.id"
	AttrStatus       = "status"
	AttrDurationMs   = "duration_ms"
	AttrErrorMessage = "error.message"
)

// Resource identifies the bridge process in exported telemetry.
type Resource struct {
	Service     string
	Version     string
	Environment string
	// Backend is the recognizer backend name.
	Backend string
	// Locale is the configured default locale.
	Locale string
}

// build merges the bridge attributes into the SDK default resource. The
// attributes are schemaless so the merge never conflicts with the SDK's
// schema version.
func (r Resource) build() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", r.Service),
			attribute.String("service.version", r.Version),
			attribute.String("deployment.environment", r.Environment),
			attribute.String("speech.backend", r.Backend),
			attribute.String("speech.locale", r.Locale),
		),
	)
}

// Telemetry holds the session instruments and the providers behind them.
type Telemetry struct {
	Metrics *SessionMetrics

	shutdown []func(context.Context) error
}

// Setup installs OTLP/HTTP meter and, with cfg.Tracing, tracer providers as
// the otel globals. When cfg.Enabled is false nothing is installed and the
// instruments record nothing.
func Setup(ctx context.Context, cfg Config, res Resource) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{Metrics: NopSessionMetrics()}, nil
	}

	r, err := res.build()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	t := &Telemetry{}
	mp, err := newMeterProvider(ctx, cfg, r)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)
	t.shutdown = append(t.shutdown, mp.Shutdown)

	if cfg.Tracing {
		tp, err := newTracerProvider(ctx, cfg, r)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		t.shutdown = append(t.shutdown, tp.Shutdown)
	}

	t.Metrics, err = NewSessionMetrics(mp.Meter(instrumentationName))
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}

	logger.Info("telemetry exporting", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
		"tracing", cfg.Tracing,
		"sample_rate", cfg.SampleRate,
		logger.FieldBackend, res.Backend,
	))
	return t, nil
}

// Shutdown flushes and stops the providers, tracer first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		if err := t.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdown = nil
	return errors.Join(errs...)
}

func newMeterProvider(ctx context.Context, cfg Config, r *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(r),
	), nil
}

func newTracerProvider(ctx context.Context, cfg Config, r *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	), nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name)
}
