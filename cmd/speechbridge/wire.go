package main

import (
	"context"
	"fmt"
	"path"

	"github.com/kbukum/speechbridge/bootstrap"
	"github.com/kbukum/speechbridge/bridge"
	"github.com/kbukum/speechbridge/component"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/observability"
	"github.com/kbukum/speechbridge/platform"
	"github.com/kbukum/speechbridge/recognizer"
	"github.com/kbukum/speechbridge/recognizer/azure"
	"github.com/kbukum/speechbridge/server"
	"github.com/kbukum/speechbridge/server/endpoint"
	"github.com/kbukum/speechbridge/session"
	"github.com/kbukum/speechbridge/sse"
)

// newBackend initializes the configured recognizer backend.
func newBackend(ctx context.Context, cfg *Config) (recognizer.Backend, error) {
	m := recognizer.NewManager()
	m.Register(azure.Name, azure.Factory)

	var backendCfg map[string]any
	switch cfg.Speech.Backend {
	case azure.Name:
		backendCfg = cfg.Speech.Azure.ToMap()
	}
	if err := m.Initialize(cfg.Speech.Backend, backendCfg); err != nil {
		return nil, err
	}
	if err := m.SetDefault(cfg.Speech.Backend); err != nil {
		return nil, err
	}
	return m.Get(ctx)
}

// initTelemetry installs the OTLP meter and tracer providers when enabled
// and returns the session instruments. Providers are flushed on stop.
func initTelemetry(ctx context.Context, app *bootstrap.App[*Config]) (*observability.SessionMetrics, error) {
	cfg := app.Cfg
	tel, err := observability.Setup(ctx, cfg.Observability, observability.Resource{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
		Backend:     cfg.Speech.Backend,
		Locale:      cfg.Speech.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	app.OnStop(tel.Shutdown)
	return tel.Metrics, nil
}

// wire builds the session, notification hub, bridge adapter and HTTP
// server on backend and registers them in start order.
func wire(app *bootstrap.App[*Config], backend recognizer.Backend, metrics *observability.SessionMetrics) (*server.Server, error) {
	cfg := app.Cfg
	locale, err := cfg.Speech.ParsedLocale()
	if err != nil {
		return nil, err
	}

	launcher := platform.NewLauncher(cfg.Remediation.OfflineInstall,
		platform.WithLogger(logger.Get("platform")),
	)
	sess := session.New(backend,
		session.WithLocale(locale),
		session.WithRecognizerOptions(cfg.Speech.Recognizer),
		session.WithRemediator(launcher),
		session.WithMetrics(metrics),
		session.WithLogger(logger.Get("session")),
	)

	hub := sse.NewComponent(path.Join(cfg.Server.BasePath, "events"))
	adapter := bridge.New(sess, sse.NewNotifier(hub.Hub()),
		bridge.WithPrefix(cfg.Speech.MethodPrefix),
		bridge.WithMetrics(metrics),
	)
	// Unsubscribe before the session is destroyed so the final events do
	// not reach a stopped hub.
	app.OnStop(func(context.Context) error {
		adapter.Close()
		return nil
	})

	srv := server.New(cfg.Server, logger.Get("server"))
	srv.RegisterDefaultEndpoints(endpoint.Checks{
		Service: cfg.Name,
		Checker: app.Components.HealthAll,
		Speech: func() endpoint.SpeechStatus {
			snap := sess.Snapshot()
			return endpoint.SpeechStatus{
				Backend:   backend.Name(),
				Locale:    snap.Locale,
				State:     snap.State.String(),
				Available: snap.Available,
				Listening: snap.State == session.StateListening,
			}
		},
	})
	srv.RegisterSpeechRoutes(hub.Hub(), adapter, cfg.Speech.MethodPrefix)

	for _, c := range []component.Component{session.NewComponent(sess), hub, server.NewComponent(srv)} {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}
	return srv, nil
}
