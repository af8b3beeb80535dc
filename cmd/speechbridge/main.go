// Command speechbridge exposes a speech recognition session to a host
// application over HTTP, Server-Sent Events and WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/speechbridge/bootstrap"
	"github.com/kbukum/speechbridge/config"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/version"
)

func main() {
	configFile := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env-file", "", "path to a .env file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(serviceName, version.Get())
		return
	}

	if err := run(context.Background(), *configFile, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, envFile string) error {
	cfg, err := loadConfig(configFile, envFile)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	metrics, err := initTelemetry(ctx, app)
	if err != nil {
		return err
	}
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	if _, err := wire(app, backend, metrics); err != nil {
		return err
	}

	app.Logger.Info("speech backend configured", map[string]interface{}{
		logger.FieldBackend: backend.Name(),
		logger.FieldLocale:  cfg.Speech.Locale,
		"azure":             cfg.Speech.Azure.String(),
		"offline_install":   cfg.Remediation.OfflineInstall.Enabled(),
	})

	return app.Run(ctx)
}

func loadConfig(configFile, envFile string) (*Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	cfg := defaultConfig()
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	return cfg, nil
}
