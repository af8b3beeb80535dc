package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/recognizer"
	"github.com/kbukum/speechbridge/resilience"
)

// LauncherConfig configures the offline language pack launcher. Args may
// contain {locale} ("en_US"), {bcp47} ("en-US") and {lang} ("en").
type LauncherConfig struct {
	Binary      string        `yaml:"binary" mapstructure:"binary"`
	Args        []string      `yaml:"args" mapstructure:"args"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// Retry repeats a failed launch; one attempt by default.
	Retry resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Breaker stops launching after repeated failures.
	Breaker resilience.BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// ApplyDefaults fills zero values.
func (c *LauncherConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 2 * time.Second
	}
	if c.Breaker.Name == "" {
		c.Breaker.Name = "offline-install"
	}
	c.Retry.ApplyDefaults()
	c.Breaker.ApplyDefaults()
}

// Validate checks the configuration. An empty Binary disables the launcher.
func (c *LauncherConfig) Validate() error {
	if c.Binary == "" && len(c.Args) > 0 {
		return fmt.Errorf("remediation: args given without a binary")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("remediation: timeout must be non-negative (got: %s)", c.Timeout)
	}
	return nil
}

// Enabled reports whether a binary is configured.
func (c *LauncherConfig) Enabled() bool { return c.Binary != "" }

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithRunner replaces subprocess execution, for tests.
func WithRunner(run RunFunc) LauncherOption {
	return func(l *Launcher) { l.run = run }
}

// WithLogger overrides the launcher's logger.
func WithLogger(log *logger.Logger) LauncherOption {
	return func(l *Launcher) { l.log = log }
}

// Launcher opens the offline language pack installer for a locale.
type Launcher struct {
	cfg     LauncherConfig
	run     RunFunc
	breaker *resilience.Breaker
	log     *logger.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg LauncherConfig, opts ...LauncherOption) *Launcher {
	cfg.ApplyDefaults()
	l := &Launcher{
		cfg: cfg,
		run: Run,
		log: logger.Get("platform"),
	}
	for _, opt := range opts {
		opt(l)
	}

	breakerCfg := cfg.Breaker
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		l.log.Info("launcher breaker state changed", map[string]interface{}{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		})
	}
	l.breaker = resilience.NewBreaker(breakerCfg)
	return l
}

// OfferOfflineInstall launches the installer. It is a no-op when no binary
// is configured.
func (l *Launcher) OfferOfflineInstall(ctx context.Context, locale recognizer.Locale) error {
	if !l.cfg.Enabled() {
		l.log.Debug("offline install launcher not configured")
		return nil
	}

	cmd := Command{
		Binary:      l.cfg.Binary,
		Args:        ExpandArgs(l.cfg.Args, locale),
		GracePeriod: l.cfg.GracePeriod,
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	err := l.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, l.cfg.Retry, func(ctx context.Context) error {
			res, err := l.run(ctx, cmd)
			if err != nil && res != nil && len(res.Stderr) > 0 {
				return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(res.Stderr)))
			}
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("launch offline install for %s: %w", locale, err)
	}

	l.log.Info("offline install offered", map[string]interface{}{
		logger.FieldLocale: locale.String(),
	})
	return nil
}

// ExpandArgs substitutes locale placeholders in args.
func ExpandArgs(args []string, locale recognizer.Locale) []string {
	r := strings.NewReplacer(
		"{locale}", locale.String(),
		"{bcp47}", locale.BCP47(),
		"{lang}", locale.Language,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
