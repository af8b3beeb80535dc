package logger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Config contains logging configuration.
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`

	// Components overrides Level for named component loggers, e.g.
	// {session: debug, ws: warn}.
	Components map[string]string `yaml:"components" mapstructure:"components"`
}

var levelNames = map[string]zerolog.Level{
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	if _, ok := levelNames[strings.ToLower(c.Level)]; !ok {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", knownLevels(), c.Level)
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole, FormatPretty:
	default:
		return fmt.Errorf("logging.format must be one of [%s %s %s] (got: %s)", FormatJSON, FormatConsole, FormatPretty, c.Format)
	}
	for name, lvl := range c.Components {
		if _, ok := levelNames[strings.ToLower(lvl)]; !ok {
			return fmt.Errorf("logging.components.%s must be one of %v (got: %s)", name, knownLevels(), lvl)
		}
	}
	return nil
}

// baseLevel is the configured level, info when unparsable.
func (c *Config) baseLevel() zerolog.Level {
	if l, ok := levelNames[strings.ToLower(c.Level)]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// componentLevels parses Components, skipping invalid entries.
func (c *Config) componentLevels() map[string]zerolog.Level {
	out := make(map[string]zerolog.Level, len(c.Components))
	for name, lvl := range c.Components {
		if l, ok := levelNames[strings.ToLower(lvl)]; ok {
			out[name] = l
		}
	}
	return out
}

// minLevel is the most verbose of the base and component levels. zerolog's
// global level is set to it so overrides below the base level still log.
func (c *Config) minLevel() zerolog.Level {
	lvl := c.baseLevel()
	for _, l := range c.componentLevels() {
		if l < lvl {
			lvl = l
		}
	}
	return lvl
}

func knownLevels() []string {
	names := make([]string, 0, len(levelNames))
	for n := range levelNames {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return levelNames[names[i]] < levelNames[names[j]] })
	return names
}
