package main

import (
	"fmt"

	"github.com/kbukum/speechbridge/bridge"
	"github.com/kbukum/speechbridge/config"
	"github.com/kbukum/speechbridge/observability"
	"github.com/kbukum/speechbridge/platform"
	"github.com/kbukum/speechbridge/recognizer"
	"github.com/kbukum/speechbridge/recognizer/azure"
	"github.com/kbukum/speechbridge/server"
)

const serviceName = "speechbridge"

// Config is the complete bridge configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Speech        SpeechConfig         `yaml:"speech" mapstructure:"speech"`
	Remediation   RemediationConfig    `yaml:"remediation" mapstructure:"remediation"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// SpeechConfig selects the backend and the session defaults.
type SpeechConfig struct {
	Backend      string             `yaml:"backend" mapstructure:"backend"`
	Locale       string             `yaml:"locale" mapstructure:"locale"`
	MethodPrefix string             `yaml:"method_prefix" mapstructure:"method_prefix"`
	Recognizer   recognizer.Options `yaml:"recognizer" mapstructure:"recognizer"`
	Azure        azure.Config       `yaml:"azure" mapstructure:"azure"`
}

// RemediationConfig configures what happens when an offline language
// pack is missing.
type RemediationConfig struct {
	OfflineInstall platform.LauncherConfig `yaml:"offline_install" mapstructure:"offline_install"`
}

// defaultConfig seeds values the loader leaves alone when unset.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Name = serviceName
	cfg.Speech.Recognizer = recognizer.DefaultOptions()
	return cfg
}

// ApplyDefaults fills unset fields across all sections.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Speech.Backend == "" {
		c.Speech.Backend = azure.Name
	}
	if c.Speech.Locale == "" {
		c.Speech.Locale = recognizer.DefaultLocale.String()
	}
	if c.Speech.MethodPrefix == "" {
		c.Speech.MethodPrefix = bridge.DefaultPrefix
	}
	c.Speech.Recognizer.ApplyDefaults()
	c.Remediation.OfflineInstall.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if _, err := c.Speech.ParsedLocale(); err != nil {
		return fmt.Errorf("speech.locale: %w", err)
	}
	if err := c.Speech.Recognizer.Validate(); err != nil {
		return fmt.Errorf("speech.recognizer: %w", err)
	}
	switch c.Speech.Backend {
	case azure.Name:
		if err := c.Speech.Azure.Validate(); err != nil {
			return fmt.Errorf("speech.azure: %w", err)
		}
	default:
		return fmt.Errorf("speech.backend: unknown backend %q", c.Speech.Backend)
	}
	if err := c.Remediation.OfflineInstall.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// ParsedLocale returns the configured default locale.
func (s SpeechConfig) ParsedLocale() (recognizer.Locale, error) {
	return recognizer.ParseLocale(s.Locale)
}
