package azure

import (
	"fmt"

	"github.com/kbukum/speechbridge/util"
	"github.com/kbukum/speechbridge/validation"
)

// Name is the backend's registered name.
const Name = "azure"

// Config holds the Azure subscription used by the backend.
type Config struct {
	Key    string `yaml:"key" mapstructure:"key" validate:"required"`
	Region string `yaml:"region" mapstructure:"region" validate:"required"`
	// Endpoint overrides the region endpoint, e.g. a private container.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// Validate checks that a subscription is configured.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("azure config: %w", err)
	}
	return nil
}

// String renders the config for logs with the key masked.
func (c Config) String() string {
	s := fmt.Sprintf("region=%s key=%s", c.Region, util.MaskSecret(c.Key, 4))
	if c.Endpoint != "" {
		s += " endpoint=" + c.Endpoint
	}
	return s
}

// ToMap renders the config in the shape Factory expects.
func (c Config) ToMap() map[string]any {
	return map[string]any{"key": c.Key, "region": c.Region, "endpoint": c.Endpoint}
}

func configFromMap(cfg map[string]any) Config {
	var c Config
	c.Key, _ = cfg["key"].(string)
	c.Region, _ = cfg["region"].(string)
	c.Endpoint, _ = cfg["endpoint"].(string)
	return c
}
