package ws

import (
	"fmt"
	"time"
)

// Config tunes WebSocket connections.
type Config struct {
	// ReadLimit caps inbound frame size in bytes.
	ReadLimit int64 `yaml:"read_limit" mapstructure:"read_limit"`
	// PongWait is how long a connection may stay silent before it is dropped.
	PongWait time.Duration `yaml:"pong_wait" mapstructure:"pong_wait"`
	// PingInterval must be shorter than PongWait.
	PingInterval time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	// WriteWait bounds a single frame write.
	WriteWait time.Duration `yaml:"write_wait" mapstructure:"write_wait"`
	// AllowedOrigins restricts the Origin header; empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.ReadLimit == 0 {
		c.ReadLimit = 64 * 1024
	}
	if c.PongWait == 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait == 0 {
		c.WriteWait = 10 * time.Second
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.ReadLimit < 0 {
		return fmt.Errorf("ws: read_limit must not be negative")
	}
	if c.PingInterval >= c.PongWait {
		return fmt.Errorf("ws: ping_interval (%s) must be shorter than pong_wait (%s)", c.PingInterval, c.PongWait)
	}
	return nil
}
