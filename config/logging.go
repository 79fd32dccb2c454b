package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/fleetcast/core/model"
)

// LoggingConfig controls application log output.
type LoggingConfig struct {
	// Level is a zerolog level name such as debug or info.
	Level string `json:"level"`
	// Format is "json" or "console".
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// Validate checks the level and format names.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: logging level %q", model.ErrInvalidConfiguration, c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("%w: logging format %q", model.ErrInvalidConfiguration, c.Format)
	}
	return nil
}
