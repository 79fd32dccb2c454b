package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/journal"
	"github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/infra/monitoring"
	"github.com/kilianp07/fleetcast/infra/mqtt"
	"github.com/kilianp07/fleetcast/infra/source/cache"
)

// EnvPrefix marks environment variables that override file settings.
// K_FORECAST__HISTORICAL_MONTHS=6 sets forecast.historical_months.
const EnvPrefix = "K_"

type Config struct {
	Forecast ForecastConfig       `json:"forecast"`
	Fleet    FleetConfig          `json:"fleet"`
	Source   factory.ModuleConfig `json:"source"`
	Cache    cache.Config         `json:"cache"`
	Loader   history.Config       `json:"loader"`
	Metrics  metrics.Config       `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Sentry   monitoring.Config    `json:"sentry"`
	Logging  LoggingConfig        `json:"logging"`
	Journal  journal.Config       `json:"journal"`
}

// Load reads path, when not empty, then applies K_ environment overrides.
// Variables from a .env file in the working directory are exported first
// without replacing ones already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Forecast.SetDefaults()
	c.Fleet.SetDefaults()
	if c.Source.Type == "" {
		c.Source.Type = "memory"
	}
	c.Cache.SetDefaults()
	c.Loader.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.Journal.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Forecast.Validate(); err != nil {
		return err
	}
	if err := c.Fleet.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Journal.Validate()
}
