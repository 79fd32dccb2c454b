package metrics

import (
	"fmt"

	"github.com/kilianp07/fleetcast/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort enables the /metrics endpoint when positive.
	PrometheusPort int `json:"prometheus_port"`
}

// Validate checks the port range.
func (c Config) Validate() error {
	if c.PrometheusPort < 0 || c.PrometheusPort > 65535 {
		return fmt.Errorf("metrics: prometheus_port %d out of range", c.PrometheusPort)
	}
	return nil
}
