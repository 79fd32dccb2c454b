// Package source selects the daily-count backend named in configuration.
// Backends live in sub-packages and register themselves on import.
package source

import (
	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/history"
)

var registry = factory.NewRegistry[history.Source]()

// Register adds a source factory identified by name.
func Register(name string, f factory.Factory[history.Source]) error {
	return registry.Register(name, f)
}

// MustRegister is Register for backend init blocks.
func MustRegister(name string, f factory.Factory[history.Source]) {
	registry.MustRegister(name, f)
}

// New creates the source described by cfg.
func New(cfg factory.ModuleConfig) (history.Source, error) {
	return registry.Create(cfg)
}

// Types lists the registered backends.
func Types() []string { return registry.Types() }
