package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/fleetcast/core/fleet"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/planner"
)

// ForecastConfig holds the default selection of a planning run.
type ForecastConfig struct {
	// Target is the month to forecast as YYYY-MM. Empty means next month.
	Target           string `json:"target"`
	HistoricalMonths int    `json:"historical_months"`
	DayType          string `json:"day_type"`
	Terminal         string `json:"terminal"`
	Side             string `json:"side"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.HistoricalMonths == 0 {
		c.HistoricalMonths = 3
	}
	if c.DayType == "" {
		c.DayType = model.DayTypeAll.String()
	}
}

// Validate parses every field once.
func (c ForecastConfig) Validate() error {
	if c.Target != "" {
		if _, err := model.ParseMonthKey(c.Target); err != nil {
			return err
		}
	}
	if err := history.ValidateMonths(c.HistoricalMonths); err != nil {
		return err
	}
	if _, err := model.ParseDayType(c.DayType); err != nil {
		return err
	}
	_, err := model.ParseTerminalSide(c.Side)
	return err
}

// FleetConfig holds allocator settings.
type FleetConfig struct {
	Strategy string `json:"strategy"`
	// UseLargeTrucks is nil when unset and then defaults to true.
	UseLargeTrucks        *bool `json:"use_large_trucks"`
	RegularTruckCapacity  int   `json:"regular_truck_capacity"`
	LargeTruckCapacityMin int   `json:"large_truck_capacity_min"`
	LargeTruckCapacityMax int   `json:"large_truck_capacity_max"`
	// OverridesFile optionally points to a YAML or JSON day to fleet map.
	OverridesFile string `json:"overrides_file"`
}

// SetDefaults applies the stock capacities to unset fields.
func (c *FleetConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = model.StrategyCost.String()
	}
	if c.UseLargeTrucks == nil {
		large := true
		c.UseLargeTrucks = &large
	}
	def := fleet.DefaultCapacities()
	if c.RegularTruckCapacity == 0 {
		c.RegularTruckCapacity = def.Regular
	}
	if c.LargeTruckCapacityMin == 0 {
		c.LargeTruckCapacityMin = def.LargeMin
	}
	if c.LargeTruckCapacityMax == 0 {
		c.LargeTruckCapacityMax = def.LargeMax
	}
}

// LargeTrucks reports whether large trucks may be assigned.
func (c FleetConfig) LargeTrucks() bool {
	return c.UseLargeTrucks == nil || *c.UseLargeTrucks
}

// Capacities returns the allocator capacities.
func (c FleetConfig) Capacities() fleet.Capacities {
	return fleet.Capacities{
		Regular:  c.RegularTruckCapacity,
		LargeMin: c.LargeTruckCapacityMin,
		LargeMax: c.LargeTruckCapacityMax,
	}
}

// Validate checks the strategy and capacities.
func (c FleetConfig) Validate() error {
	if _, err := model.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	return c.Capacities().Validate()
}

// Request builds the planner request for the configured selection. The
// target defaults to the month after now.
func (c *Config) Request(now time.Time) (planner.Request, error) {
	target := planner.DefaultTarget(now)
	if c.Forecast.Target != "" {
		k, err := model.ParseMonthKey(c.Forecast.Target)
		if err != nil {
			return planner.Request{}, err
		}
		target = k
	}
	dayType, err := model.ParseDayType(c.Forecast.DayType)
	if err != nil {
		return planner.Request{}, err
	}
	side, err := model.ParseTerminalSide(c.Forecast.Side)
	if err != nil {
		return planner.Request{}, err
	}
	strategy, err := model.ParseStrategy(c.Fleet.Strategy)
	if err != nil {
		return planner.Request{}, err
	}
	req := planner.Request{
		Target:           target,
		Terminal:         model.TerminalFilter{Name: c.Forecast.Terminal, Side: side},
		DayType:          dayType,
		HistoricalMonths: c.Forecast.HistoricalMonths,
		Strategy:         strategy,
		UseLargeTrucks:   c.Fleet.LargeTrucks(),
	}
	if c.Fleet.OverridesFile != "" {
		o, err := fleet.LoadOverrides(c.Fleet.OverridesFile)
		if err != nil {
			return planner.Request{}, fmt.Errorf("overrides: %w", err)
		}
		req.Overrides = o
	}
	return req, nil
}
