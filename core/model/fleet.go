package model

import "fmt"

// ForecastPoint is the projected package volume for one day of the target month.
type ForecastPoint struct {
	Day         int `json:"day"`
	Forecast    int `json:"forecast"`
	ForecastMin int `json:"forecast_min"`
	ForecastMax int `json:"forecast_max"`
}

// Strategy selects how the allocator trades truck count against capacity.
type Strategy int

const (
	// StrategyCost minimises truck count, preferring regular trucks.
	StrategyCost Strategy = iota
	// StrategyCapacity maximises per-vehicle capacity, preferring large trucks.
	StrategyCapacity
)

func (s Strategy) String() string {
	switch s {
	case StrategyCost:
		return "cost"
	case StrategyCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// ParseStrategy converts "cost" or "capacity". Empty means cost.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "cost":
		return StrategyCost, nil
	case "capacity":
		return StrategyCapacity, nil
	default:
		return StrategyCost, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfiguration, s)
	}
}

// TruckCount is a number of regular and large trucks.
type TruckCount struct {
	Regular int `json:"regular" yaml:"regular"`
	Large   int `json:"large" yaml:"large"`
}

// Total returns the number of trucks of both classes.
func (c TruckCount) Total() int { return c.Regular + c.Large }

// Overrides maps a day of month to a manually assigned fleet.
type Overrides map[int]TruckCount

// FleetRequirement is the fleet sizing for one forecast day. The Regular and
// Large truck fields hold the heuristic recommendation; the Assigned fields
// differ from them only when an operator override exists for the day.
type FleetRequirement struct {
	Day                   int  `json:"day"`
	Packages              int  `json:"packages"`
	RegularTrucks         int  `json:"regular_trucks"`
	LargeTrucks           int  `json:"large_trucks"`
	TotalTrucks           int  `json:"total_trucks"`
	RegularCapacity       int  `json:"regular_capacity"`
	LargeCapacity         int  `json:"large_capacity"`
	TotalCapacity         int  `json:"total_capacity"`
	AssignedRegularTrucks int  `json:"assigned_regular_trucks"`
	AssignedLargeTrucks   int  `json:"assigned_large_trucks"`
	AssignedCapacity      int  `json:"assigned_capacity"`
	RemainingPackages     int  `json:"remaining_packages"`
	SurplusCapacity       int  `json:"surplus_capacity"`
	Overridden            bool `json:"overridden"`
}

// AssignedTrucks returns the number of trucks actually assigned for the day.
func (r FleetRequirement) AssignedTrucks() int {
	return r.AssignedRegularTrucks + r.AssignedLargeTrucks
}

// FleetSummary aggregates a list of fleet requirements.
type FleetSummary struct {
	Days                  int     `json:"days"`
	TotalPackages         int     `json:"total_packages"`
	TotalRegularTrucks    int     `json:"total_regular_trucks"`
	TotalLargeTrucks      int     `json:"total_large_trucks"`
	TotalTrucks           int     `json:"total_trucks"`
	TotalAssignedCapacity int     `json:"total_assigned_capacity"`
	TotalRemaining        int     `json:"total_remaining"`
	AdditionalCapacity    int     `json:"additional_capacity"`
	PeakDay               int     `json:"peak_day"`
	PeakTrucks            int     `json:"peak_trucks"`
	AverageTrucksPerDay   float64 `json:"average_trucks_per_day"`
}
