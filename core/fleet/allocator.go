package fleet

import (
	"fmt"
	"math"

	"github.com/kilianp07/fleetcast/core/model"
)

// LargeTruckRemainderRatio is the share of a regular truck's capacity above
// which a cost-strategy remainder goes to one large truck instead of one more
// regular truck.
const LargeTruckRemainderRatio = 0.6

// Default truck capacities in packages per truck.
const (
	DefaultRegularCapacity  = 2200
	DefaultLargeCapacityMin = 2400
	DefaultLargeCapacityMax = 2800
)

// Capacities holds packages-per-truck figures. LargeMin is informational and
// does not enter the allocation math.
type Capacities struct {
	Regular  int `json:"regular" mapstructure:"regular"`
	LargeMin int `json:"large_min" mapstructure:"large_min"`
	LargeMax int `json:"large_max" mapstructure:"large_max"`
}

// DefaultCapacities returns the stock truck capacities.
func DefaultCapacities() Capacities {
	return Capacities{
		Regular:  DefaultRegularCapacity,
		LargeMin: DefaultLargeCapacityMin,
		LargeMax: DefaultLargeCapacityMax,
	}
}

// Validate rejects capacities that would produce degenerate truck counts.
func (c Capacities) Validate() error {
	if c.Regular <= 0 {
		return fmt.Errorf("%w: regular truck capacity must be positive, got %d", model.ErrInvalidConfiguration, c.Regular)
	}
	if c.LargeMax <= 0 {
		return fmt.Errorf("%w: large truck max capacity must be positive, got %d", model.ErrInvalidConfiguration, c.LargeMax)
	}
	if c.LargeMin < 0 || c.LargeMin > c.LargeMax {
		return fmt.Errorf("%w: large truck min capacity %d outside [0, %d]", model.ErrInvalidConfiguration, c.LargeMin, c.LargeMax)
	}
	return nil
}

// Options selects the allocation heuristic.
type Options struct {
	Strategy model.Strategy
	// UseLarge gates large trucks regardless of strategy.
	UseLarge bool
}

// Allocator sizes a daily truck fleet from forecast package volumes.
type Allocator struct {
	caps Capacities
}

// NewAllocator validates caps and returns an allocator.
func NewAllocator(caps Capacities) (*Allocator, error) {
	if err := caps.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{caps: caps}, nil
}

// Capacities returns the capacities the allocator was built with.
func (a *Allocator) Capacities() Capacities { return a.caps }

// Allocate returns one requirement per forecast day, in input order.
// Overrides replace the assigned truck counts of their day; the heuristic
// recommendation is always reported alongside.
func (a *Allocator) Allocate(days []model.ForecastPoint, opts Options, overrides model.Overrides) ([]model.FleetRequirement, error) {
	switch opts.Strategy {
	case model.StrategyCost, model.StrategyCapacity:
	default:
		return nil, fmt.Errorf("%w: unknown strategy %d", model.ErrInvalidConfiguration, opts.Strategy)
	}
	for day, o := range overrides {
		if o.Regular < 0 || o.Large < 0 {
			return nil, fmt.Errorf("%w: negative override for day %d", model.ErrInvalidConfiguration, day)
		}
	}

	out := make([]model.FleetRequirement, 0, len(days))
	for _, p := range days {
		out = append(out, a.requirement(p, opts, overrides))
	}
	return out, nil
}

func (a *Allocator) requirement(p model.ForecastPoint, opts Options, overrides model.Overrides) model.FleetRequirement {
	packages := p.Forecast
	if packages <= 0 {
		return model.FleetRequirement{Day: p.Day}
	}

	var rec model.TruckCount
	if opts.Strategy == model.StrategyCapacity {
		rec = a.capacity(packages, opts.UseLarge)
	} else {
		rec = a.cost(packages, opts.UseLarge)
	}

	r := model.FleetRequirement{
		Day:             p.Day,
		Packages:        packages,
		RegularTrucks:   rec.Regular,
		LargeTrucks:     rec.Large,
		TotalTrucks:     rec.Total(),
		RegularCapacity: rec.Regular * a.caps.Regular,
		LargeCapacity:   rec.Large * a.caps.LargeMax,
	}
	r.TotalCapacity = r.RegularCapacity + r.LargeCapacity

	assigned := rec
	if o, ok := overrides[p.Day]; ok {
		assigned = o
		r.Overridden = true
	}
	r.AssignedRegularTrucks = assigned.Regular
	r.AssignedLargeTrucks = assigned.Large
	r.AssignedCapacity = assigned.Regular*a.caps.Regular + assigned.Large*a.caps.LargeMax
	r.RemainingPackages = max(0, packages-r.AssignedCapacity)
	r.SurplusCapacity = max(0, r.AssignedCapacity-packages)
	return r
}

// cost minimises truck count and prefers regular trucks. A remainder larger
// than LargeTruckRemainderRatio of a regular truck goes to one large truck
// when it fits.
func (a *Allocator) cost(packages int, useLarge bool) model.TruckCount {
	c := model.TruckCount{Regular: packages / a.caps.Regular}
	remainder := packages % a.caps.Regular
	if remainder == 0 {
		return c
	}
	if useLarge && remainder <= a.caps.LargeMax &&
		float64(remainder) > LargeTruckRemainderRatio*float64(a.caps.Regular) {
		c.Large = 1
		return c
	}
	c.Regular++
	return c
}

// capacity fills large trucks first and tops up with one regular truck when
// the remainder fits in it.
func (a *Allocator) capacity(packages int, useLarge bool) model.TruckCount {
	if !useLarge {
		return model.TruckCount{Regular: int(math.Ceil(float64(packages) / float64(a.caps.Regular)))}
	}
	c := model.TruckCount{Large: packages / a.caps.LargeMax}
	remainder := packages % a.caps.LargeMax
	switch {
	case remainder == 0:
	case remainder <= a.caps.Regular:
		c.Regular = 1
	default:
		c.Large++
	}
	return c
}
