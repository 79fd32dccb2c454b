// Package memory provides generated daily counts for demos and tests.
package memory

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/source"
)

func init() {
	source.MustRegister("memory", func(conf map[string]any) (history.Source, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c), nil
	})
}

// Config shapes the generated series.
type Config struct {
	// Base is the weekday volume of the reference month.
	Base int `json:"base"`
	// WeekendFactor scales Saturday and Sunday volumes.
	WeekendFactor float64 `json:"weekend_factor"`
	// MonthlyGrowth is the relative growth per month after the reference.
	MonthlyGrowth float64 `json:"monthly_growth"`
	// Noise is the relative amplitude of the deterministic day jitter.
	Noise float64 `json:"noise"`
	// Reference anchors the growth curve, as YYYY-MM. Empty means 2025-01.
	Reference string `json:"reference"`
}

// SetDefaults applies demo defaults.
func (c *Config) SetDefaults() {
	if c.Base <= 0 {
		c.Base = 4000
	}
	if c.WeekendFactor <= 0 {
		c.WeekendFactor = 0.35
	}
	if c.Reference == "" {
		c.Reference = "2025-01"
	}
}

// Source generates counts as a pure function of month, day and terminal.
type Source struct {
	cfg Config
	ref model.MonthKey
}

// New returns a generated source.
func New(cfg Config) *Source {
	cfg.SetDefaults()
	ref, err := model.ParseMonthKey(cfg.Reference)
	if err != nil {
		ref = model.MonthKey{Year: 2025, Month: 1}
	}
	return &Source{cfg: cfg, ref: ref}
}

func monthsBetween(a, b model.MonthKey) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}

// jitter maps (terminal, date) to [-1, 1].
func jitter(label string, key model.MonthKey, day int) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	_, _ = h.Write([]byte(key.Date(day).Format("20060102")))
	return float64(h.Sum32()%2001)/1000 - 1
}

// FetchDailyCounts implements history.Source.
func (s *Source) FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	scale := 1.0
	if !filter.IsEmpty() {
		// A single terminal carries a share of the network volume.
		scale = 0.1 + 0.2*(jitter(filter.Name, s.ref, 1)+1)/2
		if filter.Side != model.SideAny {
			scale /= 2
		}
	}
	growth := math.Pow(1+s.cfg.MonthlyGrowth, float64(monthsBetween(s.ref, key)))
	counts := make(map[int]int, key.DaysIn())
	for d := 1; d <= key.DaysIn(); d++ {
		v := float64(s.cfg.Base) * growth * scale
		if !model.DayTypeWeekday.Matches(key.Weekday(d)) {
			v *= s.cfg.WeekendFactor
		}
		v *= 1 + s.cfg.Noise*jitter(filter.Label()+filter.Side.String(), key, d)
		counts[d] = int(math.Round(math.Max(v, 0)))
	}
	return history.FillMonth(key, counts), nil
}
