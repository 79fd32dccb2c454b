package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcast/core/fleet"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/planner"
)

// selectionFlags override the configured selection of a planning run.
type selectionFlags struct {
	target    string
	months    int
	dayType   string
	terminal  string
	side      string
	strategy  string
	large     bool
	days      []int
	overrides []string
	file      string
}

func (f *selectionFlags) register(cmd *cobra.Command, fleetFlags bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.target, "target", "t", "", "target month YYYY-MM (default next month)")
	fs.IntVarP(&f.months, "months", "m", 0, "historical months: 2, 3 or 6")
	fs.StringVar(&f.dayType, "day-type", "", "all, weekday or weekend")
	fs.StringVar(&f.terminal, "terminal", "", "restrict counts to one terminal")
	fs.StringVar(&f.side, "side", "", "terminal side: any, sender or receiver")
	if !fleetFlags {
		return
	}
	fs.StringVarP(&f.strategy, "strategy", "s", "", "allocation strategy: cost or capacity")
	fs.BoolVar(&f.large, "large", true, "allow large trucks (--large=false to disable)")
	fs.IntSliceVar(&f.days, "days", nil, "only plan these days of month")
	fs.StringArrayVarP(&f.overrides, "override", "o", nil, "manual fleet as DAY=REGULAR[:LARGE], repeatable")
	fs.StringVar(&f.file, "overrides", "", "YAML or JSON overrides file")
}

// apply layers the flags that were set on top of req.
func (f *selectionFlags) apply(cmd *cobra.Command, req *planner.Request) error {
	fs := cmd.Flags()
	if f.target != "" {
		k, err := model.ParseMonthKey(f.target)
		if err != nil {
			return err
		}
		req.Target = k
	}
	if f.months != 0 {
		req.HistoricalMonths = f.months
	}
	if f.dayType != "" {
		d, err := model.ParseDayType(f.dayType)
		if err != nil {
			return err
		}
		req.DayType = d
	}
	if fs.Changed("terminal") {
		req.Terminal.Name = f.terminal
	}
	if f.side != "" {
		s, err := model.ParseTerminalSide(f.side)
		if err != nil {
			return err
		}
		req.Terminal.Side = s
	}
	if f.strategy != "" {
		s, err := model.ParseStrategy(f.strategy)
		if err != nil {
			return err
		}
		req.Strategy = s
	}
	if fs.Changed("large") {
		req.UseLargeTrucks = f.large
	}
	if len(f.days) > 0 {
		req.Days = f.days
	}
	if f.file != "" {
		o, err := fleet.LoadOverrides(f.file)
		if err != nil {
			return err
		}
		req.Overrides = o
	}
	for _, s := range f.overrides {
		day, c, err := parseOverride(s)
		if err != nil {
			return err
		}
		if req.Overrides == nil {
			req.Overrides = model.Overrides{}
		}
		req.Overrides[day] = c
	}
	return nil
}

// parseOverride reads DAY=REGULAR[:LARGE].
func parseOverride(s string) (int, model.TruckCount, error) {
	bad := fmt.Errorf("%w: override %q must be DAY=REGULAR[:LARGE]", model.ErrInvalidConfiguration, s)
	dayPart, fleetPart, ok := strings.Cut(s, "=")
	if !ok {
		return 0, model.TruckCount{}, bad
	}
	day, err := strconv.Atoi(strings.TrimSpace(dayPart))
	if err != nil || day < 1 || day > 31 {
		return 0, model.TruckCount{}, bad
	}
	regPart, largePart, hasLarge := strings.Cut(fleetPart, ":")
	var c model.TruckCount
	if c.Regular, err = strconv.Atoi(strings.TrimSpace(regPart)); err != nil || c.Regular < 0 {
		return 0, model.TruckCount{}, bad
	}
	if hasLarge {
		if c.Large, err = strconv.Atoi(strings.TrimSpace(largePart)); err != nil || c.Large < 0 {
			return 0, model.TruckCount{}, bad
		}
	}
	return day, c, nil
}
