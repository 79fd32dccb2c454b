package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetcast/core/fleet"
	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/logger"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// Request selects what to plan.
type Request struct {
	Target           model.MonthKey
	Terminal         model.TerminalFilter
	DayType          model.DayType
	HistoricalMonths int
	Strategy         model.Strategy
	UseLargeTrucks   bool
	// Days optionally restricts allocation to a subset of forecast days.
	Days      []int
	Overrides model.Overrides
}

// PlanEvent is published on the bus after every successful run.
type PlanEvent struct {
	Plan     *model.Plan
	Duration time.Duration
}

// WindowLoader assembles the history for a target month.
type WindowLoader interface {
	Load(ctx context.Context, target model.MonthKey, months int, filter model.TerminalFilter) (history.Window, error)
}

// Planner runs fetch, forecast, allocation and summary for one selection.
type Planner struct {
	loader WindowLoader
	engine forecast.Engine
	alloc  *fleet.Allocator
	bus    *eventbus.Bus[PlanEvent]
	log    logger.Logger
	now    func() time.Time
}

// New returns a planner. bus may be nil.
func New(loader WindowLoader, alloc *fleet.Allocator, bus *eventbus.Bus[PlanEvent], log logger.Logger) *Planner {
	return &Planner{
		loader: loader,
		engine: forecast.NewEngine(),
		alloc:  alloc,
		bus:    bus,
		log:    logger.OrNop(log),
		now:    time.Now,
	}
}

// DefaultTarget returns the calendar month following now.
func DefaultTarget(now time.Time) model.MonthKey {
	return model.NewMonthKey(now).Next()
}

// Plan computes a plan with the request overrides.
func (p *Planner) Plan(ctx context.Context, req Request) (*model.Plan, error) {
	return p.plan(ctx, req, nil)
}

// PlanSession computes a plan using the overrides held by sess. The session
// is bound to the forecast days first, so overrides made against a different
// forecast are dropped. Request overrides apply underneath session ones.
func (p *Planner) PlanSession(ctx context.Context, req Request, sess *fleet.Session) (*model.Plan, error) {
	return p.plan(ctx, req, sess)
}

func (p *Planner) plan(ctx context.Context, req Request, sess *fleet.Session) (*model.Plan, error) {
	start := p.now()
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}
	if err := history.ValidateMonths(req.HistoricalMonths); err != nil {
		return nil, err
	}
	if !req.DayType.Valid() {
		return nil, fmt.Errorf("%w: day type %d", model.ErrInvalidConfiguration, req.DayType)
	}

	w, err := p.loader.Load(ctx, req.Target, req.HistoricalMonths, req.Terminal)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	fitted, points, err := p.engine.Forecast(w.Batches, req.DayType, req.Target)
	if err != nil {
		return nil, err
	}
	days, err := selectDays(points, req.Days, req.Target)
	if err != nil {
		return nil, err
	}

	overrides := make(model.Overrides, len(req.Overrides))
	for d, c := range req.Overrides {
		overrides[d] = c
	}
	if sess != nil {
		if sess.Bind(days) {
			p.log.Infof("planner: forecast days changed, overrides cleared")
		}
		for d, c := range sess.Snapshot() {
			overrides[d] = c
		}
	}
	reqs, err := p.alloc.Allocate(days, fleet.Options{Strategy: req.Strategy, UseLarge: req.UseLargeTrucks}, overrides)
	if err != nil {
		return nil, err
	}

	caps := p.alloc.Capacities()
	plan := &model.Plan{
		ID:          uuid.NewString(),
		GeneratedAt: start.UTC(),
		Status:      status(w),
		Selection: model.PlanSelection{
			Target:           req.Target,
			Terminal:         req.Terminal,
			DayType:          req.DayType.String(),
			HistoricalMonths: req.HistoricalMonths,
			Strategy:         req.Strategy.String(),
			UseLargeTrucks:   req.UseLargeTrucks,
			RegularCapacity:  caps.Regular,
			LargeCapacityMin: caps.LargeMin,
			LargeCapacityMax: caps.LargeMax,
		},
		Included: w.Months(),
		Empty:    w.Empty,
		Failed:   w.Failed,
		Trend:    fitted.Trend,
		Forecast: days,
		Fleet:    reqs,
		Summary:  fleet.Summarize(reqs),
	}

	elapsed := p.now().Sub(start)
	if p.bus != nil {
		p.bus.Publish(PlanEvent{Plan: plan, Duration: elapsed})
	}
	p.log.Infow("plan computed", map[string]any{
		"plan_id":        plan.ID,
		"target":         req.Target.String(),
		"terminal":       req.Terminal.Label(),
		"status":         string(plan.Status),
		"days":           plan.Summary.Days,
		"forecast_total": plan.ForecastTotal(),
		"trucks":         plan.Summary.TotalTrucks,
		"deficit":        plan.Summary.TotalRemaining,
		"failed_months":  len(w.Failed),
		"duration_ms":    elapsed.Milliseconds(),
	})
	return plan, nil
}

func status(w history.Window) model.PlanStatus {
	switch len(w.Batches) {
	case 0:
		return model.PlanNoData
	case 1:
		return model.PlanInsufficientHistory
	default:
		return model.PlanOK
	}
}

// selectDays keeps the points whose day is listed. An empty list keeps all.
func selectDays(points []model.ForecastPoint, days []int, target model.MonthKey) ([]model.ForecastPoint, error) {
	if len(days) == 0 {
		return points, nil
	}
	want := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 1 || d > target.DaysIn() {
			return nil, fmt.Errorf("%w: day %d not in %s", model.ErrInvalidConfiguration, d, target)
		}
		want[d] = true
	}
	out := make([]model.ForecastPoint, 0, len(days))
	for _, p := range points {
		if want[p.Day] {
			out = append(out, p)
		}
	}
	return out, nil
}
