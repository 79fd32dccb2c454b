package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/fleetcast/core/model"
)

// Source returns the daily package counts of one month, optionally restricted
// to a terminal. Days without shipments may be omitted or reported as zero.
type Source interface {
	FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error)

func (f SourceFunc) FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error) {
	return f(ctx, key, filter)
}

// FillMonth expands sparse day counts into one observation per day of key.
// Missing days are zero; days outside the month are ignored.
func FillMonth(key model.MonthKey, counts map[int]int) []model.DailyObservation {
	n := key.DaysIn()
	out := make([]model.DailyObservation, n)
	for d := 1; d <= n; d++ {
		v := counts[d]
		if v < 0 {
			v = 0
		}
		out[d-1] = model.DailyObservation{Day: d, Value: v, Date: key.Date(d)}
	}
	return out
}

// normalize sorts observations by day, drops days outside the month and sets
// missing dates.
func normalize(key model.MonthKey, obs []model.DailyObservation) []model.DailyObservation {
	out := make([]model.DailyObservation, 0, len(obs))
	for _, o := range obs {
		if o.Day < 1 || o.Day > key.DaysIn() {
			continue
		}
		if o.Date.IsZero() {
			o.Date = key.Date(o.Day)
		}
		if o.Value < 0 {
			o.Value = 0
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

type memKey struct {
	month  model.MonthKey
	filter model.TerminalFilter
}

// MemorySource serves counts from memory. It is deterministic and safe for
// concurrent use.
type MemorySource struct {
	mu     sync.RWMutex
	counts map[memKey]map[int]int
	errs   map[model.MonthKey]error
	calls  map[model.MonthKey]int
}

// NewMemorySource returns an empty source. Unknown months yield zero counts.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		counts: make(map[memKey]map[int]int),
		errs:   make(map[model.MonthKey]error),
		calls:  make(map[model.MonthKey]int),
	}
}

// Set stores the day counts of key for filter.
func (m *MemorySource) Set(key model.MonthKey, filter model.TerminalFilter, counts map[int]int) {
	c := make(map[int]int, len(counts))
	for d, v := range counts {
		c[d] = v
	}
	m.mu.Lock()
	m.counts[memKey{key, filter}] = c
	m.mu.Unlock()
}

// SetConstant stores value for every day of key.
func (m *MemorySource) SetConstant(key model.MonthKey, filter model.TerminalFilter, value int) {
	c := make(map[int]int, key.DaysIn())
	for d := 1; d <= key.DaysIn(); d++ {
		c[d] = value
	}
	m.Set(key, filter, c)
}

// Fail makes every fetch of key return err.
func (m *MemorySource) Fail(key model.MonthKey, err error) {
	m.mu.Lock()
	m.errs[key] = err
	m.mu.Unlock()
}

// Calls returns how many times key was fetched.
func (m *MemorySource) Calls(key model.MonthKey) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[key]
}

func (m *MemorySource) FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls[key]++
	err := m.errs[key]
	counts := m.counts[memKey{key, filter}]
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return FillMonth(key, counts), nil
}
