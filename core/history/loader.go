package history

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fleetcast/core/logger"
	"github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/monitoring"
)

// AllowedMonths lists the supported history window lengths.
var AllowedMonths = []int{2, 3, 6}

// ValidateMonths rejects window lengths other than AllowedMonths.
func ValidateMonths(n int) error {
	if !slices.Contains(AllowedMonths, n) {
		return fmt.Errorf("%w: historical months must be one of %v, got %d", model.ErrInvalidConfiguration, AllowedMonths, n)
	}
	return nil
}

// Config bounds the parallel month fetch.
type Config struct {
	Concurrency    int `json:"concurrency"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Timeout returns the per-month fetch deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window is the history assembled for one target month.
type Window struct {
	Target model.MonthKey
	// Batches holds the months with data, oldest first.
	Batches model.HistoricalWindow
	// Empty lists months whose counts were all zero.
	Empty []model.MonthKey
	// Failed lists months whose fetch failed or timed out.
	Failed []model.MonthFailure
}

// Months returns the keys of the included batches.
func (w Window) Months() []model.MonthKey {
	out := make([]model.MonthKey, len(w.Batches))
	for i, b := range w.Batches {
		out[i] = b.Key
	}
	return out
}

// Loader fetches the months preceding a target in parallel.
type Loader struct {
	src     Source
	cfg     Config
	log     logger.Logger
	metrics metrics.FetchRecorder
	now     func() time.Time
}

// NewLoader returns a Loader. A nil recorder disables fetch metrics.
func NewLoader(src Source, cfg Config, log logger.Logger, rec metrics.FetchRecorder) *Loader {
	cfg.SetDefaults()
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Loader{src: src, cfg: cfg, log: logger.OrNop(log), metrics: rec, now: time.Now}
}

type fetchResult struct {
	batch model.MonthBatch
	err   error
}

// Load fetches the months preceding target. A month that fails is logged,
// reported and excluded. All-zero months are excluded. Load only returns an
// error for invalid input or when ctx is done.
func (l *Loader) Load(ctx context.Context, target model.MonthKey, months int, filter model.TerminalFilter) (Window, error) {
	if err := target.Validate(); err != nil {
		return Window{}, err
	}
	if err := ValidateMonths(months); err != nil {
		return Window{}, err
	}

	keys := make([]model.MonthKey, months)
	k := target
	for i := months - 1; i >= 0; i-- {
		k = k.Prev()
		keys[i] = k
	}

	results := make([]fetchResult, months)
	var g errgroup.Group
	g.SetLimit(l.cfg.Concurrency)
	for i, key := range keys {
		g.Go(func() error {
			results[i] = l.fetch(ctx, key, filter)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	w := Window{Target: target}
	for i, r := range results {
		switch {
		case r.err != nil:
			w.Failed = append(w.Failed, model.MonthFailure{Month: keys[i], Error: r.err.Error()})
		case !r.batch.HasData():
			w.Empty = append(w.Empty, keys[i])
		default:
			w.Batches = append(w.Batches, r.batch)
		}
	}
	l.log.Debugw("history loaded", map[string]any{
		"target":   target.String(),
		"terminal": filter.Label(),
		"included": len(w.Batches),
		"empty":    len(w.Empty),
		"failed":   len(w.Failed),
	})
	return w, nil
}

func (l *Loader) fetch(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) fetchResult {
	start := l.now()
	fctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout())
	defer cancel()

	obs, err := l.src.FetchDailyCounts(fctx, key, filter)
	if err == nil {
		err = fctx.Err()
	}
	ev := model.FetchEvent{
		Month:    key,
		Terminal: filter.Label(),
		Duration: l.now().Sub(start),
		Time:     start,
	}
	if err != nil {
		ev.Status = model.FetchFailed
		ev.Error = err.Error()
		l.record(ev)
		if ctx.Err() == nil {
			l.log.Warnf("history: month %s for %s excluded: %v", key, filter.Label(), err)
			monitoring.CaptureException(err, map[string]string{
				"component": "history",
				"month":     key.String(),
				"terminal":  filter.Label(),
			})
		}
		return fetchResult{err: err}
	}

	b := model.MonthBatch{Key: key, Observations: normalize(key, obs)}
	ev.Days = len(b.Observations)
	ev.Total = b.Total()
	ev.Status = model.FetchOK
	if !b.HasData() {
		ev.Status = model.FetchEmpty
	}
	l.record(ev)
	return fetchResult{batch: b}
}

func (l *Loader) record(ev model.FetchEvent) {
	if err := l.metrics.RecordFetch(ev); err != nil {
		l.log.Debugf("history: record fetch metrics: %v", err)
	}
}
