package journal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/fleetcast/core/model"
)

// Record is the journal entry of one planning run.
type Record struct {
	PlanID           string             `json:"plan_id"`
	Timestamp        time.Time          `json:"timestamp"`
	Target           model.MonthKey     `json:"target"`
	Terminal         string             `json:"terminal"`
	Status           model.PlanStatus   `json:"status"`
	Strategy         string             `json:"strategy"`
	HistoricalMonths int                `json:"historical_months"`
	Included         []model.MonthKey   `json:"included_months"`
	FailedMonths     int                `json:"failed_months"`
	ForecastPackages int                `json:"forecast_packages"`
	Overridden       int                `json:"overridden_days"`
	Summary          model.FleetSummary `json:"summary"`
	DurationMS       int64              `json:"duration_ms"`
}

// FromPlan builds the record of p, computed in d.
func FromPlan(p *model.Plan, d time.Duration) Record {
	overridden := 0
	for _, r := range p.Fleet {
		if r.Overridden {
			overridden++
		}
	}
	return Record{
		PlanID:           p.ID,
		Timestamp:        p.GeneratedAt,
		Target:           p.Selection.Target,
		Terminal:         p.Selection.Terminal.Label(),
		Status:           p.Status,
		Strategy:         p.Selection.Strategy,
		HistoricalMonths: p.Selection.HistoricalMonths,
		Included:         p.Included,
		FailedMonths:     len(p.Failed),
		ForecastPackages: p.ForecastTotal(),
		Overridden:       overridden,
		Summary:          p.Summary,
		DurationMS:       d.Milliseconds(),
	}
}

// Query filters journal records. Zero fields match everything.
type Query struct {
	Start    time.Time
	End      time.Time
	Terminal string
	Target   model.MonthKey
	// Limit keeps only the most recent records when positive.
	Limit int
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Terminal != "" && r.Terminal != q.Terminal {
		return false
	}
	if q.Target != (model.MonthKey{}) && r.Target != q.Target {
		return false
	}
	return true
}

// finish orders records oldest first and applies the limit.
func (q Query) finish(recs []Record) []Record {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists journal records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures the journal backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "journal.db"
		default:
			c.Path = "journal.jsonl"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 90
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "none", "jsonl", "sqlite":
		return nil
	default:
		return fmt.Errorf("%w: unknown journal backend %q", model.ErrInvalidConfiguration, c.Backend)
	}
}

// Open returns the configured store, or NopStore when disabled.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
