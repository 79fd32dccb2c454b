// Package sqlite keeps an offline snapshot of daily counts in SQLite.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/source"
)

func init() {
	source.MustRegister("sqlite", func(conf map[string]any) (history.Source, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "counts.db"
		}
		return Open(c.Path)
	})
}

const schema = `CREATE TABLE IF NOT EXISTS daily_counts (
    terminal TEXT NOT NULL,
    side TEXT NOT NULL,
    day TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (terminal, side, day)
);`

// Store persists daily counts per terminal filter.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at path and ensures schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Upsert writes the observations of key for filter, replacing existing rows.
func (s *Store) Upsert(ctx context.Context, key model.MonthKey, filter model.TerminalFilter, obs []model.DailyObservation) error {
	if err := key.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	const q = `
		INSERT INTO daily_counts (terminal, side, day, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(terminal, side, day) DO UPDATE SET
			count = excluded.count`
	for _, o := range obs {
		if o.Day < 1 || o.Day > key.DaysIn() {
			continue
		}
		day := key.Date(o.Day).Format(time.DateOnly)
		if _, err := tx.ExecContext(ctx, q, filter.Name, filter.Side.String(), day, o.Value); err != nil {
			return fmt.Errorf("upsert %s for %s: %w", day, filter.Label(), err)
		}
	}
	return tx.Commit()
}

type row struct {
	Day   string `db:"day"`
	Count int    `db:"count"`
}

// FetchDailyCounts implements history.Source.
func (s *Store) FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var rows []row
	const q = `
		SELECT day, count FROM daily_counts
		WHERE terminal = ? AND side = ? AND day >= ? AND day <= ?
		ORDER BY day`
	from := key.First().Format(time.DateOnly)
	to := key.Date(key.DaysIn()).Format(time.DateOnly)
	if err := s.db.SelectContext(ctx, &rows, q, filter.Name, filter.Side.String(), from, to); err != nil {
		return nil, fmt.Errorf("sqlite: counts for %s: %w", key, err)
	}
	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		d, err := time.Parse(time.DateOnly, r.Day)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad day %q: %w", r.Day, err)
		}
		counts[d.Day()] = r.Count
	}
	return history.FillMonth(key, counts), nil
}

// Months lists the months stored for filter, oldest first.
func (s *Store) Months(ctx context.Context, filter model.TerminalFilter) ([]model.MonthKey, error) {
	var months []string
	const q = `
		SELECT DISTINCT substr(day, 1, 7) FROM daily_counts
		WHERE terminal = ? AND side = ?
		ORDER BY 1`
	if err := s.db.SelectContext(ctx, &months, q, filter.Name, filter.Side.String()); err != nil {
		return nil, err
	}
	out := make([]model.MonthKey, 0, len(months))
	for _, m := range months {
		k, err := model.ParseMonthKey(m)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
