// Package trino reads daily shipment counts from the Trino shipments table.
package trino

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	trinodriver "github.com/trinodb/trino-go-client/trino"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/logger"
	"github.com/kilianp07/fleetcast/core/model"
	zlog "github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/infra/source"
)

func init() {
	source.MustRegister("trino", func(conf map[string]any) (history.Source, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Open(c, zlog.New("source.trino"))
	})
}

// Config describes the Trino connection. Empty fields take the defaults of
// the shipment lake deployment.
type Config struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	User    string `json:"user"`
	Catalog string `json:"catalog"`
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Secure  bool   `json:"secure"`
	// QueryTimeoutSeconds bounds one month query on the server side.
	QueryTimeoutSeconds int `json:"query_timeout_seconds"`
}

// SetDefaults applies the lake defaults.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "trino"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.User == "" {
		c.User = "admin"
	}
	if c.Catalog == "" {
		c.Catalog = "hive"
	}
	if c.Schema == "" {
		c.Schema = "default"
	}
	if c.Table == "" {
		c.Table = "shipments"
	}
}

// DSN returns the driver connection string.
func (c Config) DSN() (string, error) {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.User(c.User),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
	}
	tc := &trinodriver.Config{
		ServerURI: u.String(),
		Source:    "fleetcast",
		Catalog:   c.Catalog,
		Schema:    c.Schema,
	}
	if c.QueryTimeoutSeconds > 0 {
		tc.SessionProperties = map[string]string{
			"query_max_execution_time": strconv.Itoa(c.QueryTimeoutSeconds) + "s",
		}
	}
	return tc.FormatDSN()
}

// dialect renders the day-of-month of the date_of_shipment column.
type dialect func(column string) string

func trinoDay(column string) string {
	return fmt.Sprintf("day_of_month(date_parse(%s, '%%Y-%%m-%%d'))", column)
}

// Source queries daily counts. It is safe for concurrent use.
type Source struct {
	db    *sqlx.DB
	table string
	day   dialect
	log   logger.Logger
}

// Open connects to Trino. The connection is lazy; the first query dials.
func Open(cfg Config, log logger.Logger) (*Source, error) {
	cfg.SetDefaults()
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("trino dsn: %w", err)
	}
	db, err := sqlx.Open("trino", dsn)
	if err != nil {
		return nil, fmt.Errorf("open trino: %w", err)
	}
	table := cfg.Table
	if !strings.Contains(table, ".") {
		table = cfg.Catalog + "." + cfg.Schema + "." + table
	}
	return newSource(db, table, trinoDay, log), nil
}

func newSource(db *sqlx.DB, table string, day dialect, log logger.Logger) *Source {
	return &Source{db: db, table: table, day: day, log: logger.OrNop(log)}
}

// Close releases the connection pool.
func (s *Source) Close() error { return s.db.Close() }

type dayCount struct {
	Day      int `db:"day"`
	Packages int `db:"packages"`
}

// buildQuery returns the count query and its arguments for one month.
func buildQuery(table string, day dialect, key model.MonthKey, filter model.TerminalFilter) (string, []any) {
	from := key.First().Format(time.DateOnly)
	to := key.Date(key.DaysIn()).Format(time.DateOnly)
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT CAST(%s AS INTEGER) AS day, CAST(count(*) AS INTEGER) AS packages FROM %s", day("date_of_shipment"), table)
	b.WriteString(" WHERE date_of_shipment >= ? AND date_of_shipment <= ?")
	args := []any{from, to}
	if !filter.IsEmpty() {
		switch filter.Side {
		case model.SideSender:
			b.WriteString(" AND sender_terminal = ?")
			args = append(args, filter.Name)
		case model.SideReceiver:
			b.WriteString(" AND receiver_terminal = ?")
			args = append(args, filter.Name)
		default:
			b.WriteString(" AND (sender_terminal = ? OR receiver_terminal = ?)")
			args = append(args, filter.Name, filter.Name)
		}
	}
	b.WriteString(" GROUP BY 1 ORDER BY 1")
	return b.String(), args
}

// FetchDailyCounts implements history.Source.
func (s *Source) FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	q, args := buildQuery(s.table, s.day, key, filter)
	var rows []dayCount
	start := time.Now()
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("trino: counts for %s: %w", key, err)
	}
	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[r.Day] += r.Packages
	}
	s.log.Debugw("trino counts fetched", map[string]any{
		"month":    key.String(),
		"terminal": filter.Label(),
		"rows":     len(rows),
		"elapsed":  time.Since(start).String(),
	})
	return history.FillMonth(key, counts), nil
}
