package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/planner"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

var (
	nov = model.MonthKey{Year: 2025, Month: time.November}
	dec = model.MonthKey{Year: 2025, Month: time.December}
	t0  = time.Date(2025, time.October, 15, 8, 0, 0, 0, time.UTC)
)

func record(id string, at time.Time, target model.MonthKey, terminal string) Record {
	return Record{PlanID: id, Timestamp: at, Target: target, Terminal: terminal, Status: model.PlanOK}
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, record("a", t0, nov, "all")))
	require.NoError(t, s.Append(ctx, record("b", t0.Add(time.Hour), nov, "HAM")))
	require.NoError(t, s.Append(ctx, record("c", t0.Add(2*time.Hour), dec, "HAM")))
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.PlanID
	}
	return out
}

func exerciseQueries(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	seed(t, s)

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	byTerminal, err := s.Query(ctx, Query{Terminal: "HAM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(byTerminal))

	byTarget, err := s.Query(ctx, Query{Target: nov})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(byTarget))

	window, err := s.Query(ctx, Query{Start: t0.Add(30 * time.Minute), End: t0.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(window))

	latest, err := s.Query(ctx, Query{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(latest))
}

func TestSQLiteStore_Query(t *testing.T) {
	store, err := NewSQLiteStore("file:journal_query?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseQueries(t, store)
}

func TestJSONLStore_Query(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseQueries(t, store)
}

func TestJSONLStore_ReadsRotatedFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "journal.jsonl")
	store, err := NewJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, record("old", t0, nov, "all")))
	require.NoError(t, store.writer.Rotate())
	require.NoError(t, store.Append(ctx, record("new", t0.Add(time.Minute), nov, "all")))

	files, err := store.files()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	out, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, ids(out))
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = Open(Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "j.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)
	_ = s.Close()

	_, err = Open(Config{Backend: "kafka"})
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestFromPlan(t *testing.T) {
	p := &model.Plan{
		ID:          "p1",
		GeneratedAt: t0,
		Status:      model.PlanInsufficientHistory,
		Selection: model.PlanSelection{
			Target:           nov,
			Terminal:         model.TerminalFilter{Name: "BER"},
			Strategy:         "capacity",
			HistoricalMonths: 3,
		},
		Included: []model.MonthKey{{Year: 2025, Month: time.October}},
		Failed:   []model.MonthFailure{{Error: "x"}, {Error: "y"}},
		Forecast: []model.ForecastPoint{{Day: 1, Forecast: 100}, {Day: 2, Forecast: 50}},
		Fleet:    []model.FleetRequirement{{Day: 1, Overridden: true}, {Day: 2}},
	}
	r := FromPlan(p, 1500*time.Millisecond)
	assert.Equal(t, "BER", r.Terminal)
	assert.Equal(t, 150, r.ForecastPackages)
	assert.Equal(t, 2, r.FailedMonths)
	assert.Equal(t, 1, r.Overridden)
	assert.Equal(t, int64(1500), r.DurationMS)
	assert.Equal(t, model.PlanInsufficientHistory, r.Status)
}

func TestStartAppendsPublishedPlans(t *testing.T) {
	bus := eventbus.New[planner.PlanEvent]()
	store, err := NewSQLiteStore("file:journal_start?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := Start(ctx, bus, store, nil)

	bus.Publish(planner.PlanEvent{Plan: &model.Plan{ID: "p7", GeneratedAt: t0, Selection: model.PlanSelection{Target: nov}}})
	require.Eventually(t, func() bool {
		recs, err := store.Query(context.Background(), Query{})
		return err == nil && len(recs) == 1 && recs[0].PlanID == "p7"
	}, time.Second, 10*time.Millisecond)

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop after bus close")
	}
}
