package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/monitoring"
)

var nov2025 = model.MonthKey{Year: 2025, Month: time.November}

type fetchLog struct {
	mu     sync.Mutex
	events []model.FetchEvent
}

func (f *fetchLog) RecordFetch(ev model.FetchEvent) error {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	return nil
}

func (f *fetchLog) byStatus(s model.FetchStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Status == s {
			n++
		}
	}
	return n
}

func TestLoadOrdersOldestFirst(t *testing.T) {
	src := NewMemorySource()
	all := model.TerminalFilter{}
	for k, i := nov2025.Prev(), 0; i < 6; k, i = k.Prev(), i+1 {
		src.SetConstant(k, all, 100+i)
	}
	l := NewLoader(src, Config{Concurrency: 2}, nil, nil)
	w, err := l.Load(context.Background(), nov2025, 6, all)
	require.NoError(t, err)
	require.Len(t, w.Batches, 6)
	assert.Equal(t, model.MonthKey{Year: 2025, Month: time.May}, w.Batches[0].Key)
	assert.Equal(t, model.MonthKey{Year: 2025, Month: time.October}, w.Batches[5].Key)
	for i := 1; i < len(w.Batches); i++ {
		if !w.Batches[i-1].Key.Before(w.Batches[i].Key) {
			t.Fatalf("window out of order at %d", i)
		}
	}
	assert.Equal(t, 31, len(w.Batches[5].Observations))
}

func TestLoadCrossesYearBoundary(t *testing.T) {
	src := NewMemorySource()
	target := model.MonthKey{Year: 2026, Month: time.February}
	w, err := NewLoader(src, Config{}, nil, nil).Load(context.Background(), target, 3, model.TerminalFilter{})
	require.NoError(t, err)
	assert.Empty(t, w.Batches)
	assert.Equal(t, []model.MonthKey{
		{Year: 2025, Month: time.November},
		{Year: 2025, Month: time.December},
		{Year: 2026, Month: time.January},
	}, w.Empty)
}

func TestLoadExcludesFailedAndEmptyMonths(t *testing.T) {
	rec := &monitoring.Recorder{}
	monitoring.Init(rec)
	defer monitoring.Init(monitoring.NopMonitor{})

	src := NewMemorySource()
	all := model.TerminalFilter{}
	sep := model.MonthKey{Year: 2025, Month: time.September}
	aug := model.MonthKey{Year: 2025, Month: time.August}
	src.SetConstant(nov2025.Prev(), all, 500)
	src.Fail(sep, errors.New("trino: query failed"))
	src.Set(aug, all, map[int]int{3: 0})

	metrics := &fetchLog{}
	w, err := NewLoader(src, Config{}, nil, metrics).Load(context.Background(), nov2025, 3, all)
	require.NoError(t, err)
	require.Len(t, w.Batches, 1)
	assert.Equal(t, nov2025.Prev(), w.Batches[0].Key)
	assert.Equal(t, []model.MonthKey{aug}, w.Empty)
	require.Len(t, w.Failed, 1)
	assert.Equal(t, sep, w.Failed[0].Month)
	assert.Contains(t, w.Failed[0].Error, "query failed")

	assert.Equal(t, 1, metrics.byStatus(model.FetchOK))
	assert.Equal(t, 1, metrics.byStatus(model.FetchEmpty))
	assert.Equal(t, 1, metrics.byStatus(model.FetchFailed))

	ev := rec.Events()
	require.Len(t, ev, 1)
	assert.Equal(t, "2025-09", ev[0].Tags["month"])
}

func TestLoadTimesOutSlowMonth(t *testing.T) {
	slow := model.MonthKey{Year: 2025, Month: time.September}
	src := SourceFunc(func(ctx context.Context, key model.MonthKey, _ model.TerminalFilter) ([]model.DailyObservation, error) {
		if key == slow {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return FillMonth(key, map[int]int{1: 10}), nil
	})
	l := NewLoader(src, Config{Concurrency: 3, TimeoutSeconds: 1}, nil, nil)

	start := time.Now()
	w, err := l.Load(context.Background(), nov2025, 2, model.TerminalFilter{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, w.Batches, 1)
	require.Len(t, w.Failed, 1)
	assert.Equal(t, slow, w.Failed[0].Month)
}

func TestLoadRespectsConcurrencyLimit(t *testing.T) {
	var inflight, peak atomic.Int32
	src := SourceFunc(func(ctx context.Context, key model.MonthKey, _ model.TerminalFilter) ([]model.DailyObservation, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return FillMonth(key, map[int]int{2: 1}), nil
	})
	w, err := NewLoader(src, Config{Concurrency: 2}, nil, nil).Load(context.Background(), nov2025, 6, model.TerminalFilter{})
	require.NoError(t, err)
	assert.Len(t, w.Batches, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	l := NewLoader(NewMemorySource(), Config{}, nil, nil)
	for _, n := range []int{0, 1, 4, 12} {
		if _, err := l.Load(context.Background(), nov2025, n, model.TerminalFilter{}); !errors.Is(err, model.ErrInvalidConfiguration) {
			t.Fatalf("months %d accepted: %v", n, err)
		}
	}
	if _, err := l.Load(context.Background(), model.MonthKey{Year: 2025}, 3, model.TerminalFilter{}); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("invalid target accepted: %v", err)
	}
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(NewMemorySource(), Config{}, nil, nil).Load(ctx, nov2025, 2, model.TerminalFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFillMonth(t *testing.T) {
	feb := model.MonthKey{Year: 2024, Month: time.February}
	obs := FillMonth(feb, map[int]int{1: 5, 29: 7, 30: 99, 10: -3})
	require.Len(t, obs, 29)
	assert.Equal(t, 5, obs[0].Value)
	assert.Equal(t, 7, obs[28].Value)
	assert.Equal(t, 0, obs[9].Value)
	assert.Equal(t, feb.Date(29), obs[28].Date)
}

func TestNormalizeSortsAndDrops(t *testing.T) {
	oct := model.MonthKey{Year: 2025, Month: time.October}
	obs := normalize(oct, []model.DailyObservation{{Day: 3, Value: 1}, {Day: 40, Value: 9}, {Day: 1, Value: 2}})
	require.Len(t, obs, 2)
	assert.Equal(t, 1, obs[0].Day)
	assert.Equal(t, oct.Date(3), obs[1].Date)
}

func TestMemorySourceFilterIsolation(t *testing.T) {
	src := NewMemorySource()
	oct := model.MonthKey{Year: 2025, Month: time.October}
	ham := model.TerminalFilter{Name: "HAM", Side: model.SideSender}
	src.SetConstant(oct, ham, 40)
	obs, err := src.FetchDailyCounts(context.Background(), oct, model.TerminalFilter{})
	require.NoError(t, err)
	assert.False(t, model.MonthBatch{Observations: obs}.HasData())
	obs, err = src.FetchDailyCounts(context.Background(), oct, ham)
	require.NoError(t, err)
	assert.Equal(t, 40*31, model.MonthBatch{Observations: obs}.Total())
	assert.Equal(t, 2, src.Calls(oct))
}
