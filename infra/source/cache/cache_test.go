package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/model"
)

type mockKV struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mockKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *mockKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKV) Ping(context.Context) error { return nil }

var (
	sep2025 = model.MonthKey{Year: 2025, Month: time.September}
	oct2025 = model.MonthKey{Year: 2025, Month: time.October}
	ham     = model.TerminalFilter{Name: "HAM", Side: model.SideSender}
)

func newTestSource(kv KV) (*Source, *history.MemorySource) {
	mem := history.NewMemorySource()
	mem.SetConstant(sep2025, ham, 40)
	mem.SetConstant(oct2025, ham, 50)
	s := New(mem, kv, time.Hour, nil)
	s.now = func() time.Time { return time.Date(2025, time.October, 20, 12, 0, 0, 0, time.UTC) }
	return s, mem
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "daily_counts_v1:HAM:sender:2025-09", Key(sep2025, ham))
	assert.Equal(t, "daily_counts_v1:all:any:2025-10", Key(oct2025, model.TerminalFilter{}))
}

func TestClosedMonthServedFromCache(t *testing.T) {
	kv := newMockKV()
	s, mem := newTestSource(kv)
	ctx := context.Background()

	first, err := s.FetchDailyCounts(ctx, sep2025, ham)
	require.NoError(t, err)
	second, err := s.FetchDailyCounts(ctx, sep2025, ham)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Calls(sep2025))
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, 40*30, model.MonthBatch{Observations: second}.Total())
	assert.Equal(t, time.Hour, kv.ttls[Key(sep2025, ham)])
}

func TestCurrentMonthNeverCached(t *testing.T) {
	kv := newMockKV()
	s, mem := newTestSource(kv)
	for i := 0; i < 2; i++ {
		_, err := s.FetchDailyCounts(context.Background(), oct2025, ham)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, mem.Calls(oct2025))
	assert.Empty(t, kv.data)
}

func TestCacheFailuresFallThrough(t *testing.T) {
	kv := newMockKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")
	s, mem := newTestSource(kv)
	obs, err := s.FetchDailyCounts(context.Background(), sep2025, ham)
	require.NoError(t, err)
	assert.Len(t, obs, 30)
	assert.Equal(t, 1, mem.Calls(sep2025))
}

func TestCorruptEntryRefetched(t *testing.T) {
	kv := newMockKV()
	kv.data[Key(sep2025, ham)] = "{not json"
	s, mem := newTestSource(kv)
	obs, err := s.FetchDailyCounts(context.Background(), sep2025, ham)
	require.NoError(t, err)
	assert.Len(t, obs, 30)
	assert.Equal(t, 1, mem.Calls(sep2025))
	assert.NotEqual(t, "{not json", kv.data[Key(sep2025, ham)])
}

func TestSourceErrorsNotCached(t *testing.T) {
	kv := newMockKV()
	s, mem := newTestSource(kv)
	mem.Fail(sep2025, errors.New("trino down"))
	_, err := s.FetchDailyCounts(context.Background(), sep2025, ham)
	assert.Error(t, err)
	assert.Empty(t, kv.data)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "localhost:6379", c.Addr)
	assert.Equal(t, 7*24*time.Hour, c.TTL())
}
