package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/source"
)

func TestSourceDeterministic(t *testing.T) {
	s := New(Config{Base: 1000, Noise: 0.1, MonthlyGrowth: 0.02})
	key := model.MonthKey{Year: 2025, Month: time.October}
	a, err := s.FetchDailyCounts(context.Background(), key, model.TerminalFilter{Name: "HAM"})
	require.NoError(t, err)
	b, err := s.FetchDailyCounts(context.Background(), key, model.TerminalFilter{Name: "HAM"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 31)
}

func TestSourceShape(t *testing.T) {
	s := New(Config{Base: 1000, WeekendFactor: 0.5, Reference: "2025-01"})
	jan, err := s.FetchDailyCounts(context.Background(), model.MonthKey{Year: 2025, Month: time.January}, model.TerminalFilter{})
	require.NoError(t, err)
	// 1 January 2025 is a Wednesday, 4 January a Saturday.
	assert.Equal(t, 1000, jan[0].Value)
	assert.Equal(t, 500, jan[3].Value)

	grow := New(Config{Base: 1000, MonthlyGrowth: 0.1, Reference: "2025-01"})
	feb, err := grow.FetchDailyCounts(context.Background(), model.MonthKey{Year: 2025, Month: time.February}, model.TerminalFilter{})
	require.NoError(t, err)
	// 3 February 2025 is a Monday.
	assert.Equal(t, 1100, feb[2].Value)
}

func TestSourceTerminalShare(t *testing.T) {
	s := New(Config{Base: 10000})
	key := model.MonthKey{Year: 2025, Month: time.March}
	all, _ := s.FetchDailyCounts(context.Background(), key, model.TerminalFilter{})
	one, _ := s.FetchDailyCounts(context.Background(), key, model.TerminalFilter{Name: "BER", Side: model.SideSender})
	assert.Less(t, model.MonthBatch{Observations: one}.Total(), model.MonthBatch{Observations: all}.Total())
}

func TestRegistered(t *testing.T) {
	src, err := source.New(factory.ModuleConfig{Type: "memory", Conf: map[string]any{"base": 200}})
	require.NoError(t, err)
	assert.Equal(t, 200, src.(*Source).cfg.Base)
}
