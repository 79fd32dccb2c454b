package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/planner"
	"github.com/kilianp07/fleetcast/infra/source/sqlite"
)

func TestParseOverride(t *testing.T) {
	day, c, err := parseOverride("12=3:1")
	require.NoError(t, err)
	assert.Equal(t, 12, day)
	assert.Equal(t, model.TruckCount{Regular: 3, Large: 1}, c)

	day, c, err = parseOverride(" 4 = 2 ")
	require.NoError(t, err)
	assert.Equal(t, 4, day)
	assert.Equal(t, model.TruckCount{Regular: 2}, c)

	for _, bad := range []string{"4", "0=1", "32=1", "4=-1", "4=1:x", "x=1"} {
		_, _, err := parseOverride(bad)
		assert.ErrorIs(t, err, model.ErrInvalidConfiguration, bad)
	}
}

func TestSelectionApply(t *testing.T) {
	var f selectionFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd, true)
	require.NoError(t, cmd.ParseFlags([]string{
		"--target", "2026-02", "-m", "6", "--day-type", "weekday",
		"--terminal", "HAM", "--side", "receiver", "-s", "capacity", "--large",
		"--days", "1,2,3", "-o", "2=1:1", "-o", "3=0",
	}))
	req := planner.Request{HistoricalMonths: 3, Overrides: model.Overrides{9: {Regular: 1}}}
	require.NoError(t, f.apply(cmd, &req))
	assert.Equal(t, model.MonthKey{Year: 2026, Month: time.February}, req.Target)
	assert.Equal(t, 6, req.HistoricalMonths)
	assert.Equal(t, model.DayTypeWeekday, req.DayType)
	assert.Equal(t, model.TerminalFilter{Name: "HAM", Side: model.SideReceiver}, req.Terminal)
	assert.Equal(t, model.StrategyCapacity, req.Strategy)
	assert.True(t, req.UseLargeTrucks)
	assert.Equal(t, []int{1, 2, 3}, req.Days)
	assert.Equal(t, model.Overrides{9: {Regular: 1}, 2: {Regular: 1, Large: 1}, 3: {}}, req.Overrides)
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSelectionLargeTrucks(t *testing.T) {
	var f selectionFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd, true)
	large, err := cmd.Flags().GetBool("large")
	require.NoError(t, err)
	assert.True(t, large)

	req := planner.Request{UseLargeTrucks: true}
	require.NoError(t, f.apply(cmd, &req))
	assert.True(t, req.UseLargeTrucks)

	require.NoError(t, cmd.ParseFlags([]string{"--large=false"}))
	require.NoError(t, f.apply(cmd, &req))
	assert.False(t, req.UseLargeTrucks)
}

func TestPlanCommandJSON(t *testing.T) {
	out := execute(t, "plan", "--target", "2025-11", "--days", "3,4", "-o", "3=1", "-f", "json")
	var plan model.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, model.MonthKey{Year: 2025, Month: time.November}, plan.Selection.Target)
	require.Len(t, plan.Fleet, 2)
	assert.True(t, plan.Fleet[0].Overridden)
	assert.Equal(t, 1, plan.Fleet[0].AssignedRegularTrucks)
}

func TestForecastCommandTable(t *testing.T) {
	out := execute(t, "forecast", "--target", "2025-02", "--day-type", "weekend")
	assert.Contains(t, out, "2025-02-01")
	assert.Contains(t, out, "Total forecast:")
	// February 2025 has four weekends.
	assert.Equal(t, 8, strings.Count(out, "2025-02-"))
}

func TestSnapshotCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snap.db")
	out := execute(t, "snapshot", "--from", "2025-01", "--to", "2025-03", "--db", db)
	assert.Equal(t, 3, strings.Count(out, "packages"))

	store, err := sqlite.Open(db)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	months, err := store.Months(context.Background(), model.TerminalFilter{})
	require.NoError(t, err)
	assert.Len(t, months, 3)
}
