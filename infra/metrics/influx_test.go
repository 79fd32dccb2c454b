package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/fleetcast/core/model"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	l.mu.Lock()
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" {
			l.lines = append(l.lines, line)
		}
	}
	l.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func expectLine(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordFetch(t *testing.T) {
	rec := &lineRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()
	ev := model.FetchEvent{
		Month:    model.MonthKey{Year: 2025, Month: time.September},
		Terminal: "HAM",
		Status:   model.FetchFailed,
		Days:     0,
		Duration: 1500 * time.Millisecond,
		Error:    "timeout",
		Time:     now,
	}
	if err := sink.RecordFetch(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("history_fetch").
		AddTag("month", "2025-09").
		AddTag("terminal", "HAM").
		AddTag("status", "failed").
		AddField("days", 0).
		AddField("total", 0).
		AddField("duration_ms", 1500.0).
		AddField("error", "timeout").
		SetTime(now)
	if len(rec.lines) != 1 || rec.lines[0] != expectLine(p) {
		t.Errorf("unexpected body: %#v", rec.lines)
	}
}

func TestInfluxSink_RecordPlan(t *testing.T) {
	rec := &lineRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	plan := samplePlan()
	if err := sink.RecordPlan(plan); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(rec.lines) != 1+len(plan.Forecast)+len(plan.Fleet) {
		t.Fatalf("expected %d lines, got %d", 1+len(plan.Forecast)+len(plan.Fleet), len(rec.lines))
	}
	day := write.NewPointWithMeasurement("forecast_point").
		AddTag("plan_id", "p1").
		AddTag("terminal", "all").
		AddField("forecast", 3000).
		AddField("forecast_min", 2500).
		AddField("forecast_max", 3500).
		SetTime(plan.Selection.Target.Date(2))
	if rec.lines[2] != expectLine(day) {
		t.Errorf("unexpected forecast line: %s", rec.lines[2])
	}
	if !strings.HasPrefix(rec.lines[0], "plan_summary,plan_id=p1,") {
		t.Errorf("unexpected summary line: %s", rec.lines[0])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func samplePlan() *model.Plan {
	target := model.MonthKey{Year: 2025, Month: time.November}
	return &model.Plan{
		ID:          "p1",
		GeneratedAt: time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC),
		Status:      model.PlanOK,
		Selection:   model.PlanSelection{Target: target, Strategy: "cost"},
		Trend:       12.5,
		Forecast: []model.ForecastPoint{
			{Day: 1, Forecast: 2200, ForecastMin: 2000, ForecastMax: 2400},
			{Day: 2, Forecast: 3000, ForecastMin: 2500, ForecastMax: 3500},
		},
		Fleet: []model.FleetRequirement{
			{Day: 1, Packages: 2200, RegularTrucks: 1, TotalTrucks: 1, AssignedRegularTrucks: 1, AssignedCapacity: 2200},
			{Day: 2, Packages: 3000, RegularTrucks: 2, TotalTrucks: 2, AssignedRegularTrucks: 2, AssignedCapacity: 4400, SurplusCapacity: 1400},
		},
		Summary: model.FleetSummary{Days: 2, TotalPackages: 5200, TotalTrucks: 3, AdditionalCapacity: 1400, PeakDay: 2, PeakTrucks: 2, AverageTrucksPerDay: 1.5},
	}
}
