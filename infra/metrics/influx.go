package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/logger"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes plans and fetch events to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordPlan writes one plan_summary point plus a forecast_point and a
// fleet_requirement point per day, all stamped with the day they describe.
func (s *InfluxSink) RecordPlan(p *model.Plan) error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	terminal := p.Selection.Terminal.Label()
	target := p.Selection.Target
	points := make([]*write.Point, 0, 1+len(p.Forecast)+len(p.Fleet))
	points = append(points, write.NewPointWithMeasurement("plan_summary").
		AddTag("plan_id", p.ID).
		AddTag("terminal", terminal).
		AddTag("target", target.String()).
		AddTag("status", string(p.Status)).
		AddField("forecast_packages", p.ForecastTotal()).
		AddField("trend", round3(p.Trend)).
		AddField("total_trucks", p.Summary.TotalTrucks).
		AddField("peak_trucks", p.Summary.PeakTrucks).
		AddField("remaining_packages", p.Summary.TotalRemaining).
		AddField("surplus_capacity", p.Summary.AdditionalCapacity).
		AddField("avg_trucks_per_day", round3(p.Summary.AverageTrucksPerDay)).
		SetTime(p.GeneratedAt))

	for _, f := range p.Forecast {
		points = append(points, write.NewPointWithMeasurement("forecast_point").
			AddTag("plan_id", p.ID).
			AddTag("terminal", terminal).
			AddField("forecast", f.Forecast).
			AddField("forecast_min", f.ForecastMin).
			AddField("forecast_max", f.ForecastMax).
			SetTime(target.Date(f.Day)))
	}
	for _, r := range p.Fleet {
		points = append(points, write.NewPointWithMeasurement("fleet_requirement").
			AddTag("plan_id", p.ID).
			AddTag("terminal", terminal).
			AddTag("overridden", strconv.FormatBool(r.Overridden)).
			AddField("packages", r.Packages).
			AddField("regular_trucks", r.AssignedRegularTrucks).
			AddField("large_trucks", r.AssignedLargeTrucks).
			AddField("capacity", r.AssignedCapacity).
			AddField("remaining", r.RemainingPackages).
			AddField("surplus", r.SurplusCapacity).
			SetTime(target.Date(r.Day)))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordFetch persists the outcome of a historical month load.
func (s *InfluxSink) RecordFetch(ev model.FetchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("history_fetch").
		AddTag("month", ev.Month.String()).
		AddTag("terminal", ev.Terminal).
		AddTag("status", string(ev.Status)).
		AddField("days", ev.Days).
		AddField("total", ev.Total).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000))
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
