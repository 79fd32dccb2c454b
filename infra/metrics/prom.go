package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/model"
)

// PromSink exposes the latest plan per selection and fetch outcomes as
// Prometheus metrics.
type PromSink struct {
	forecast  *prometheus.GaugeVec
	trucks    *prometheus.GaugeVec
	remaining *prometheus.GaugeVec
	surplus   *prometheus.GaugeVec
	peak      *prometheus.GaugeVec
	plans     *prometheus.CounterVec
	fetches   *prometheus.CounterVec
	fetchTime prometheus.Histogram
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	selection := []string{"terminal", "target"}
	s := &PromSink{
		forecast: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetcast_forecast_packages",
			Help: "Forecast package volume of the target month",
		}, selection),
		trucks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetcast_assigned_trucks",
			Help: "Truck-days assigned over the target month",
		}, selection),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetcast_remaining_packages",
			Help: "Packages without assigned capacity",
		}, selection),
		surplus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetcast_surplus_capacity",
			Help: "Assigned capacity in excess of forecast packages",
		}, selection),
		peak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetcast_peak_trucks",
			Help: "Largest number of trucks assigned on a single day",
		}, selection),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcast_plans_total",
			Help: "Planning runs by status",
		}, []string{"status"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcast_history_fetch_total",
			Help: "Historical month loads by status",
		}, []string{"status"}),
		fetchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetcast_history_fetch_seconds",
			Help:    "Duration of historical month loads",
			Buckets: prometheus.DefBuckets,
		}),
	}

	var err error
	if s.forecast, err = register(reg, s.forecast); err != nil {
		return nil, err
	}
	if s.trucks, err = register(reg, s.trucks); err != nil {
		return nil, err
	}
	if s.remaining, err = register(reg, s.remaining); err != nil {
		return nil, err
	}
	if s.surplus, err = register(reg, s.surplus); err != nil {
		return nil, err
	}
	if s.peak, err = register(reg, s.peak); err != nil {
		return nil, err
	}
	if s.plans, err = register(reg, s.plans); err != nil {
		return nil, err
	}
	if s.fetches, err = register(reg, s.fetches); err != nil {
		return nil, err
	}
	if s.fetchTime, err = register(reg, s.fetchTime); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the existing collector when c was registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlan sets the selection gauges and counts the run.
func (s *PromSink) RecordPlan(p *model.Plan) error {
	if p == nil {
		return nil
	}
	labels := prometheus.Labels{
		"terminal": p.Selection.Terminal.Label(),
		"target":   p.Selection.Target.String(),
	}
	s.forecast.With(labels).Set(float64(p.ForecastTotal()))
	s.trucks.With(labels).Set(float64(p.Summary.TotalTrucks))
	s.remaining.With(labels).Set(float64(p.Summary.TotalRemaining))
	s.surplus.With(labels).Set(float64(p.Summary.AdditionalCapacity))
	s.peak.With(labels).Set(float64(p.Summary.PeakTrucks))
	s.plans.WithLabelValues(string(p.Status)).Inc()
	return nil
}

// RecordFetch counts the load and observes its duration.
func (s *PromSink) RecordFetch(ev model.FetchEvent) error {
	s.fetches.WithLabelValues(string(ev.Status)).Inc()
	s.fetchTime.Observe(ev.Duration.Seconds())
	return nil
}
