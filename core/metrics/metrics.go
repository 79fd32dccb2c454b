package metrics

import "github.com/kilianp07/fleetcast/core/model"

// PlanRecorder records the outcome of a planning run.
type PlanRecorder interface {
	RecordPlan(p *model.Plan) error
}

// FetchRecorder records the load of one historical month.
type FetchRecorder interface {
	RecordFetch(ev model.FetchEvent) error
}

// MetricsSink records planning activity for observability purposes.
type MetricsSink interface {
	PlanRecorder
	FetchRecorder
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlan(*model.Plan) error       { return nil }
func (NopSink) RecordFetch(model.FetchEvent) error { return nil }

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the plan to every sink and returns the first error.
// Every sink is called even when an earlier one fails.
func (m *MultiSink) RecordPlan(p *model.Plan) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordPlan(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordFetch forwards the event to every sink and returns the first error.
func (m *MultiSink) RecordFetch(ev model.FetchEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordFetch(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
