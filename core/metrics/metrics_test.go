package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/model"
)

type recordSink struct {
	plans   int
	fetches int
	err     error
}

func (r *recordSink) RecordPlan(*model.Plan) error {
	r.plans++
	return r.err
}

func (r *recordSink) RecordFetch(model.FetchEvent) error {
	r.fetches++
	return r.err
}

func TestMultiSinkForwardsToAll(t *testing.T) {
	failing := &recordSink{err: errors.New("influx down")}
	ok := &recordSink{}
	m := NewMultiSink(failing, ok)
	if err := m.RecordPlan(&model.Plan{}); err == nil {
		t.Fatalf("expected first error")
	}
	if err := m.RecordFetch(model.FetchEvent{}); err == nil {
		t.Fatalf("expected first error")
	}
	if ok.plans != 1 || ok.fetches != 1 {
		t.Fatalf("later sink skipped after failure: %+v", ok)
	}
}

func TestNewMetricsSink(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	_ = RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) {
		return &recordSink{}, nil
	})
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "test-record"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}

	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "missing"}}); !errors.Is(err, factory.ErrUnknownType) {
		t.Fatalf("expected unknown type, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{PrometheusPort: 70000}).Validate(); err == nil {
		t.Fatal("expected port error")
	}
	if err := (Config{PrometheusPort: 9100}).Validate(); err != nil {
		t.Fatalf("valid port rejected: %v", err)
	}
}

func TestMustRegisterMetricsSinkPanicsOnDuplicate(t *testing.T) {
	f := func(map[string]any) (MetricsSink, error) { return NopSink{}, nil }
	MustRegisterMetricsSink("test-dup", f)
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic")
		}
	}()
	MustRegisterMetricsSink("test-dup", f)
}
