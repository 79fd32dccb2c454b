package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/planner"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// StartEventCollector subscribes to the plan bus and records every plan.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[planner.PlanEvent], sink coremetrics.PlanRecorder) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordPlan(ev.Plan); err != nil {
					log.Warnf("record plan %s: %v", ev.Plan.ID, err)
				}
			}
		}
	}()
	return done
}
