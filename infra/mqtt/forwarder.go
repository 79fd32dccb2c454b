package mqtt

import (
	"context"

	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/planner"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// Publisher sends plans to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, plan *model.Plan) error
}

// StartForwarder publishes every plan from the bus until ctx is canceled or
// the bus is closed. Failures are logged by the publisher and skipped.
func StartForwarder(ctx context.Context, bus *eventbus.Bus[planner.PlanEvent], pub Publisher) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
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
				if ev.Plan != nil {
					_ = pub.Publish(ctx, ev.Plan)
				}
			}
		}
	}()
	return done
}
