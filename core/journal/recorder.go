package journal

import (
	"context"

	"github.com/kilianp07/fleetcast/core/logger"
	"github.com/kilianp07/fleetcast/core/planner"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// Start appends every published plan to store until ctx is canceled or the
// bus is closed. The returned channel is closed when the recorder exits.
func Start(ctx context.Context, bus *eventbus.Bus[planner.PlanEvent], store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
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
				if ev.Plan == nil {
					continue
				}
				if err := store.Append(ctx, FromPlan(ev.Plan, ev.Duration)); err != nil {
					log.Errorf("journal append %s: %v", ev.Plan.ID, err)
				}
			}
		}
	}()
	return done
}
