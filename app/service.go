package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/fleet"
	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/journal"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/monitoring"
	"github.com/kilianp07/fleetcast/core/planner"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/infra/metrics"
	inframon "github.com/kilianp07/fleetcast/infra/monitoring"
	"github.com/kilianp07/fleetcast/infra/mqtt"
	"github.com/kilianp07/fleetcast/infra/source"
	"github.com/kilianp07/fleetcast/infra/source/cache"
	"github.com/kilianp07/fleetcast/internal/eventbus"

	_ "github.com/kilianp07/fleetcast/infra/source/memory"
	_ "github.com/kilianp07/fleetcast/infra/source/sqlite"
	_ "github.com/kilianp07/fleetcast/infra/source/trino"
)

// Service wires the count source, planner and plan consumers together.
type Service struct {
	Planner *planner.Planner
	Session *fleet.Session
	Journal journal.Store
	Source  history.Source

	cfg       *config.Config
	bus       *eventbus.Bus[planner.PlanEvent]
	sink      coremetrics.MetricsSink
	publisher *mqtt.PlanPublisher
	closers   []io.Closer
	done      []<-chan struct{}
	log       logger.Logger
}

// New creates a Service from the configuration. Nothing runs until Start.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	s := &Service{cfg: cfg, log: log, Session: fleet.NewSession()}
	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Source.Type, err)
	}
	s.track(src)
	if cfg.Cache.Enabled {
		src = s.withCache(src)
	}
	s.Source = src

	s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	alloc, err := fleet.NewAllocator(cfg.Fleet.Capacities())
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Journal, err = journal.Open(cfg.Journal)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	s.track(s.Journal)
	if cfg.MQTT.Enabled {
		s.publisher, err = mqtt.NewPlanPublisher(cfg.MQTT)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	loader := history.NewLoader(src, cfg.Loader, logger.New("loader"), s.sink)
	s.bus = eventbus.New[planner.PlanEvent]()
	s.Planner = planner.New(loader, alloc, s.bus, logger.New("planner"))
	return s, nil
}

// withCache fronts src with Redis. An unreachable Redis disables the cache.
func (s *Service) withCache(src history.Source) history.Source {
	kv := cache.NewRedisKV(s.cfg.Cache)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := kv.Ping(ctx); err != nil {
		s.log.Warnf("redis %s unreachable, cache disabled: %v", s.cfg.Cache.Addr, err)
		_ = kv.Close()
		return src
	}
	s.track(kv)
	return cache.New(src, kv, s.cfg.Cache.TTL(), logger.New("cache"))
}

func (s *Service) track(v any) {
	if c, ok := v.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
}

// Start launches the plan consumers and, when configured, the Prometheus
// endpoint. Consumers stop when ctx is canceled or the service is closed.
func (s *Service) Start(ctx context.Context) {
	s.done = append(s.done,
		metrics.StartEventCollector(ctx, s.bus, s.sink),
		journal.Start(ctx, s.bus, s.Journal, logger.New("journal")),
	)
	if s.publisher != nil {
		s.done = append(s.done, mqtt.StartForwarder(ctx, s.bus, s.publisher))
	}
	if port := s.cfg.Metrics.PrometheusPort; port > 0 {
		addr := ":" + strconv.Itoa(port)
		monitoring.Go(func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}
}

// Request returns the configured selection for now.
func (s *Service) Request(now time.Time) (planner.Request, error) {
	return s.cfg.Request(now)
}

// Plan runs one planning pass with the session overrides.
func (s *Service) Plan(ctx context.Context, req planner.Request) (*model.Plan, error) {
	plan, err := s.Planner.PlanSession(ctx, req, s.Session)
	if err != nil && !errors.Is(err, context.Canceled) {
		monitoring.CaptureException(err, map[string]string{
			"component": "planner",
			"target":    req.Target.String(),
			"terminal":  req.Terminal.Label(),
		})
	}
	return plan, err
}

// Run plans the configured selection every interval until ctx is canceled.
// A failed pass is logged and retried at the next tick.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	s.Start(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		req, err := s.Request(time.Now())
		if err != nil {
			return err
		}
		if _, err := s.Plan(ctx, req); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Errorf("planning pass failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close stops the consumers once they drained the bus, then releases every
// resource held by the service.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	for _, d := range s.done {
		<-d
	}
	s.done = nil
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	monitoring.Flush(2 * time.Second)
	return errors.Join(errs...)
}
