//go:build !no_containers

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"

	"github.com/kilianp07/fleetcast/app"
	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/journal"
	"github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/mqtt"
	"github.com/kilianp07/fleetcast/infra/source/cache"
	"github.com/kilianp07/fleetcast/test/util"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}

func TestE2EPlanPublishedCachedAndJournaled(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()
	broker, stopBroker, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer stopBroker()
	redisAddr, stopRedis, err := util.StartRedis(ctx)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer stopRedis()

	received := make(chan []byte, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-sub"))
	if tok := sub.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	defer sub.Disconnect(100)
	if tok := sub.Subscribe(mqtt.DefaultTopicPrefix+"/#", 1, func(_ paho.Client, m paho.Message) {
		select {
		case received <- m.Payload():
		default:
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	port := freePort(t)
	cfg := &config.Config{
		Forecast: config.ForecastConfig{Target: "2025-11", HistoricalMonths: 3, Terminal: "HAM", Side: "sender"},
		Source:   factory.ModuleConfig{Type: "memory", Conf: map[string]any{"base": 5000}},
		Cache:    cache.Config{Enabled: true, Addr: redisAddr},
		Metrics: metrics.Config{
			Sinks:          []factory.ModuleConfig{{Type: "prometheus"}},
			PrometheusPort: port,
		},
		MQTT:    mqtt.Config{Enabled: true, Broker: broker, ClientID: "e2e-pub", QoS: 1},
		Journal: journal.Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "journal.jsonl")},
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	svc.Start(runCtx)

	req, err := svc.Request(time.Now())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	plan, err := svc.Plan(runCtx, req)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	select {
	case payload := <-received:
		var got model.Plan
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("decode published plan: %v", err)
		}
		if got.ID != plan.ID {
			t.Fatalf("published plan %s, want %s", got.ID, plan.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("plan not published")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() { _ = rdb.Close() }()
	filter := model.TerminalFilter{Name: "HAM", Side: model.SideSender}
	for _, k := range plan.Included {
		if n, err := rdb.Exists(ctx, cache.Key(k, filter)).Result(); err != nil || n != 1 {
			t.Errorf("month %s not cached: %v", k, err)
		}
	}

	metricsCtx, mcancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer mcancel()
	url := fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
	if err := util.WaitForMetric(metricsCtx, url, `fleetcast_forecast_packages{target="2025-11",terminal="HAM"}`); err != nil {
		t.Errorf("prometheus: %v", err)
	}

	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	store, err := journal.NewJSONLStore(cfg.Journal.Path, 1, 1, 1)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	defer func() { _ = store.Close() }()
	recs, err := store.Query(ctx, journal.Query{Terminal: "HAM"})
	if err != nil || len(recs) != 1 || recs[0].PlanID != plan.ID {
		t.Fatalf("journal records %+v, err %v", recs, err)
	}
}
