package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/config"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
	"github.com/NastyaGoryachaya/btc-price-aggregator/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestNewCore_OptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Aggregator.Ordering = "shuffled"
	cfg.Aggregator.NoFallback = true

	core, err := NewCore(cfg.Aggregator, cfg.Sources, logger.Discard())
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	want := aggregator.Options{Fallback: false, Ordering: aggregator.OrderingShuffled, Deadline: 30 * time.Second, DefaultSource: "coinbase"}
	if core.Options != want {
		t.Fatalf("unexpected options %+v", core.Options)
	}
	if core.Registry.Len() != 9 {
		t.Fatalf("unexpected registry size %d", core.Registry.Len())
	}
}

func TestNewCore_InvalidOrdering(t *testing.T) {
	cfg := testConfig(t)
	cfg.Aggregator.Ordering = "random"
	if _, err := NewCore(cfg.Aggregator, cfg.Sources, logger.Discard()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewCore_EndpointOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"amount":"67890.12"}}`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Sources.Endpoints = map[string]string{"coinbase": srv.URL}

	core, err := NewCore(cfg.Aggregator, cfg.Sources, logger.Discard())
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	res := core.Aggregator.GetPrice(context.Background(), "coinbase", core.Options)
	if !res.OK || res.Price != "$67,890" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestNewApp_MemoryBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Enabled = false

	a, err := NewApp(*cfg, logger.Discard())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if a.settings.Preferred(context.Background()) != "coinbase" {
		t.Fatalf("unexpected default source")
	}
	if a.updater != nil || a.bot != nil || a.db != nil {
		t.Fatalf("optional parts must stay disabled")
	}
}

func TestNewApp_Misconfigured(t *testing.T) {
	cases := map[string]func(*config.Config){
		"postgres settings without postgres": func(c *config.Config) { c.Settings.Backend = "postgres" },
		"unknown backend":                    func(c *config.Config) { c.Settings.Backend = "etcd" },
		"telegram without token":             func(c *config.Config) { c.Telegram.Enabled, c.Telegram.Token = true, "" },
	}
	for name, mutate := range cases {
		cfg := testConfig(t)
		mutate(cfg)
		if _, err := NewApp(*cfg, logger.Discard()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
