package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("loading defaults failed: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Poller.Interval != 10*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.Poller.Interval)
	}
	if cfg.Stats.MinSamples != 5 || cfg.Stats.HistoryCap != 200 {
		t.Fatalf("unexpected stats defaults: %+v", cfg.Stats)
	}
	if cfg.Deals.Threshold != 0.30 {
		t.Fatalf("unexpected deal threshold %v", cfg.Deals.Threshold)
	}
	if cfg.Dedupe.Retention != 24*time.Hour || cfg.Dedupe.Backend != "memory" {
		t.Fatalf("unexpected dedupe defaults: %+v", cfg.Dedupe)
	}
	if !cfg.Sources.RivenMarket.Enabled || !cfg.Sources.WarframeMarket.Enabled {
		t.Fatal("both sources should be enabled by default")
	}
	if cfg.Alerting.Enabled {
		t.Fatal("alerting should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
poller:
  interval: 30s
deals:
  threshold: 0.5
sources:
  warframe_market:
    enabled: false
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Poller.Interval != 30*time.Second {
		t.Fatalf("file override ignored: %s", cfg.Poller.Interval)
	}
	if cfg.Deals.Threshold != 0.5 {
		t.Fatalf("file override ignored: %v", cfg.Deals.Threshold)
	}
	if cfg.Sources.WarframeMarket.Enabled {
		t.Fatal("file override ignored: warframe_market should be disabled")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Poller.Interval = 0 }},
		{"threshold above one", func(c *Config) { c.Deals.Threshold = 1.5 }},
		{"percentile above one", func(c *Config) { c.Stats.Percentile = 2 }},
		{"zero min samples", func(c *Config) { c.Stats.MinSamples = 0 }},
		{"zero retention", func(c *Config) { c.Dedupe.Retention = 0 }},
		{"unknown dedupe backend", func(c *Config) { c.Dedupe.Backend = "sqlite" }},
		{"redis backend without addr", func(c *Config) { c.Dedupe.Backend = "redis" }},
		{"all sources disabled", func(c *Config) {
			c.Sources.RivenMarket.Enabled = false
			c.Sources.WarframeMarket.Enabled = false
		}},
		{"pushover without credentials", func(c *Config) {
			c.Alerting.Enabled = true
			c.Alerting.Channels = []string{"pushover"}
		}},
		{"unknown channel", func(c *Config) {
			c.Alerting.Enabled = true
			c.Alerting.Channels = []string{"carrier_pigeon"}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := loadDefaults(t)
	if got := cfg.ResolveMaxPoints(0); got != cfg.Export.MaxDataPoints {
		t.Fatalf("zero override should fall back to config, got %d", got)
	}
	if got := cfg.ResolveMaxPoints(50); got != 50 {
		t.Fatalf("override ignored, got %d", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
