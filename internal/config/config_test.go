package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Orchestrator.TickInterval != 60*time.Second {
		t.Errorf("tick interval = %v, want 60s", cfg.Orchestrator.TickInterval)
	}
	if cfg.Orchestrator.LookAheadHours != 24 {
		t.Errorf("look-ahead hours = %d, want 24", cfg.Orchestrator.LookAheadHours)
	}
	if cfg.Worker.MatchPerNrBlocks != 4 {
		t.Errorf("match-per-nr-blocks = %d, want 4", cfg.Worker.MatchPerNrBlocks)
	}
	if cfg.Worker.Algorithm != "pay-as-bid" {
		t.Errorf("algorithm = %q, want pay-as-bid", cfg.Worker.Algorithm)
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	for k, v := range map[string]string{
		"ORDERBOOK_SERVICE_URL":    "http://example.test:9000",
		"MATCH_PER_NR_BLOCKS":      "7",
		"MATCHING_ALGORITHM":       "pay-as-clear",
		"TICK_INTERVAL_SECONDS":    "30",
		"LOOK_AHEAD_HOURS":         "12",
		"ORCHESTRATOR_SIGNER_SURI": "deadbeef",
		"API_ADDR":                 ":9090",
		"DATA_DIR":                 "/tmp/gsy-data",
	} {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg := LoadFromEnv("/nonexistent/.env")

	if cfg.Worker.OrderbookServiceURL != "http://example.test:9000" {
		t.Errorf("orderbook URL = %q", cfg.Worker.OrderbookServiceURL)
	}
	if cfg.Worker.MatchPerNrBlocks != 7 {
		t.Errorf("match-per-nr-blocks = %d, want 7", cfg.Worker.MatchPerNrBlocks)
	}
	if cfg.Worker.Algorithm != "pay-as-clear" {
		t.Errorf("algorithm = %q, want pay-as-clear", cfg.Worker.Algorithm)
	}
	if cfg.Orchestrator.TickInterval != 30*time.Second {
		t.Errorf("tick interval = %v, want 30s", cfg.Orchestrator.TickInterval)
	}
	if cfg.Orchestrator.LookAheadHours != 12 {
		t.Errorf("look-ahead hours = %d, want 12", cfg.Orchestrator.LookAheadHours)
	}
	if cfg.Orchestrator.SignerSURI != "deadbeef" {
		t.Errorf("signer SURI = %q", cfg.Orchestrator.SignerSURI)
	}
	if cfg.API.Addr != ":9090" {
		t.Errorf("API addr = %q, want :9090", cfg.API.Addr)
	}
	if cfg.DataDir != "/tmp/gsy-data" {
		t.Errorf("data dir = %q, want /tmp/gsy-data", cfg.DataDir)
	}
}
