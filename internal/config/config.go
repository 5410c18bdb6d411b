// Package config loads the ambient configuration used by the node, worker,
// and orchestrator binaries (spec.md §6).
//
// Grounded on the teacher's params/config.go pattern: a Default(), a
// LoadFromEnv(envPath) that layers an optional .env file under real
// environment variables via godotenv, and typed per-subsystem config
// structs.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Orchestrator holds the Market Orchestrator's tick-loop parameters
// (spec.md §4.5).
type Orchestrator struct {
	TickInterval   time.Duration
	LookAheadHours int
	SignerSURI     string
	RulesPath      string // optional YAML override of market.DefaultRules
}

// Worker holds the Off-Chain Worker's parameters (spec.md §4.6).
type Worker struct {
	OrderbookServiceURL string
	GSYNodeURL          string
	MatchPerNrBlocks    int
	Algorithm           string
	HTTPTimeout         time.Duration
	ReconnectDelay      time.Duration
}

// API holds the persistence service's listen address (spec.md §6).
type API struct {
	Addr string
}

// Config is the full ambient configuration, loaded once at process start.
type Config struct {
	Orchestrator Orchestrator
	Worker       Worker
	API          API
	DataDir      string // pebble durability directory for the on-chain tier
}

// Default returns the spec-mandated defaults: 60 s tick interval, 24 h
// look-ahead, match every 4 blocks, pay-as-bid.
func Default() Config {
	return Config{
		Orchestrator: Orchestrator{
			TickInterval:   60 * time.Second,
			LookAheadHours: 24,
		},
		Worker: Worker{
			OrderbookServiceURL: "http://localhost:8080",
			GSYNodeURL:          "http://localhost:9944",
			MatchPerNrBlocks:    4,
			Algorithm:           "pay-as-bid",
			HTTPTimeout:         2 * time.Second,
			ReconnectDelay:      2 * time.Second,
		},
		API: API{
			Addr: ":8080",
		},
		DataDir: "data/store",
	}
}

// LoadFromEnv loads defaults, then an optional .env file, then overrides
// from real environment variables (priority: ENV > .env > defaults).
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("ORDERBOOK_SERVICE_URL"); v != "" {
		cfg.Worker.OrderbookServiceURL = v
	}
	if v := os.Getenv("GSY_NODE_URL"); v != "" {
		cfg.Worker.GSYNodeURL = v
	}
	if v := os.Getenv("MATCH_PER_NR_BLOCKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MatchPerNrBlocks = n
		}
	}
	if v := os.Getenv("MATCHING_ALGORITHM"); v != "" {
		cfg.Worker.Algorithm = v
	}

	if v := os.Getenv("TICK_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.TickInterval = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("LOOK_AHEAD_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.LookAheadHours = h
		}
	}
	if v := os.Getenv("ORCHESTRATOR_SIGNER_SURI"); v != "" {
		cfg.Orchestrator.SignerSURI = v
	}
	if v := os.Getenv("MARKET_RULES_FILE"); v != "" {
		cfg.Orchestrator.RulesPath = v
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	return cfg
}
