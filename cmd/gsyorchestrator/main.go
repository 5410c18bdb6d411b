// Command gsyorchestrator runs the Market Orchestrator (spec.md §4.5) as a
// standalone process, exposing `--tick-interval` and `--look-ahead-hours`
// per spec.md §6's documented CLI surface.
//
// As with cmd/gsyworker, this binary constructs its own on-chain tier
// rather than attaching to a remote gsynode over RPC — multi-process
// chain networking is out of scope for this module (spec.md's non-goals
// exclude consensus/networking internals). It is provided for CLI-surface
// parity; production deployments run the orchestrator embedded in
// gsynode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gsy-exchange/clearing-node/internal/config"
	"github.com/gsy-exchange/clearing-node/internal/crypto"
	"github.com/gsy-exchange/clearing-node/internal/events"
	"github.com/gsy-exchange/clearing-node/internal/logging"
	"github.com/gsy-exchange/clearing-node/internal/orchestrator"
	"github.com/gsy-exchange/clearing-node/internal/orderbook"
	"github.com/gsy-exchange/clearing-node/internal/registry"
	"github.com/gsy-exchange/clearing-node/internal/vault"
)

func main() {
	var (
		tickInterval   = flag.Duration("tick-interval", 0, "tick interval, e.g. 60s")
		lookAheadHours = flag.Int("look-ahead-hours", 0, "look-ahead window in hours")
		signerKey      = flag.String("signer-key", "", "hex-encoded operator private key (SURI substitute)")
		rulesPath      = flag.String("rules-file", "", "optional YAML override of the market rule table")
	)
	flag.Parse()

	cfg := config.LoadFromEnv("")
	if *tickInterval != 0 {
		cfg.Orchestrator.TickInterval = *tickInterval
	}
	if *lookAheadHours != 0 {
		cfg.Orchestrator.LookAheadHours = *lookAheadHours
	}
	if *rulesPath != "" {
		cfg.Orchestrator.RulesPath = *rulesPath
	}

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	var signer *crypto.Signer
	if *signerKey != "" {
		signer, err = crypto.FromPrivateKeyHex(*signerKey)
	} else if cfg.Orchestrator.SignerSURI != "" {
		signer, err = crypto.FromPrivateKeyHex(cfg.Orchestrator.SignerSURI)
	} else {
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		sugar.Errorw("signer_init_failed", "err", err)
		os.Exit(1)
	}

	reg := registry.New()
	if err := reg.RegisterOperator(signer.AccountID()); err != nil {
		sugar.Errorw("register_operator_failed", "err", err)
		os.Exit(1)
	}
	book := orderbook.New(reg, vault.NewManager(), events.NewBus())

	orch := orchestrator.New(book, signer, cfg.Orchestrator.TickInterval, cfg.Orchestrator.LookAheadHours, cfg.Orchestrator.RulesPath, orchestrator.WithLogger(sugar))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("gsyorchestrator_started", "tick_interval", cfg.Orchestrator.TickInterval, "look_ahead_hours", cfg.Orchestrator.LookAheadHours)
	orch.Run(ctx)
	sugar.Info("gsyorchestrator_stopped")
}
