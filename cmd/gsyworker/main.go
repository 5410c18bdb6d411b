// Command gsyworker runs the Off-Chain Worker (spec.md §4.6) as a
// standalone process. Its flags are `--orderbook-host`, `--orderbook-port`,
// `--algorithm` and `--signer-key`; it has no `--node-host`/`--node-port`
// flags, since it does not connect to a separate node.
//
// This module drops the teacher's libp2p/consensus closure (multi-node
// networking is out of scope, per spec.md's non-goals), so there is no RPC
// channel between separate node/worker processes: gsyworker constructs its
// own on-chain tier and drives it directly, exactly as the embedded worker
// inside cmd/gsynode does. It is provided for CLI-surface parity and for
// operating a worker against its own isolated chain state (e.g. in tests
// or demos); a production deployment runs the worker embedded in gsynode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gsy-exchange/clearing-node/internal/clearing"
	"github.com/gsy-exchange/clearing-node/internal/config"
	"github.com/gsy-exchange/clearing-node/internal/crypto"
	"github.com/gsy-exchange/clearing-node/internal/events"
	"github.com/gsy-exchange/clearing-node/internal/logging"
	"github.com/gsy-exchange/clearing-node/internal/orderbook"
	"github.com/gsy-exchange/clearing-node/internal/registry"
	"github.com/gsy-exchange/clearing-node/internal/settlement"
	"github.com/gsy-exchange/clearing-node/internal/vault"
	"github.com/gsy-exchange/clearing-node/internal/worker"
)

func main() {
	var (
		orderbookHost = flag.String("orderbook-host", "localhost", "persistence service host")
		orderbookPort = flag.Int("orderbook-port", 8080, "persistence service port")
		algorithm     = flag.String("algorithm", "", "clearing algorithm: pay-as-bid | pay-as-clear")
		signerKey     = flag.String("signer-key", "", "hex-encoded operator private key")
	)
	flag.Parse()

	cfg := config.LoadFromEnv("")
	if *algorithm != "" {
		cfg.Worker.Algorithm = *algorithm
	}
	orderbookURL := fmt.Sprintf("http://%s:%d", *orderbookHost, *orderbookPort)

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
	} else {
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		sugar.Errorw("signer_init_failed", "err", err)
		os.Exit(1)
	}
	operator := signer.AccountID()

	reg := registry.New()
	if err := reg.RegisterOperator(operator); err != nil {
		sugar.Errorw("register_operator_failed", "err", err)
		os.Exit(1)
	}
	vaults := vault.NewManager()
	bus := events.NewBus()
	book := orderbook.New(reg, vaults, bus)
	settler := settlement.New(book)

	w := worker.New(settler, operator, worker.Config{
		OrderbookURL:     orderbookURL,
		HTTPDeadline:     cfg.Worker.HTTPTimeout,
		MatchPerNrBlocks: cfg.Worker.MatchPerNrBlocks,
		Algorithm:        clearing.Algorithm(cfg.Worker.Algorithm),
		ReconnectDelay:   cfg.Worker.ReconnectDelay,
	}, sugar)
	w.Subscribe(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("gsyworker_started", "orderbook_url", orderbookURL, "algorithm", cfg.Worker.Algorithm)
	w.Run(ctx, 2*time.Second, cfg.Worker.ReconnectDelay)
	sugar.Info("gsyworker_stopped")
}
