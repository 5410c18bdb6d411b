// Command gsynode runs the full clearing node: the on-chain tier (Order
// Book, Collateral Vaults, Trade Settlement, MarketStatus), the
// persistence-service REST surface, the off-chain worker, and the market
// orchestrator, all in one process.
//
// Grounded on the teacher's cmd/node/main.go wiring shape: load config,
// build a file-teeing zap logger, construct every component, start
// background loops, and shut down cleanly on SIGINT/SIGTERM. This module
// drops the teacher's libp2p/HotStuff consensus closure (spec.md places
// multi-node consensus out of scope), so the on-chain tier and the
// off-chain worker run in one process instead of talking over a gossip
// network — the worker and orchestrator call chain methods directly rather
// than over RPC.
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
	"github.com/gsy-exchange/clearing-node/internal/orchestrator"
	"github.com/gsy-exchange/clearing-node/internal/orderbook"
	"github.com/gsy-exchange/clearing-node/internal/persistence"
	"github.com/gsy-exchange/clearing-node/internal/registry"
	"github.com/gsy-exchange/clearing-node/internal/settlement"
	"github.com/gsy-exchange/clearing-node/internal/storage"
	"github.com/gsy-exchange/clearing-node/internal/vault"
	"github.com/gsy-exchange/clearing-node/internal/worker"
)

func main() {
	var (
		apiAddr        = flag.String("api-addr", "", "persistence REST listen address (overrides API_ADDR)")
		algorithm      = flag.String("algorithm", "", "clearing algorithm: pay-as-bid | pay-as-clear")
		tickInterval   = flag.Duration("tick-interval", 0, "orchestrator tick interval")
		lookAheadHours = flag.Int("look-ahead-hours", 0, "orchestrator look-ahead window, in hours")
		signerKey      = flag.String("signer-key", "", "hex-encoded operator private key (generates an ephemeral one if empty)")
	)
	flag.Parse()

	cfg := config.LoadFromEnv("")
	if *apiAddr != "" {
		cfg.API.Addr = *apiAddr
	}
	if *algorithm != "" {
		cfg.Worker.Algorithm = *algorithm
	}
	if *tickInterval != 0 {
		cfg.Orchestrator.TickInterval = *tickInterval
	}
	if *lookAheadHours != 0 {
		cfg.Orchestrator.LookAheadHours = *lookAheadHours
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/gsynode.log"
	}
	logger, err := logging.NewWithFile(logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	var signer *crypto.Signer
	if *signerKey != "" {
		signer, err = crypto.FromPrivateKeyHex(*signerKey)
	} else {
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		sugar.Fatalw("signer_init_failed", "err", err)
	}
	operator := signer.AccountID()
	sugar.Infow("operator_account", "account_id", operator.String())

	reg := registry.New()
	if err := reg.RegisterOperator(operator); err != nil {
		sugar.Fatalw("register_operator_failed", "err", err)
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "data_dir", cfg.DataDir, "err", err)
	}
	defer db.Close()

	vaults := vault.NewManager()
	restoredVaults, err := db.LoadAllVaults()
	if err != nil {
		sugar.Fatalw("vault_restore_failed", "err", err)
	}
	for _, v := range restoredVaults {
		vaults.Restore(v)
	}

	bus := events.NewBus()
	book := orderbook.New(reg, vaults, bus)
	restoredOrders, err := db.LoadAllOrders()
	if err != nil {
		sugar.Fatalw("order_restore_failed", "err", err)
	}
	for _, rec := range restoredOrders {
		book.Restore(rec.Owner, rec.Order, rec.Status)
	}
	sugar.Infow("warm_restart_complete", "data_dir", cfg.DataDir, "vaults", len(restoredVaults), "orders", len(restoredOrders))
	db.Subscribe(bus)

	settler := settlement.New(book)

	persistenceStore := persistence.NewStore()
	server := persistence.NewServer(persistenceStore, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("persistence_server_listening", "addr", cfg.API.Addr)
		if err := server.ListenAndServe(cfg.API.Addr); err != nil {
			sugar.Errorw("persistence_server_stopped", "err", err)
		}
	}()

	w := worker.New(settler, operator, worker.Config{
		OrderbookURL:     cfg.Worker.OrderbookServiceURL,
		HTTPDeadline:     cfg.Worker.HTTPTimeout,
		MatchPerNrBlocks: cfg.Worker.MatchPerNrBlocks,
		Algorithm:        clearing.Algorithm(cfg.Worker.Algorithm),
		ReconnectDelay:   cfg.Worker.ReconnectDelay,
	}, sugar)
	w.Subscribe(bus)
	go w.Run(ctx, 2*time.Second, cfg.Worker.ReconnectDelay)

	orch := orchestrator.New(book, signer, cfg.Orchestrator.TickInterval, cfg.Orchestrator.LookAheadHours, cfg.Orchestrator.RulesPath, orchestrator.WithLogger(sugar))
	go orch.Run(ctx)

	sugar.Info("gsynode_started")
	<-ctx.Done()
	sugar.Info("gsynode_shutting_down")
}
