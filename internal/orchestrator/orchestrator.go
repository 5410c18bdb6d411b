// Package orchestrator implements the Market Orchestrator component
// (spec.md §4.5): an independent wall-clock tick loop that keeps each
// market's per-slot open/closed flag in sync with a static rule table.
//
// Grounded on the teacher's cmd/node/main.go ticker/progress-logging loop
// (a time.Ticker driving a periodic reconciliation step) and on
// original_source/gsy-market-orchestrator/src/orchestrator.rs for the tick
// semantics (look-ahead window, should_be_open predicate, idempotent
// update submission). The optional YAML rule-table override is grounded on
// gopkg.in/yaml.v3's use in tommy-ca-opensqt_market_maker's strategy config
// loader.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/crypto"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/logging"
	"github.com/gsy-exchange/clearing-node/internal/market"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

// ChainClient is the orchestrator's view of the on-chain tier: read the
// current market-status flag, and submit a status update under the
// signer's account id when it disagrees with the rule table. The update
// carries no signature; the signer only supplies that account id.
type ChainClient interface {
	IsMarketOpen(marketID hash.Hash) bool
	UpdateMarketStatus(operator accountid.ID, marketID hash.Hash, isOpen bool) error
}

// Clock abstracts wall-clock time for deterministic tests, mirroring the
// teacher's pkg/util.Clock interface.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Orchestrator runs the tick loop described in spec.md §4.5.
type Orchestrator struct {
	chain          ChainClient
	signer         *crypto.Signer
	clock          Clock
	tickInterval   time.Duration
	lookAheadHours int
	rules          []market.Rule
	logger         *zap.SugaredLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the wall clock (for tests).
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New builds an Orchestrator. rulesPath, if non-empty, is loaded as a YAML
// override of market.DefaultRules; on any load error the default table is
// kept and the error is logged, never fatal (spec.md §7: transient/config
// faults degrade gracefully).
func New(chain ChainClient, signer *crypto.Signer, tickInterval time.Duration, lookAheadHours int, rulesPath string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		chain:          chain,
		signer:         signer,
		clock:          realClock{},
		tickInterval:   tickInterval,
		lookAheadHours: lookAheadHours,
		rules:          market.DefaultRules,
		logger:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if rulesPath != "" {
		if rules, err := loadRules(rulesPath); err != nil {
			o.logger.Warnw("market_rules_override_failed", "path", rulesPath, "err", err)
		} else {
			o.rules = rules
		}
	}
	return o
}

func loadRules(path string) ([]market.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: reading rules file: %w", err)
	}
	var rules []market.Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("orchestrator: parsing rules file: %w", err)
	}
	return rules, nil
}

// Run drives the tick loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	o.tick()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator_stopped")
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick implements spec.md §4.5 steps 1-3: for every 15-minute-aligned slot
// from the one containing now through now+look_ahead, for every rule,
// reconcile should_be_open against on-chain status.
func (o *Orchestrator) tick() {
	now := o.clock.Now().Unix()
	horizon := now + int64(o.lookAheadHours)*3600
	start := (now / schema.SlotDuration) * schema.SlotDuration

	for slotStart := start; slotStart <= horizon; slotStart += schema.SlotDuration {
		slot := uint64(slotStart)
		for _, rule := range o.rules {
			marketID := rule.MarketID(slot)
			shouldBeOpen := rule.ShouldBeOpen(now, slotStart)
			current := o.chain.IsMarketOpen(marketID)
			if current == shouldBeOpen {
				continue
			}
			if err := o.chain.UpdateMarketStatus(o.signer.AccountID(), marketID, shouldBeOpen); err != nil {
				o.logger.Warnw("update_market_status_failed", logging.KeyMarketID, marketID.String(), "slot", slot, "err", err)
				continue
			}
			o.logger.Infow("market_status_updated", logging.KeyMarketID, marketID.String(), "type", rule.Type, "slot", slot, "is_open", shouldBeOpen)
		}
	}
}
