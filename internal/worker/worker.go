// Package worker implements the Off-Chain Worker component (spec.md §4.6):
// it drains pending order/trade maps to the persistence service over HTTP,
// rolling back the Order Book on delivery failure, and periodically runs
// the matching engine against freshly-fetched open orders.
//
// Grounded on the teacher's pkg/app/core/mempool/mempool.go bucketed-queue
// idiom (classify-then-drain), generalized from mempool admission to the
// worker's pending-orders/pending-trades maps; HTTP delivery goes through
// internal/persistenceclient (go-resty-backed, present in
// 0xtitan6-polymarket-mm's exchange client) in place of the teacher's
// libp2p transport, since the worker talks to a plain REST persistence
// service, not a gossip network; reconnect backoff uses jpillora/backoff
// (tommy-ca-opensqt_market_maker's subscription retry idiom).
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/clearing"
	"github.com/gsy-exchange/clearing-node/internal/events"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/logging"
	"github.com/gsy-exchange/clearing-node/internal/persistenceclient"
	"github.com/gsy-exchange/clearing-node/internal/schema"
	"github.com/gsy-exchange/clearing-node/internal/settlement"
)

// ChainClient is the subset of the on-chain tier the worker drives: order
// deletion for rollback, open-order listing for the matching job, and
// trade settlement submission.
type ChainClient interface {
	DeleteOrders(caller accountid.ID, hashes []hash.Hash) error
	OpenOrders() []schema.Order
	Settle(operator accountid.ID, batch []schema.ProposedMatch, creationTime uint64) ([]settlement.PendingResidual, error)
}

// pendingOrder is a queued order awaiting delivery to the persistence
// service.
type pendingOrder struct {
	owner accountid.ID
	order schema.Order
}

// Worker drains OrdersForWorker/TradesForWorker to the persistence service
// and runs the matching job every MatchPerNrBlocks.
type Worker struct {
	chain    ChainClient
	operator accountid.ID
	client   *persistenceclient.Client
	logger   *zap.SugaredLogger

	matchPerNrBlocks int
	algorithm        clearing.Algorithm

	mu            sync.Mutex
	pendingOrders map[hash.Hash]pendingOrder
	pendingTrades map[hash.Hash]schema.Trade

	blockNumber uint64
}

// Config collects Worker's tunables (spec.md §6 env vars).
type Config struct {
	OrderbookURL     string
	HTTPDeadline     time.Duration
	MatchPerNrBlocks int
	Algorithm        clearing.Algorithm
	ReconnectDelay   time.Duration
}

// New builds a Worker bound to chain, submitting settlement batches as
// operator (unsigned), and delivering to cfg.OrderbookURL.
func New(chain ChainClient, operator accountid.ID, cfg Config, logger *zap.SugaredLogger) *Worker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Worker{
		chain:            chain,
		operator:         operator,
		client:           persistenceclient.New(cfg.OrderbookURL, cfg.HTTPDeadline),
		logger:           logger,
		matchPerNrBlocks: cfg.MatchPerNrBlocks,
		algorithm:        cfg.Algorithm,
		pendingOrders:    make(map[hash.Hash]pendingOrder),
		pendingTrades:    make(map[hash.Hash]schema.Trade),
	}
}

// Subscribe wires the worker to an event bus so it mirrors every
// NewOrderInserted/NewOrderInsertedByProxy/OrderDeleted/TradeCleared event
// into its own pending maps. It should be called once, before Run.
func (w *Worker) Subscribe(bus *events.Bus) {
	ch, _ := bus.Subscribe(256)
	go func() {
		for ev := range ch {
			w.onEvent(ev)
		}
	}()
}

func (w *Worker) onEvent(ev events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch ev.Kind {
	case events.NewOrderInserted, events.NewOrderInsertedByProxy:
		if ev.Order != nil {
			w.pendingOrders[ev.OrderHash] = pendingOrder{owner: ev.Delegator, order: *ev.Order}
		}
	case events.OrderDeleted:
		delete(w.pendingOrders, ev.OrderHash)
	case events.TradeCleared:
		if ev.Trade != nil {
			w.pendingTrades[ev.Trade.TradeUUID] = *ev.Trade
		}
	}
}

// Run drives the worker's per-block loop until ctx is cancelled: drain
// pending orders/trades every blockInterval, and run the matching job
// every MatchPerNrBlocks blocks. If drainOrders returns an error, the loop
// sleeps for an exponentially growing delay (from reconnectDelay, capped at
// 30s) before the next tick. drainOrders reports a failed POST through
// rollback and logging rather than an error, so a failed delivery does not
// trigger that delay.
func (w *Worker) Run(ctx context.Context, blockInterval, reconnectDelay time.Duration) {
	b := &backoff.Backoff{Min: reconnectDelay, Max: 30 * time.Second, Factor: 2}
	ticker := time.NewTicker(blockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.blockNumber++
			if err := w.drainOrders(ctx); err != nil {
				w.logger.Warnw("drain_orders_failed", "err", err)
				time.Sleep(b.Duration())
				continue
			}
			if err := w.drainTrades(ctx); err != nil {
				w.logger.Warnw("drain_trades_failed", "err", err)
			}
			if w.matchPerNrBlocks > 0 && w.blockNumber%uint64(w.matchPerNrBlocks) == 0 {
				w.runMatchingJob(ctx)
			}
			b.Reset()
		}
	}
}

// drainOrders POSTs every pending order to {orderbook_url}/orders. On HTTP
// 200 it issues "remove-local-order-by-reference" (pending map only); on
// non-200 it issues "remove-order-by-reference" — a rollback that also
// deletes the order from the Order Book (spec.md §4.6).
func (w *Worker) drainOrders(ctx context.Context) error {
	w.mu.Lock()
	batch := make(map[hash.Hash]pendingOrder, len(w.pendingOrders))
	for h, p := range w.pendingOrders {
		batch[h] = p
	}
	w.mu.Unlock()

	for h, p := range batch {
		status, err := w.client.PostOrders(ctx, []schema.Order{p.order})
		if err != nil || status != 200 {
			if err != nil {
				w.logger.Warnw("order_post_failed", logging.KeyOrderHash, h.String(), "err", err)
			} else {
				w.logger.Warnw("order_post_rejected", logging.KeyOrderHash, h.String(), "status", status)
			}
			if derr := w.chain.DeleteOrders(p.owner, []hash.Hash{h}); derr != nil {
				w.logger.Warnw("order_rollback_failed", logging.KeyOrderHash, h.String(), "err", derr)
			}
			w.mu.Lock()
			delete(w.pendingOrders, h)
			w.mu.Unlock()
			continue
		}
		w.mu.Lock()
		delete(w.pendingOrders, h)
		w.mu.Unlock()
	}
	return nil
}

// drainTrades POSTs every pending trade to {orderbook_url}/trades.
// Non-200 is logged only — spec.md §4.6 does not define an on-chain
// reaction for a failed trade delivery.
func (w *Worker) drainTrades(ctx context.Context) error {
	w.mu.Lock()
	batch := make(map[hash.Hash]schema.Trade, len(w.pendingTrades))
	for h, t := range w.pendingTrades {
		batch[h] = t
	}
	w.mu.Unlock()

	for h, t := range batch {
		status, err := w.client.PostTrades(ctx, []schema.Trade{t})
		if err != nil {
			w.logger.Warnw("trade_post_failed", logging.KeyTradeUUID, h.String(), "err", err)
			continue
		}
		if status != 200 {
			w.logger.Warnw("trade_post_rejected", logging.KeyTradeUUID, h.String(), "status", status)
			continue
		}
		w.mu.Lock()
		delete(w.pendingTrades, h)
		w.mu.Unlock()
	}
	return nil
}

// runMatchingJob executes the configured clearing algorithm against the
// currently open orders and submits the result as one settle_trades batch
// (spec.md §4.6).
func (w *Worker) runMatchingJob(ctx context.Context) {
	open := w.chain.OpenOrders()

	type group struct {
		bids   []schema.Bid
		offers []schema.Offer
	}
	byMarket := make(map[hash.Hash]*group)
	for _, o := range open {
		marketID := o.Component().MarketID
		g, ok := byMarket[marketID]
		if !ok {
			g = &group{}
			byMarket[marketID] = g
		}
		if o.Kind == schema.KindBid {
			g.bids = append(g.bids, *o.Bid)
		} else {
			g.offers = append(g.offers, *o.Offer)
		}
	}

	var allMatches []schema.ProposedMatch
	for marketID, g := range byMarket {
		if len(g.bids) == 0 || len(g.offers) == 0 {
			continue
		}
		allMatches = append(allMatches, clearing.Run(w.algorithm, clearing.Input{
			Bids: g.bids, Offers: g.offers, MarketID: marketID,
		})...)
	}
	if len(allMatches) == 0 {
		return
	}

	residuals, err := w.chain.Settle(w.operator, allMatches, uint64(time.Now().Unix()))
	if err != nil {
		w.logger.Warnw("settle_trades_failed", "err", err)
		return
	}

	w.mu.Lock()
	for _, r := range residuals {
		w.pendingOrders[r.Order.Hash()] = pendingOrder{owner: r.Owner, order: r.Order}
	}
	w.mu.Unlock()

	w.logger.Infow("matching_job_settled", logging.KeyHeight, w.blockNumber, "matches", len(allMatches), "residuals", len(residuals))
}
