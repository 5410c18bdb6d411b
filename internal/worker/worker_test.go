package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/clearing"
	"github.com/gsy-exchange/clearing-node/internal/events"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
	"github.com/gsy-exchange/clearing-node/internal/settlement"
)

type fakeChain struct {
	mu      sync.Mutex
	deleted []hash.Hash
	open    []schema.Order
}

func (f *fakeChain) DeleteOrders(_ accountid.ID, hashes []hash.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, hashes...)
	return nil
}

func (f *fakeChain) OpenOrders() []schema.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChain) Settle(_ accountid.ID, _ []schema.ProposedMatch, _ uint64) ([]settlement.PendingResidual, error) {
	return nil, nil
}

func testOrder(b byte) schema.Order {
	var buyer accountid.ID
	buyer[0] = b
	var area, market hash.Hash
	area[0], market[0] = 1, 2
	return schema.NewBidOrder(schema.Bid{
		Buyer: buyer,
		Nonce: 1,
		BidComponent: schema.OrderComponent{
			AreaUUID: area, MarketID: market,
			TimeSlot: 900, CreationTime: 1,
			Energy: 1_0000, EnergyRate: 5_0000,
		},
	})
}

func TestDrainOrdersRemovesOnSuccess(t *testing.T) {
	var posted int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posted++
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	chain := &fakeChain{}
	w := New(chain, accountid.ID{}, Config{OrderbookURL: ts.URL, HTTPDeadline: time.Second}, nil)

	order := testOrder(1)
	w.pendingOrders[order.Hash()] = pendingOrder{owner: order.Owner(), order: order}

	if err := w.drainOrders(context.Background()); err != nil {
		t.Fatalf("drainOrders: %v", err)
	}
	if posted != 1 {
		t.Fatalf("posted %d times, want 1", posted)
	}
	if len(w.pendingOrders) != 0 {
		t.Fatalf("pendingOrders should be empty after a successful delivery, got %d", len(w.pendingOrders))
	}
	if len(chain.deleted) != 0 {
		t.Fatalf("a successful delivery must not roll back the order, got %d deletions", len(chain.deleted))
	}
}

func TestDrainOrdersRollsBackOnNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	chain := &fakeChain{}
	w := New(chain, accountid.ID{}, Config{OrderbookURL: ts.URL, HTTPDeadline: time.Second}, nil)

	order := testOrder(2)
	orderHash := order.Hash()
	w.pendingOrders[orderHash] = pendingOrder{owner: order.Owner(), order: order}

	if err := w.drainOrders(context.Background()); err != nil {
		t.Fatalf("drainOrders: %v", err)
	}
	if len(w.pendingOrders) != 0 {
		t.Fatalf("pendingOrders should be drained even on rollback, got %d", len(w.pendingOrders))
	}
	if len(chain.deleted) != 1 || chain.deleted[0] != orderHash {
		t.Fatalf("expected a rollback deletion of %s, got %v", orderHash, chain.deleted)
	}
}

func TestDrainTradesLeavesPendingOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	chain := &fakeChain{}
	w := New(chain, accountid.ID{}, Config{OrderbookURL: ts.URL, HTTPDeadline: time.Second}, nil)

	var tradeUUID hash.Hash
	tradeUUID[0] = 9
	trade := schema.Trade{TradeUUID: tradeUUID}
	w.pendingTrades[tradeUUID] = trade

	if err := w.drainTrades(context.Background()); err != nil {
		t.Fatalf("drainTrades: %v", err)
	}
	if _, ok := w.pendingTrades[tradeUUID]; !ok {
		t.Fatal("a failed trade delivery must stay pending for retry")
	}
}

func TestOnEventPopulatesPendingOrderPayload(t *testing.T) {
	chain := &fakeChain{}
	w := New(chain, accountid.ID{}, Config{HTTPDeadline: time.Second}, nil)

	order := testOrder(3)
	orderCopy := order
	w.onEvent(events.Event{
		Kind:      events.NewOrderInserted,
		Delegator: order.Owner(),
		OrderHash: order.Hash(),
		Order:     &orderCopy,
	})

	got, ok := w.pendingOrders[order.Hash()]
	if !ok {
		t.Fatal("expected the order to be queued")
	}
	if got.order.Hash() != order.Hash() {
		t.Fatalf("queued order payload does not match the event's order")
	}
}

func TestOnEventDeleteRemovesPendingOrder(t *testing.T) {
	chain := &fakeChain{}
	w := New(chain, accountid.ID{}, Config{HTTPDeadline: time.Second}, nil)

	order := testOrder(4)
	w.pendingOrders[order.Hash()] = pendingOrder{owner: order.Owner(), order: order}

	w.onEvent(events.Event{Kind: events.OrderDeleted, OrderHash: order.Hash()})

	if _, ok := w.pendingOrders[order.Hash()]; ok {
		t.Fatal("OrderDeleted must remove the order from the pending map")
	}
}

func TestRunMatchingJobGroupsByMarketAndSkipsEmptySides(t *testing.T) {
	var marketA, marketB hash.Hash
	marketA[0], marketB[0] = 1, 2
	var bidArea, offerArea hash.Hash
	bidArea[0], offerArea[0] = 3, 4

	bidA := schema.NewBidOrder(schema.Bid{
		BidComponent: schema.OrderComponent{AreaUUID: bidArea, MarketID: marketA, Energy: 1_0000, EnergyRate: 5_0000},
	})
	// marketB only has a bid and no offer: runMatchingJob must skip it
	// rather than calling clearing.Run with an empty offer side.
	bidB := schema.NewBidOrder(schema.Bid{
		BidComponent: schema.OrderComponent{MarketID: marketB, Energy: 1_0000, EnergyRate: 5_0000},
	})
	offerA := schema.NewOfferOrder(schema.Offer{
		OfferComponent: schema.OrderComponent{AreaUUID: offerArea, MarketID: marketA, Energy: 1_0000, EnergyRate: 3_0000},
	})

	chain := &fakeChain{open: []schema.Order{bidA, bidB, offerA}}
	w := New(chain, accountid.ID{}, Config{HTTPDeadline: time.Second, Algorithm: clearing.PayAsBid}, nil)

	w.runMatchingJob(context.Background())

	// The match from marketA produces no residual here (exact cross), so
	// nothing should land in pendingOrders.
	if len(w.pendingOrders) != 0 {
		t.Fatalf("expected no residual orders queued, got %d", len(w.pendingOrders))
	}
}

func TestPostOrdersBodyIsJSONArray(t *testing.T) {
	var received []schema.Order
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	chain := &fakeChain{}
	w := New(chain, accountid.ID{}, Config{OrderbookURL: ts.URL, HTTPDeadline: time.Second}, nil)

	order := testOrder(5)
	w.pendingOrders[order.Hash()] = pendingOrder{owner: order.Owner(), order: order}

	if err := w.drainOrders(context.Background()); err != nil {
		t.Fatalf("drainOrders: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("server received %d orders, want 1", len(received))
	}
}
