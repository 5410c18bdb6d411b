// Package orderbook implements the Order Book component (spec.md §4.1): the
// authoritative key-value store of order references and their status.
//
// Grounded on the teacher's pkg/app/core/orderbook/orderbook.go structure
// (heap+map), generalized from a price-time matching book (matching itself
// moved to internal/clearing) to a pure status registry, and on
// original_source/gsy-node/modules/orderbook-registry/src/lib.rs for the
// exact error taxonomy.
package orderbook

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/events"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/registry"
	"github.com/gsy-exchange/clearing-node/internal/schema"
	"github.com/gsy-exchange/clearing-node/internal/vault"
)

var (
	ErrOpenOrderNotFound                    = errors.New("orderbook: open order not found")
	ErrOrderAlreadyExecuted                  = errors.New("orderbook: order already executed")
	ErrOrderAlreadyDeleted                   = errors.New("orderbook: order already deleted")
	ErrOrderAlreadyInserted                  = errors.New("orderbook: order already inserted")
	ErrNotARegisteredMatchingEngineOperator  = registry.ErrNotARegisteredOperator
	ErrNotARegisteredUserAccount             = registry.ErrNotARegisteredUserAccount
	ErrNotARegisteredProxyAccount            = registry.ErrNotARegisteredProxy
	ErrUnableToCompleteTransfer              = errors.New("orderbook: unable to complete transfer")
)

// entry is the Order Book's internal record for a single OrderReference.
type entry struct {
	order  schema.Order
	status schema.OrderStatus
}

// OrderBook is the authoritative registry of order references and status
// (component A). I1-I3 are enforced here.
type OrderBook struct {
	mu       sync.Mutex
	byRef    map[schema.OrderReference]*entry
	registry *registry.Registry
	vaults   *vault.Manager
	bus      *events.Bus
	market   map[hash.Hash]bool // market_id -> is_open, default closed
}

// New creates an empty Order Book wired to the given registry, vault
// manager, and event bus.
func New(reg *registry.Registry, vaults *vault.Manager, bus *events.Bus) *OrderBook {
	return &OrderBook{
		byRef:    make(map[schema.OrderReference]*entry),
		registry: reg,
		vaults:   vaults,
		bus:      bus,
		market:   make(map[hash.Hash]bool),
	}
}

func ref(user accountid.ID, h hash.Hash) schema.OrderReference {
	return schema.OrderReference{UserID: user, Hash: h}
}

// Restore seeds a single order reference directly into the book at its
// persisted status, bypassing registration checks and event publication.
// Used only at startup, before InsertOrders/DeleteOrders/ClearOrdersBatch
// start accepting live traffic, to reconstruct in-memory state from
// internal/storage after a restart.
func (ob *OrderBook) Restore(owner accountid.ID, order schema.Order, status schema.OrderStatus) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.byRef[ref(owner, order.Hash())] = &entry{order: order, status: status}
}

// InsertOrders inserts each order hash as Open, owned by caller. caller must
// be a registered user. Per spec.md §4.1, each hash emits NewOrderInserted,
// and the batch ends with a single AllOrdersInserted.
func (ob *OrderBook) InsertOrders(caller accountid.ID, orders []schema.Order) error {
	if !ob.registry.IsRegisteredUser(caller) {
		return ErrNotARegisteredUserAccount
	}
	return ob.insertOrders(caller, caller, orders, false)
}

// InsertOrdersByProxy is InsertOrders submitted by proxy on behalf of
// delegator. proxy must be a registered proxy of delegator.
func (ob *OrderBook) InsertOrdersByProxy(proxy, delegator accountid.ID, orders []schema.Order) error {
	if !ob.registry.IsRegisteredProxy(delegator, proxy) {
		return ErrNotARegisteredProxyAccount
	}
	return ob.insertOrders(proxy, delegator, orders, true)
}

func (ob *OrderBook) insertOrders(caller, owner accountid.ID, orders []schema.Order, byProxy bool) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	// Validate the whole batch before mutating anything: duplicate insert
	// fails the extrinsic with no partial effect (spec.md §4.7).
	hashes := make([]hash.Hash, len(orders))
	for i, o := range orders {
		h := o.Hash()
		if _, exists := ob.byRef[ref(owner, h)]; exists {
			return fmt.Errorf("%w: %s", ErrOrderAlreadyInserted, h)
		}
		hashes[i] = h
	}

	for i, o := range orders {
		ob.byRef[ref(owner, hashes[i])] = &entry{order: o, status: schema.Open()}
		kind := events.NewOrderInserted
		if byProxy {
			kind = events.NewOrderInsertedByProxy
		}
		orderCopy := o
		ob.bus.Publish(events.Event{Kind: kind, Caller: caller, Delegator: owner, OrderHash: hashes[i], Order: &orderCopy})
	}
	ob.bus.Publish(events.Event{Kind: events.AllOrdersInserted, Caller: caller, Delegator: owner})
	return nil
}

// DeleteOrders transitions each hash from Open to Deleted. Rejects orders
// that are already Executed or already Deleted with distinct errors
// (spec.md §4.1).
func (ob *OrderBook) DeleteOrders(caller accountid.ID, hashes []hash.Hash) error {
	if !ob.registry.IsRegisteredUser(caller) {
		return ErrNotARegisteredUserAccount
	}
	return ob.deleteOrders(caller, caller, hashes)
}

// DeleteOrdersByProxy is DeleteOrders submitted by proxy on behalf of
// delegator.
func (ob *OrderBook) DeleteOrdersByProxy(proxy, delegator accountid.ID, hashes []hash.Hash) error {
	if !ob.registry.IsRegisteredProxy(delegator, proxy) {
		return ErrNotARegisteredProxyAccount
	}
	return ob.deleteOrders(proxy, delegator, hashes)
}

func (ob *OrderBook) deleteOrders(caller, owner accountid.ID, hashes []hash.Hash) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for _, h := range hashes {
		e, exists := ob.byRef[ref(owner, h)]
		if !exists {
			return fmt.Errorf("%w: %s", ErrOpenOrderNotFound, h)
		}
		switch e.status.Kind {
		case schema.StatusExecuted:
			return fmt.Errorf("%w: %s", ErrOrderAlreadyExecuted, h)
		case schema.StatusDeleted:
			return fmt.Errorf("%w: %s", ErrOrderAlreadyDeleted, h)
		}
	}

	for _, h := range hashes {
		ob.byRef[ref(owner, h)].status = schema.Deleted()
		ob.bus.Publish(events.Event{Kind: events.OrderDeleted, Caller: caller, Delegator: owner, OrderHash: h})
	}
	return nil
}

// UpdateMarketStatus upserts is_open for market_id. operator must be a
// registered matching-engine operator. Market-status transactions are
// idempotent: a no-op state comparison precedes the write (spec.md §4.7).
func (ob *OrderBook) UpdateMarketStatus(operator accountid.ID, marketID hash.Hash, isOpen bool) error {
	if !ob.registry.IsRegisteredOperator(operator) {
		return ErrNotARegisteredMatchingEngineOperator
	}
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if current, exists := ob.market[marketID]; exists && current == isOpen {
		return nil
	}
	ob.market[marketID] = isOpen
	ob.bus.Publish(events.Event{Kind: events.MarketStatusUpdated, Caller: operator, MarketID: marketID, IsOpen: isOpen})
	return nil
}

// IsMarketOpen reports the current open/closed flag for marketID (default
// closed, per spec.md §3).
func (ob *OrderBook) IsMarketOpen(marketID hash.Hash) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.market[marketID]
}

// Status returns the current status of the order referenced by (owner,h).
func (ob *OrderBook) Status(owner accountid.ID, h hash.Hash) (schema.OrderStatus, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	e, exists := ob.byRef[ref(owner, h)]
	if !exists {
		return schema.OrderStatus{}, ErrOpenOrderNotFound
	}
	return e.status, nil
}

// Order returns the order referenced by (owner,h).
func (ob *OrderBook) Order(owner accountid.ID, h hash.Hash) (schema.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	e, exists := ob.byRef[ref(owner, h)]
	if !exists {
		return schema.Order{}, ErrOpenOrderNotFound
	}
	return e.order, nil
}

// OpenOrders returns a snapshot of every order currently Open, for the
// clearing engine to consume.
func (ob *OrderBook) OpenOrders() []schema.Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	out := make([]schema.Order, 0, len(ob.byRef))
	for _, e := range ob.byRef {
		if e.status.Kind == schema.StatusOpen {
			out = append(out, e.order)
		}
	}
	return out
}

// ClearOrdersBatch transitions each match's bid and offer to
// Executed(params), transfers collateral (unless buyer == seller, per I4),
// and emits TradeCleared + OrderExecuted. operator must be a registered
// matching-engine operator. Collateral transfer failure reverts the whole
// call (spec.md §4.7: atomic).
func (ob *OrderBook) ClearOrdersBatch(operator accountid.ID, matches []schema.ProposedMatch, creationTime uint64) error {
	if !ob.registry.IsRegisteredOperator(operator) {
		return ErrNotARegisteredMatchingEngineOperator
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	// Validate presence and status up front so a mid-batch failure never
	// leaves a partially-executed batch (spec.md §4.7: atomic).
	bidRefs := make([]schema.OrderReference, len(matches))
	offerRefs := make([]schema.OrderReference, len(matches))
	for i, m := range matches {
		bidRefs[i] = ref(m.Bid.Buyer, m.BidHash)
		offerRefs[i] = ref(m.Offer.Seller, m.OfferHash)
		for _, r := range []schema.OrderReference{bidRefs[i], offerRefs[i]} {
			e, exists := ob.byRef[r]
			if !exists {
				return fmt.Errorf("%w: %s", ErrOpenOrderNotFound, r.Hash)
			}
			switch e.status.Kind {
			case schema.StatusExecuted:
				return fmt.Errorf("%w: %s", ErrOrderAlreadyExecuted, r.Hash)
			case schema.StatusDeleted:
				return fmt.Errorf("%w: %s", ErrOrderAlreadyDeleted, r.Hash)
			}
		}
	}

	// Move collateral for every match before any status changes; if a
	// transfer fails, undo the transfers already made and return.
	for i, m := range matches {
		if m.Bid.Buyer != m.Offer.Seller {
			amount := int64(m.SelectedEnergy * m.EnergyRate)
			if err := ob.vaults.Transfer(m.Bid.Buyer, m.Offer.Seller, amount); err != nil {
				for _, d := range matches[:i] {
					if d.Bid.Buyer != d.Offer.Seller {
						_ = ob.vaults.Transfer(d.Offer.Seller, d.Bid.Buyer, int64(d.SelectedEnergy*d.EnergyRate))
					}
				}
				return fmt.Errorf("%w: %v", ErrUnableToCompleteTransfer, err)
			}
		}
	}

	for i, m := range matches {
		params := m.Parameters()
		ob.byRef[bidRefs[i]].status = schema.Executed(params)
		ob.byRef[offerRefs[i]].status = schema.Executed(params)

		trade := m.ToTrade(creationTime)
		ob.bus.Publish(events.Event{Kind: events.TradeCleared, Caller: operator, TradeHash: params.TradeUUID, Trade: &trade})
		ob.bus.Publish(events.Event{Kind: events.OrderExecuted, Caller: operator, Trade: &trade})
	}
	return nil
}
