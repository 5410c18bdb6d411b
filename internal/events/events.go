// Package events is the chain→off-chain event bus (spec.md §6). It
// generalizes the teacher's callback-broadcast idiom (engine.OnBlockCommit,
// app.OnTrade in cmd/node/main.go) into a typed, multi-subscriber
// channel-fanout bus so the off-chain worker and the storage mirror
// (internal/storage) can each listen independently.
package events

import (
	"sync"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

// Kind identifies an event type from spec.md §6.
type Kind string

const (
	NewOrderInserted               Kind = "NewOrderInserted"
	NewOrderInsertedByProxy        Kind = "NewOrderInsertedByProxy"
	AllOrdersInserted              Kind = "AllOrdersInserted"
	OrderDeleted                   Kind = "OrderDeleted"
	OrderExecuted                  Kind = "OrderExecuted"
	TradeCleared                   Kind = "TradeCleared"
	MarketStatusUpdated            Kind = "MarketStatusUpdated"
	CollateralDeposited            Kind = "CollateralDeposited"
	CollateralWithdrawn            Kind = "CollateralWithdrawn"
	VaultCreated                   Kind = "VaultCreated"
	VaultRestarted                 Kind = "VaultRestarted"
	VaultShutdown                  Kind = "VaultShutdown"
	ProxyAccountRegistered         Kind = "ProxyAccountRegistered"
	ProxyAccountUnregistered       Kind = "ProxyAccountUnregistered"
	UserRegistered                 Kind = "UserRegistered"
	MatchingEngineOperatorRegistered Kind = "MatchingEngineOperatorRegistered"
)

// Event is a single chain event. Payload fields not relevant to Kind are
// left zero.
type Event struct {
	Kind       Kind
	Caller     accountid.ID
	Delegator  accountid.ID
	OrderHash  hash.Hash
	Order      *schema.Order
	MarketID   hash.Hash
	IsOpen     bool
	Trade      *schema.Trade
	TradeHash  hash.Hash
}

// Bus fans each published event out to every subscriber. Subscribers get a
// buffered channel; a slow subscriber drops events rather than blocking the
// publisher, matching the on-chain tier's requirement (spec.md §5) that
// state mutation never suspends on a subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]chan Event)}
}

// Subscribe registers a new listener with the given channel buffer size and
// returns the channel plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subscribers[id] = ch
	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Publish fans ev out to all current subscribers, non-blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
