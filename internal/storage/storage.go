// Package storage provides pebble-backed durability for the Order Book and
// Collateral Vaults (spec.md §4.1, §4.2), so the on-chain tier can rebuild
// in-memory state after a restart. Order records are mirrored from the
// event bus (Subscribe) as orders are inserted, deleted and executed; vault
// records are written only by explicit SaveVault calls, and vault
// mutations are not mirrored from the bus.
//
// Grounded on the teacher's pkg/storage/pebble_store.go key-prefix +
// JSON-per-record pattern (SaveAccount/LoadAccount, SaveOrder/DeleteOrder,
// prefix iteration for LoadAllPositions), adapted from go-ethereum
// common.Address keys to this module's accountid.ID/hash.Hash keys.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/events"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
	"github.com/gsy-exchange/clearing-node/internal/vault"
)

// Store is a pebble-backed durability layer.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// key prefixes: o:<owner><hash> order+status record, v:<owner> vault record.
func orderKey(owner accountid.ID, h hash.Hash) []byte {
	k := append([]byte("o:"), owner[:]...)
	return append(k, h[:]...)
}

func orderPrefix(owner accountid.ID) []byte {
	return append([]byte("o:"), owner[:]...)
}

func vaultKey(owner accountid.ID) []byte {
	return append([]byte("v:"), owner[:]...)
}

func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff: no upper bound
}

// record is the on-disk encoding of one order plus its current status.
type record struct {
	Order  schema.Order
	Status schema.OrderStatus
}

// SaveOrder persists order and its current status under (owner, hash).
func (s *Store) SaveOrder(owner accountid.ID, order schema.Order, status schema.OrderStatus) error {
	data, err := json.Marshal(record{Order: order, Status: status})
	if err != nil {
		return fmt.Errorf("storage: marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(owner, order.Hash()), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save order: %w", err)
	}
	return nil
}

// DeleteOrder removes the persisted record for (owner, h). The Subscribe
// mirror calls it for every OrderDeleted event, whether a user deletion or
// an off-chain worker rollback, so a deleted order leaves no record;
// executions are recorded through SaveOrder instead.
func (s *Store) DeleteOrder(owner accountid.ID, h hash.Hash) error {
	if err := s.db.Delete(orderKey(owner, h), pebble.Sync); err != nil {
		return fmt.Errorf("storage: delete order: %w", err)
	}
	return nil
}

// LoadOrders returns every persisted order for owner, for warm-restart
// reconstruction of the Order Book.
func (s *Store) LoadOrders(owner accountid.ID) ([]record, error) {
	prefix := orderPrefix(owner)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("storage: iterate orders: %w", err)
	}
	defer iter.Close()

	var out []record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ownedRecord pairs a persisted order record with the owner parsed out of
// its storage key, for warm-restart reconstruction across every owner.
type ownedRecord struct {
	Owner accountid.ID
	record
}

// LoadAllOrders returns every persisted order across every owner, for
// reconstructing the Order Book after a restart.
func (s *Store) LoadAllOrders() ([]ownedRecord, error) {
	prefix := []byte("o:")
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("storage: iterate all orders: %w", err)
	}
	defer iter.Close()

	var out []ownedRecord
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) < 2+accountid.Size {
			continue
		}
		owner, err := accountid.FromBytes(key[2 : 2+accountid.Size])
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		out = append(out, ownedRecord{Owner: owner, record: rec})
	}
	return out, nil
}

// SaveVault persists v under its owner's key.
func (s *Store) SaveVault(v vault.Vault) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal vault: %w", err)
	}
	if err := s.db.Set(vaultKey(v.Owner), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save vault: %w", err)
	}
	return nil
}

// Subscribe wires the store to an event bus so every order insertion,
// deletion, and execution is persisted as it happens, giving the Order Book
// warm-restart durability (spec.md §4.1) without the caller threading a
// storage write through every mutation path. It should be called once,
// before the bus starts publishing.
func (s *Store) Subscribe(bus *events.Bus) {
	ch, _ := bus.Subscribe(256)
	go func() {
		for ev := range ch {
			s.onEvent(ev)
		}
	}()
}

func (s *Store) onEvent(ev events.Event) {
	switch ev.Kind {
	case events.NewOrderInserted, events.NewOrderInsertedByProxy:
		if ev.Order != nil {
			if err := s.SaveOrder(ev.Delegator, *ev.Order, schema.Open()); err != nil {
				return
			}
		}
	case events.OrderDeleted:
		_ = s.DeleteOrder(ev.Delegator, ev.OrderHash)
	case events.TradeCleared:
		if ev.Trade == nil {
			return
		}
		t := ev.Trade
		_ = s.SaveOrder(t.Buyer, schema.NewBidOrder(t.Bid), schema.Executed(t.Parameters))
		_ = s.SaveOrder(t.Seller, schema.NewOfferOrder(t.Offer), schema.Executed(t.Parameters))
		if t.ResidualBid != nil {
			_ = s.SaveOrder(t.Buyer, schema.NewBidOrder(*t.ResidualBid), schema.Open())
		}
		if t.ResidualOffer != nil {
			_ = s.SaveOrder(t.Seller, schema.NewOfferOrder(*t.ResidualOffer), schema.Open())
		}
	}
}

// LoadVault loads the vault for owner, if any.
func (s *Store) LoadVault(owner accountid.ID) (*vault.Vault, error) {
	data, closer, err := s.db.Get(vaultKey(owner))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get vault: %w", err)
	}
	defer closer.Close()

	var v vault.Vault
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("storage: unmarshal vault: %w", err)
	}
	return &v, nil
}

// LoadAllVaults returns every persisted vault, for reconstructing the
// Collateral Vaults manager after a restart.
func (s *Store) LoadAllVaults() ([]vault.Vault, error) {
	prefix := []byte("v:")
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("storage: iterate all vaults: %w", err)
	}
	defer iter.Close()

	var out []vault.Vault
	for iter.First(); iter.Valid(); iter.Next() {
		var v vault.Vault
		if err := json.Unmarshal(iter.Value(), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
