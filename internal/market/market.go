// Package market implements market identity and the open/close rule table
// (spec.md §4.5): deterministic market IDs and the static offset table the
// orchestrator ticks against.
//
// Grounded on the teacher's pkg/app/core/market.go (MarketType enum and
// Market struct) and pkg/app/core/market/registry.go (RWMutex-guarded
// registry shape), generalized from a single perpetual-futures market type
// to the spec's per-slot spot/flexibility/settlement rule table; MarketID
// hashing follows spec.md §9's BLAKE2-256 requirement via internal/hash.
package market

import (
	"github.com/gsy-exchange/clearing-node/internal/hash"
)

// Type is a market-type tag in the orchestrator's rule table (spec.md
// §4.5).
type Type string

const (
	Spot         Type = "spot"
	Flexibility  Type = "flexibility"
	Settlement   Type = "settlement"
)

// Rule is one row of the static open/close offset table, in minutes
// relative to a slot's start.
type Rule struct {
	Type        Type
	OpenOffset  int64 // minutes, may be negative (opens before slot start)
	CloseOffset int64 // minutes, may be negative
}

// DefaultRules is spec.md §4.5's static rule table.
var DefaultRules = []Rule{
	{Type: Spot, OpenOffset: -120, CloseOffset: -60},
	{Type: Flexibility, OpenOffset: -15, CloseOffset: 0},
	{Type: Settlement, OpenOffset: 30, CloseOffset: 60},
}

// ID computes the deterministic market identity for (marketType, slot):
// BLAKE2_256(market_type_bytes || slot.to_big_endian_u64()) (spec.md §9).
func ID(marketType Type, slot uint64) hash.Hash {
	return hash.SumUint64BE([]byte(marketType), slot)
}

// ShouldBeOpen evaluates the rule's should_be_open predicate for wall-clock
// time now against a slot starting at slotStart (both unix seconds).
func (r Rule) ShouldBeOpen(now, slotStart int64) bool {
	open := slotStart + r.OpenOffset*60
	close := slotStart + r.CloseOffset*60
	return now >= open && now < close
}

// MarketID is the deterministic identity for this rule's market at slot.
func (r Rule) MarketID(slot uint64) hash.Hash {
	return ID(r.Type, slot)
}
