// Package clearing implements the Clearing Engine component (spec.md §4.3):
// two pure, deterministic double-auction algorithms — pay-as-bid and
// pay-as-clear — that produce proposed matches from live bid/offer books
// with exact residual-order accounting.
//
// Grounded on spec.md §4.3's verbatim algorithm description and the
// teacher's orderbook.Place sorted-matching-loop idiom
// (pkg/app/core/orderbook/orderbook.go), translated from price-time FIFO
// matching into the residual-accounting shape the spec requires.
package clearing

import (
	"sort"

	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

// Algorithm selects which double-auction variant Run executes.
type Algorithm string

const (
	PayAsBid   Algorithm = "pay-as-bid"
	PayAsClear Algorithm = "pay-as-clear"
)

// Input is the live bid/offer book handed to the clearing engine for a
// single market/time-slot run.
type Input struct {
	Bids     []schema.Bid
	Offers   []schema.Offer
	MarketID hash.Hash
}

// tradeUUID derives a deterministic trade identifier from the matched
// orders and the quantity/price struck — keeping the whole engine pure, as
// spec.md §4.3 requires ("Pure, deterministic").
func tradeUUID(bidHash, offerHash hash.Hash, energy, rate uint64) hash.Hash {
	return hash.SumUint64BE(append(append([]byte{}, bidHash[:]...), offerHash[:]...), energy^rate)
}

// Run executes algo against in and returns the proposed matches.
func Run(algo Algorithm, in Input) []schema.ProposedMatch {
	switch algo {
	case PayAsClear:
		return runPayAsClear(in)
	default:
		return runPayAsBid(in)
	}
}

// bidHashes/offerHashes compute each order's identity hash once, preserving
// input (insertion) order for the stable-sort tie-break spec.md §4.3
// requires ("secondary key is insertion order").
func bidHashes(bids []schema.Bid) []hash.Hash {
	out := make([]hash.Hash, len(bids))
	for i, b := range bids {
		out[i] = schema.NewBidOrder(b).Hash()
	}
	return out
}

func offerHashes(offers []schema.Offer) []hash.Hash {
	out := make([]hash.Hash, len(offers))
	for i, o := range offers {
		out[i] = schema.NewOfferOrder(o).Hash()
	}
	return out
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// residualBid/residualOffer build the I6 residual, or nil if fully filled.
func residualBid(b schema.Bid, remaining uint64) *schema.Bid {
	if remaining == 0 {
		return nil
	}
	r := b
	r.Nonce++
	r.BidComponent.Energy = remaining
	return &r
}

func residualOffer(o schema.Offer, remaining uint64) *schema.Offer {
	if remaining == 0 {
		return nil
	}
	r := o
	r.Nonce++
	r.OfferComponent.Energy = remaining
	return &r
}

// sortIndicesByRateDesc returns indices into rates sorted by descending
// rate, stable (ties broken by original/insertion order).
func sortIndicesByRateDesc(rates []uint64) []int {
	idx := make([]int, len(rates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return rates[idx[i]] > rates[idx[j]] })
	return idx
}

func sortIndicesByRateAsc(rates []uint64) []int {
	idx := make([]int, len(rates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return rates[idx[i]] < rates[idx[j]] })
	return idx
}
