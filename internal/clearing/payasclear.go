package clearing

import (
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

// runPayAsClear implements spec.md §4.3 "Pay-as-clear (uniform clearing
// price)": build cumulative demand/supply curves over distinct rate steps,
// find the clearing point where they cross via the two-candidate-set rule,
// then settle every eligible bid/offer pair at that single uniform rate.
//
// Grounded on original_source/gsy-matching-engine/src/algorithms/pay_as_clear.rs
// (clearing_point_from_supply_demand_curve_web3 and
// create_bid_offer_matches_web3), the integer/web3 variant, which this
// module's fixed-point arithmetic matches exactly.
func runPayAsClear(in Input) []schema.ProposedMatch {
	if len(in.Bids) == 0 || len(in.Offers) == 0 {
		return nil
	}

	bidRates := make([]uint64, len(in.Bids))
	for i, b := range in.Bids {
		bidRates[i] = b.BidComponent.EnergyRate
	}
	offerRates := make([]uint64, len(in.Offers))
	for i, o := range in.Offers {
		offerRates[i] = o.OfferComponent.EnergyRate
	}

	bidOrder := sortIndicesByRateDesc(bidRates)    // demand curve walk order
	offerOrder := sortIndicesByRateAsc(offerRates) // supply curve walk order

	demand := demandCurve(in.Bids, bidOrder, bidRates)
	supply := supplyCurve(in.Offers, offerOrder, offerRates)

	clearRate, clearVolume, ok := clearingPoint(demand, supply)
	if !ok || clearVolume == 0 {
		return nil
	}

	bHashes := bidHashes(in.Bids)
	oHashes := offerHashes(in.Offers)

	available := make(map[hash.Hash]uint64)
	for i, b := range in.Bids {
		available[bHashes[i]] = b.BidComponent.Energy
	}
	for i, o := range in.Offers {
		available[oHashes[i]] = o.OfferComponent.Energy
	}

	var matches []schema.ProposedMatch
	remaining := clearVolume

	for _, oi := range offerOrder {
		if remaining == 0 {
			break
		}
		offer := in.Offers[oi]
		offerKey := oHashes[oi]

		if offerRates[oi] > clearRate {
			// offerOrder is rate-ascending: no later offer is eligible either.
			break
		}

		for _, bi := range bidOrder {
			if remaining == 0 {
				break
			}
			bid := in.Bids[bi]
			bidKey := bHashes[bi]

			if bidRates[bi] < clearRate {
				continue
			}
			if offer.OfferComponent.AreaUUID == bid.BidComponent.AreaUUID {
				continue
			}
			if available[offerKey] == 0 || available[bidKey] == 0 {
				continue
			}

			selected := min(min(available[offerKey], available[bidKey]), remaining)
			if selected == 0 {
				continue
			}

			available[offerKey] -= selected
			available[bidKey] -= selected
			remaining -= selected

			matches = append(matches, schema.ProposedMatch{
				Bid:            bid,
				BidHash:        bidKey,
				Offer:          offer,
				OfferHash:      offerKey,
				MarketID:       in.MarketID,
				TimeSlot:       offer.OfferComponent.TimeSlot,
				SelectedEnergy: selected,
				EnergyRate:     clearRate,
				TradeUUID:      tradeUUID(bidKey, offerKey, selected, clearRate),
				ResidualBid:    residualBid(bid, available[bidKey]),
				ResidualOffer:  residualOffer(offer, available[offerKey]),
			})

			if available[offerKey] == 0 {
				break
			}
		}
	}

	return matches
}

// ratePoint is one step of a cumulative demand or supply curve: the total
// energy available at rate or better, for a distinct rate value.
type ratePoint struct {
	rate   uint64
	energy uint64
}

// demandCurve builds the cumulative demand curve (spec.md §4.3 step 2):
// for each distinct bid rate, the total energy of every bid priced at that
// rate or higher. bidOrder must already be sorted rate-descending. The
// result is ascending by rate, matching the Rust ground truth's BTreeMap
// iteration order.
func demandCurve(bids []schema.Bid, bidOrderDesc []int, bidRates []uint64) []ratePoint {
	var points []ratePoint
	var running uint64
	for i, bi := range bidOrderDesc {
		running += bids[bi].BidComponent.Energy
		rate := bidRates[bi]
		if i == len(bidOrderDesc)-1 || bidRates[bidOrderDesc[i+1]] != rate {
			points = append(points, ratePoint{rate: rate, energy: running})
		}
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}

// supplyCurve builds the cumulative supply curve (spec.md §4.3 step 2): for
// each distinct offer rate, the total energy of every offer priced at that
// rate or lower. offerOrder must already be sorted rate-ascending, which
// makes the result ascending by rate with no further reordering needed.
func supplyCurve(offers []schema.Offer, offerOrderAsc []int, offerRates []uint64) []ratePoint {
	var points []ratePoint
	var running uint64
	for i, oi := range offerOrderAsc {
		running += offers[oi].OfferComponent.Energy
		rate := offerRates[oi]
		if i == len(offerOrderAsc)-1 || offerRates[offerOrderAsc[i+1]] != rate {
			points = append(points, ratePoint{rate: rate, energy: running})
		}
	}
	return points
}

// clearingPoint applies spec.md §4.3 step 3's two-candidate-set rule to the
// cumulative curves (both ascending by rate): candidate set 1 is every
// (bid, offer) rate pair where the offer covers the bid's cumulative demand
// at an acceptable rate; its first element (ascending bid rate, then
// ascending offer rate) is the clearing point. If set 1 is empty, candidate
// set 2 — pairs where the offer falls short of covering demand — is
// consulted instead, taking its last element. If neither is non-empty there
// is no clearing.
func clearingPoint(demand, supply []ratePoint) (rate, energy uint64, ok bool) {
	for _, b := range demand {
		for _, o := range supply {
			if o.rate <= b.rate && o.energy >= b.energy {
				return b.rate, b.energy, true
			}
		}
	}
	for _, b := range demand {
		for _, o := range supply {
			if o.rate <= b.rate && o.energy < b.energy {
				rate, energy, ok = b.rate, o.energy, true
			}
		}
	}
	return rate, energy, ok
}
