package clearing

import (
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

// runPayAsBid implements spec.md §4.3 "Pay-as-bid (per-pair matching)":
// each accepted pair trades at the bid's rate. O(B·O).
func runPayAsBid(in Input) []schema.ProposedMatch {
	bidRates := make([]uint64, len(in.Bids))
	for i, b := range in.Bids {
		bidRates[i] = b.BidComponent.EnergyRate
	}
	offerRates := make([]uint64, len(in.Offers))
	for i, o := range in.Offers {
		offerRates[i] = o.OfferComponent.EnergyRate
	}

	bidOrder := sortIndicesByRateDesc(bidRates)
	offerOrder := sortIndicesByRateDesc(offerRates)

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

	for _, oi := range offerOrder {
		offer := in.Offers[oi]
		offerKey := oHashes[oi]

		for _, bi := range bidOrder {
			bid := in.Bids[bi]
			bidKey := bHashes[bi]

			if offer.OfferComponent.AreaUUID == bid.BidComponent.AreaUUID {
				continue
			}
			if available[offerKey] == 0 || available[bidKey] == 0 {
				continue
			}
			if offer.OfferComponent.EnergyRate > bid.BidComponent.EnergyRate {
				continue
			}

			selected := min(available[offerKey], available[bidKey])
			if selected == 0 {
				continue
			}

			available[offerKey] -= selected
			available[bidKey] -= selected

			matches = append(matches, schema.ProposedMatch{
				Bid:            bid,
				BidHash:        bHashes[bi],
				Offer:          offer,
				OfferHash:      oHashes[oi],
				MarketID:       in.MarketID,
				TimeSlot:       offer.OfferComponent.TimeSlot,
				SelectedEnergy: selected,
				EnergyRate:     bid.BidComponent.EnergyRate,
				TradeUUID:      tradeUUID(bHashes[bi], oHashes[oi], selected, bid.BidComponent.EnergyRate),
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
