package schema

import "github.com/gsy-exchange/clearing-node/internal/hash"

// ProposedMatch is the clearing engine's output (spec.md §4.3): a candidate
// pairing of one bid and one offer, with the residual orders (if any) that
// must be re-inserted alongside it.
type ProposedMatch struct {
	Bid       Bid
	BidHash   hash.Hash
	Offer     Offer
	OfferHash hash.Hash

	MarketID       hash.Hash
	TimeSlot       uint64
	SelectedEnergy uint64
	EnergyRate     uint64
	TradeUUID      hash.Hash

	ResidualBid   *Bid
	ResidualOffer *Offer
}

// Parameters extracts the TradeParameters recorded against the matched
// orders' Executed status.
func (m ProposedMatch) Parameters() TradeParameters {
	return TradeParameters{
		SelectedEnergy: m.SelectedEnergy,
		EnergyRate:     m.EnergyRate,
		TradeUUID:      m.TradeUUID,
	}
}

// ToTrade builds the Trade record for a settled match.
func (m ProposedMatch) ToTrade(creationTime uint64) Trade {
	return Trade{
		Seller:        m.Offer.Seller,
		Buyer:         m.Bid.Buyer,
		MarketID:      m.MarketID,
		TimeSlot:      m.TimeSlot,
		TradeUUID:     m.TradeUUID,
		CreationTime:  creationTime,
		Offer:         m.Offer,
		OfferHash:     m.OfferHash,
		Bid:           m.Bid,
		BidHash:       m.BidHash,
		ResidualBid:   m.ResidualBid,
		ResidualOffer: m.ResidualOffer,
		Parameters:    m.Parameters(),
	}
}
