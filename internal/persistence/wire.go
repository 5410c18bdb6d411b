// Package persistence implements the persistence-service REST contract
// (spec.md §6) the off-chain worker posts orders and trades to, and that
// serves measurement/forecast/market-topology queries back.
//
// Grounded on the teacher's pkg/api/server.go (gorilla/mux router, rs/cors
// middleware, JSON handlers) and pkg/api/types.go's wire-DTO pattern;
// decimal conversion uses shopspring/decimal (present in
// 0xtitan6-polymarket-mm and web3guy0-polybot) for the off-chain f64 <->
// scaled-integer energy/rate conversion spec.md §6 specifies.
package persistence

import (
	"github.com/shopspring/decimal"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

var scale = decimal.NewFromInt(schema.ScaleFactor)

// WireOrderComponent is the off-chain encoding of schema.OrderComponent:
// energy/rate as decimal kWh/price instead of the canonical scaled
// integers (spec.md §6 "Order schema on the wire").
type WireOrderComponent struct {
	AreaUUID     string          `json:"area_uuid"`
	MarketID     string          `json:"market_id"`
	TimeSlot     uint64          `json:"time_slot"`
	CreationTime uint64          `json:"creation_time"`
	Energy       decimal.Decimal `json:"energy"`
	EnergyRate   decimal.Decimal `json:"energy_rate"`
}

func toWireComponent(c schema.OrderComponent) WireOrderComponent {
	return WireOrderComponent{
		AreaUUID:     c.AreaUUID.String(),
		MarketID:     c.MarketID.String(),
		TimeSlot:     c.TimeSlot,
		CreationTime: c.CreationTime,
		Energy:       decimal.NewFromInt(int64(c.Energy)).Div(scale),
		EnergyRate:   decimal.NewFromInt(int64(c.EnergyRate)).Div(scale),
	}
}

func (w WireOrderComponent) toCanonical() (schema.OrderComponent, error) {
	areaUUID, err := hash.FromHex(w.AreaUUID)
	if err != nil {
		return schema.OrderComponent{}, err
	}
	marketID, err := hash.FromHex(w.MarketID)
	if err != nil {
		return schema.OrderComponent{}, err
	}
	return schema.OrderComponent{
		AreaUUID:     areaUUID,
		MarketID:     marketID,
		TimeSlot:     w.TimeSlot,
		CreationTime: w.CreationTime,
		Energy:       w.Energy.Mul(scale).Floor().BigInt().Uint64(),
		EnergyRate:   w.EnergyRate.Mul(scale).Floor().BigInt().Uint64(),
	}, nil
}

// WireOrder is a tagged bid/offer on the wire.
type WireOrder struct {
	Kind      string              `json:"kind"` // "bid" | "offer"
	Owner     string              `json:"owner"`
	Nonce     uint32              `json:"nonce"`
	Component WireOrderComponent  `json:"component"`
	Hash      string              `json:"hash"`
}

func toWireOrder(o schema.Order) WireOrder {
	return WireOrder{
		Kind:      o.Kind.String(),
		Owner:     o.Owner().String(),
		Nonce:     o.Nonce(),
		Component: toWireComponent(o.Component()),
		Hash:      o.Hash().String(),
	}
}

func (w WireOrder) toCanonical() (schema.Order, error) {
	owner, err := accountid.FromHex(w.Owner)
	if err != nil {
		return schema.Order{}, err
	}
	component, err := w.Component.toCanonical()
	if err != nil {
		return schema.Order{}, err
	}
	if w.Kind == "bid" {
		return schema.NewBidOrder(schema.Bid{Buyer: owner, Nonce: w.Nonce, BidComponent: component}), nil
	}
	return schema.NewOfferOrder(schema.Offer{Seller: owner, Nonce: w.Nonce, OfferComponent: component}), nil
}

// WireTrade is the off-chain encoding of schema.Trade.
type WireTrade struct {
	Seller       string    `json:"seller"`
	Buyer        string    `json:"buyer"`
	MarketID     string    `json:"market_id"`
	TimeSlot     uint64    `json:"time_slot"`
	TradeUUID    string    `json:"trade_uuid"`
	CreationTime uint64    `json:"creation_time"`
	Offer        WireOrder `json:"offer"`
	OfferHash    string    `json:"offer_hash"`
	Bid          WireOrder `json:"bid"`
	BidHash      string    `json:"bid_hash"`
}

func toWireTrade(t schema.Trade) WireTrade {
	return WireTrade{
		Seller:       t.Seller.String(),
		Buyer:        t.Buyer.String(),
		MarketID:     t.MarketID.String(),
		TimeSlot:     t.TimeSlot,
		TradeUUID:    t.TradeUUID.String(),
		CreationTime: t.CreationTime,
		Offer:        toWireOrder(schema.NewOfferOrder(t.Offer)),
		OfferHash:    t.OfferHash.String(),
		Bid:          toWireOrder(schema.NewBidOrder(t.Bid)),
		BidHash:      t.BidHash.String(),
	}
}
