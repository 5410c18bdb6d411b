// Package schema holds the canonical data model of spec.md §3: order
// components, bids/offers, the tagged Order variant, status transitions,
// and trades. Canonical byte encoding (for hashing) lives alongside each
// type, mirroring the teacher's pattern of keeping wire conversion next to
// the payload it converts (pkg/app/core/transaction/types.go).
package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
)

// ScaleFactor is the fixed-point scaling factor for energy and rate values
// (spec.md §3): integer units = real units × 10 000.
const ScaleFactor = 10_000

// SlotDuration is the wall-clock width of a market delivery slot, in
// seconds (spec.md GLOSSARY: "15-minute delivery slots").
const SlotDuration = 15 * 60

// OrderComponent is the shared payload of a Bid or an Offer (spec.md §3).
type OrderComponent struct {
	AreaUUID     hash.Hash
	MarketID     hash.Hash
	TimeSlot     uint64 // seconds since epoch, aligned to slot
	CreationTime uint64
	Energy       uint64 // integer units = kWh × ScaleFactor
	EnergyRate   uint64 // integer units = price × ScaleFactor
}

// canonicalBytes is the deterministic byte encoding hashed to produce an
// order's identity. Field order is fixed and must never change without a
// corresponding change to every persisted hash.
func (c OrderComponent) canonicalBytes() []byte {
	buf := make([]byte, 0, 32+32+8*4)
	buf = append(buf, c.AreaUUID[:]...)
	buf = append(buf, c.MarketID[:]...)
	buf = appendUint64(buf, c.TimeSlot)
	buf = appendUint64(buf, c.CreationTime)
	buf = appendUint64(buf, c.Energy)
	buf = appendUint64(buf, c.EnergyRate)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// Bid is a buy-side order (spec.md §3).
type Bid struct {
	Buyer        accountid.ID
	Nonce        uint32
	BidComponent OrderComponent
}

func (b Bid) canonicalBytes() []byte {
	buf := make([]byte, 0, accountid.Size+4+64)
	buf = append(buf, b.Buyer[:]...)
	buf = appendUint32(buf, b.Nonce)
	buf = append(buf, b.BidComponent.canonicalBytes()...)
	return buf
}

// Offer is a sell-side order (spec.md §3).
type Offer struct {
	Seller         accountid.ID
	Nonce          uint32
	OfferComponent OrderComponent
}

func (o Offer) canonicalBytes() []byte {
	buf := make([]byte, 0, accountid.Size+4+64)
	buf = append(buf, o.Seller[:]...)
	buf = appendUint32(buf, o.Nonce)
	buf = append(buf, o.OfferComponent.canonicalBytes()...)
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// OrderKind tags which variant an Order carries.
type OrderKind uint8

const (
	KindBid OrderKind = iota
	KindOffer
)

func (k OrderKind) String() string {
	if k == KindBid {
		return "bid"
	}
	return "offer"
}

// Order is the tagged Bid | Offer sum type of spec.md §3. Its identity is
// the hash of its canonical encoding.
type Order struct {
	Kind  OrderKind
	Bid   *Bid   // set iff Kind == KindBid
	Offer *Offer // set iff Kind == KindOffer
}

// NewBidOrder wraps a Bid as an Order.
func NewBidOrder(b Bid) Order { return Order{Kind: KindBid, Bid: &b} }

// NewOfferOrder wraps an Offer as an Order.
func NewOfferOrder(o Offer) Order { return Order{Kind: KindOffer, Offer: &o} }

// Hash computes the order's identity hash over its canonical encoding.
func (o Order) Hash() hash.Hash {
	switch o.Kind {
	case KindBid:
		return hash.Sum([]byte("bid"), o.Bid.canonicalBytes())
	case KindOffer:
		return hash.Sum([]byte("offer"), o.Offer.canonicalBytes())
	default:
		panic(fmt.Sprintf("schema: unknown order kind %d", o.Kind))
	}
}

// Owner returns the buyer (for a Bid) or seller (for an Offer).
func (o Order) Owner() accountid.ID {
	if o.Kind == KindBid {
		return o.Bid.Buyer
	}
	return o.Offer.Seller
}

// Component returns the shared OrderComponent regardless of variant.
func (o Order) Component() OrderComponent {
	if o.Kind == KindBid {
		return o.Bid.BidComponent
	}
	return o.Offer.OfferComponent
}

// Nonce returns the variant's nonce.
func (o Order) Nonce() uint32 {
	if o.Kind == KindBid {
		return o.Bid.Nonce
	}
	return o.Offer.Nonce
}

// WithResidual returns a copy of o whose component energy is set to
// remainingEnergy and whose nonce is incremented by one (I6). All other fields are
// unchanged.
func (o Order) WithResidual(remainingEnergy uint64) Order {
	switch o.Kind {
	case KindBid:
		b := *o.Bid
		b.Nonce++
		b.BidComponent.Energy = remainingEnergy
		return NewBidOrder(b)
	default:
		of := *o.Offer
		of.Nonce++
		of.OfferComponent.Energy = remainingEnergy
		return NewOfferOrder(of)
	}
}

// TradeParameters records the outcome of a settled or proposed match
// (spec.md §3).
type TradeParameters struct {
	SelectedEnergy uint64
	EnergyRate     uint64
	TradeUUID      hash.Hash
}

// OrderStatusKind is the lifecycle state of an order (spec.md §3).
type OrderStatusKind uint8

const (
	StatusOpen OrderStatusKind = iota
	StatusExecuted
	StatusDeleted
	// StatusExpired is never assigned on-chain (spec.md §9, Open Question
	// b), and internal/persistence does not assign it either: no code path
	// in this module sets it.
	StatusExpired
)

func (k OrderStatusKind) String() string {
	switch k {
	case StatusOpen:
		return "open"
	case StatusExecuted:
		return "executed"
	case StatusDeleted:
		return "deleted"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// OrderStatus is the order book's per-order state (spec.md §3): Open,
// Executed(params), or Deleted.
type OrderStatus struct {
	Kind   OrderStatusKind
	Params TradeParameters // valid iff Kind == StatusExecuted
}

// Open constructs an Open status.
func Open() OrderStatus { return OrderStatus{Kind: StatusOpen} }

// Executed constructs an Executed(params) status.
func Executed(p TradeParameters) OrderStatus {
	return OrderStatus{Kind: StatusExecuted, Params: p}
}

// Deleted constructs a Deleted status.
func Deleted() OrderStatus { return OrderStatus{Kind: StatusDeleted} }

// OrderReference is the unique key into the Order Book (spec.md §3).
type OrderReference struct {
	UserID accountid.ID
	Hash   hash.Hash
}

// Trade is a settled or proposed match between a bid and an offer
// (spec.md §3).
type Trade struct {
	Seller        accountid.ID
	Buyer         accountid.ID
	MarketID      hash.Hash
	TimeSlot      uint64
	TradeUUID     hash.Hash
	CreationTime  uint64
	Offer         Offer
	OfferHash     hash.Hash
	Bid           Bid
	BidHash       hash.Hash
	ResidualBid   *Bid
	ResidualOffer *Offer
	Parameters    TradeParameters
}
