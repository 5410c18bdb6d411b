// Package settlement implements the Trade Settlement component (spec.md
// §4.4): it validates a batch of proposed matches from the clearing engine
// against the live order book and the residual-consistency invariant (I6),
// then drives collateral transfer and status transitions through the order
// book.
//
// Grounded on the teacher's validate-then-apply shape in
// pkg/app/perp/apply_signed_tx.go (collect every error for the batch before
// mutating state) and on original_source's trades-settlement module for the
// exact validation predicates and failure-atomicity rule.
package settlement

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/orderbook"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

var (
	ErrNoValidMatchToSettle                  = errors.New("settlement: no valid match to settle")
	ErrOffersEnergyLessThanSelected          = errors.New("settlement: offer energy less than selected energy")
	ErrBidEnergyLessThanSelected             = errors.New("settlement: bid energy less than selected energy")
	ErrOfferEnergyRateGreaterThanBidEnergyRate = errors.New("settlement: offer energy rate greater than bid energy rate")
	ErrInvalidResidual                       = errors.New("settlement: invalid residual order")
	ErrInvalidTimeSlotAlignment              = errors.New("settlement: invalid time-slot alignment")
)

// Engine wires the clearing output into the order book.
type Engine struct {
	book *orderbook.OrderBook
}

// New creates a settlement engine bound to book.
func New(book *orderbook.OrderBook) *Engine {
	return &Engine{book: book}
}

// DeleteOrders delegates to the bound order book — Engine satisfies the
// worker's ChainClient interface so one wired object serves both batch
// settlement and the off-chain worker's rollback/matching needs.
func (e *Engine) DeleteOrders(caller accountid.ID, hashes []hash.Hash) error {
	return e.book.DeleteOrders(caller, hashes)
}

// OpenOrders delegates to the bound order book.
func (e *Engine) OpenOrders() []schema.Order {
	return e.book.OpenOrders()
}

// validate checks one match against the per-match predicates of spec.md
// §4.4. It returns a single wrapped error describing every predicate that
// failed, so a caller accumulating per-match errors gets a complete report.
func validate(m schema.ProposedMatch) error {
	var err error

	if m.Offer.OfferComponent.Energy < m.SelectedEnergy {
		err = multierr.Append(err, fmt.Errorf("%w: offer=%d selected=%d", ErrOffersEnergyLessThanSelected, m.Offer.OfferComponent.Energy, m.SelectedEnergy))
	}
	if m.Bid.BidComponent.Energy < m.SelectedEnergy {
		err = multierr.Append(err, fmt.Errorf("%w: bid=%d selected=%d", ErrBidEnergyLessThanSelected, m.Bid.BidComponent.Energy, m.SelectedEnergy))
	}
	if m.Bid.BidComponent.EnergyRate < m.Offer.OfferComponent.EnergyRate {
		err = multierr.Append(err, fmt.Errorf("%w: bid_rate=%d offer_rate=%d", ErrOfferEnergyRateGreaterThanBidEnergyRate, m.Bid.BidComponent.EnergyRate, m.Offer.OfferComponent.EnergyRate))
	}

	bidSlot := m.Bid.BidComponent.TimeSlot / schema.SlotDuration
	offerSlot := m.Offer.OfferComponent.TimeSlot / schema.SlotDuration
	matchSlot := m.TimeSlot / schema.SlotDuration
	if bidSlot != offerSlot || offerSlot != matchSlot {
		err = multierr.Append(err, fmt.Errorf("%w: bid=%d offer=%d match=%d", ErrInvalidTimeSlotAlignment, bidSlot, offerSlot, matchSlot))
	}

	if m.ResidualBid != nil && !residualMatchesBid(m.Bid, m.SelectedEnergy, *m.ResidualBid) {
		err = multierr.Append(err, fmt.Errorf("%w: residual bid", ErrInvalidResidual))
	}
	if m.ResidualOffer != nil && !residualMatchesOffer(m.Offer, m.SelectedEnergy, *m.ResidualOffer) {
		err = multierr.Append(err, fmt.Errorf("%w: residual offer", ErrInvalidResidual))
	}

	return err
}

// residualMatchesBid checks I6 for a bid residual: nonce+1, energy=original-selected, everything else equal.
func residualMatchesBid(parent schema.Bid, selected uint64, residual schema.Bid) bool {
	want := parent
	want.Nonce = parent.Nonce + 1
	want.BidComponent.Energy = parent.BidComponent.Energy - selected
	return want == residual
}

func residualMatchesOffer(parent schema.Offer, selected uint64, residual schema.Offer) bool {
	want := parent
	want.Nonce = parent.Nonce + 1
	want.OfferComponent.Energy = parent.OfferComponent.Energy - selected
	return want == residual
}

// PendingResidual is a residual order awaiting re-insertion into both the
// order book and the off-chain worker's pending map (spec.md §4.4 step 1).
type PendingResidual struct {
	Owner accountid.ID
	Order schema.Order
}

// Settle validates every match in batch, re-inserts residuals ahead of
// clearing their parents (so a later match in the same batch may reference
// a freshly-inserted residual, per spec.md §5), and clears the valid
// matches as one order-book batch. Invalid matches are dropped from the
// batch; if none remain, Settle fails with ErrNoValidMatchToSettle. It
// returns the residuals that must also be queued for the off-chain worker.
func (e *Engine) Settle(operator accountid.ID, batch []schema.ProposedMatch, creationTime uint64) ([]PendingResidual, error) {
	var (
		valid      []schema.ProposedMatch
		validation error
		residuals  []PendingResidual
	)

	for _, m := range batch {
		if err := validate(m); err != nil {
			validation = multierr.Append(validation, err)
			continue
		}
		valid = append(valid, m)
	}

	if len(valid) == 0 {
		if validation != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoValidMatchToSettle, validation)
		}
		return nil, ErrNoValidMatchToSettle
	}

	for _, m := range valid {
		if m.ResidualBid != nil {
			order := schema.NewBidOrder(*m.ResidualBid)
			if err := e.book.InsertOrders(m.Bid.Buyer, []schema.Order{order}); err != nil {
				return nil, fmt.Errorf("settlement: inserting residual bid: %w", err)
			}
			residuals = append(residuals, PendingResidual{Owner: m.Bid.Buyer, Order: order})
		}
		if m.ResidualOffer != nil {
			order := schema.NewOfferOrder(*m.ResidualOffer)
			if err := e.book.InsertOrders(m.Offer.Seller, []schema.Order{order}); err != nil {
				return nil, fmt.Errorf("settlement: inserting residual offer: %w", err)
			}
			residuals = append(residuals, PendingResidual{Owner: m.Offer.Seller, Order: order})
		}
	}

	if err := e.book.ClearOrdersBatch(operator, valid, creationTime); err != nil {
		return nil, fmt.Errorf("settlement: clearing batch: %w", err)
	}

	return residuals, nil
}
