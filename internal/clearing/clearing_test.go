package clearing

import (
	"testing"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

func area(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

func account(b byte) accountid.ID {
	var id accountid.ID
	id[0] = b
	return id
}

func bid(area hash.Hash, buyer accountid.ID, energy, rate uint64) schema.Bid {
	return schema.Bid{
		Buyer: buyer,
		Nonce: 1,
		BidComponent: schema.OrderComponent{
			AreaUUID:     area,
			TimeSlot:     900,
			CreationTime: 1,
			Energy:       energy,
			EnergyRate:   rate,
		},
	}
}

func offer(area hash.Hash, seller accountid.ID, energy, rate uint64) schema.Offer {
	return schema.Offer{
		Seller: seller,
		Nonce:  1,
		OfferComponent: schema.OrderComponent{
			AreaUUID:     area,
			TimeSlot:     900,
			CreationTime: 1,
			Energy:       energy,
			EnergyRate:   rate,
		},
	}
}

func TestPayAsBidExactCross(t *testing.T) {
	b := bid(area(1), account(1), 1000, 30)
	o := offer(area(2), account(2), 1000, 20)

	matches := Run(PayAsBid, Input{Bids: []schema.Bid{b}, Offers: []schema.Offer{o}})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.SelectedEnergy != 1000 {
		t.Errorf("selected energy = %d, want 1000", m.SelectedEnergy)
	}
	if m.EnergyRate != 30 {
		t.Errorf("pay-as-bid rate = %d, want bid rate 30", m.EnergyRate)
	}
	if m.ResidualBid != nil || m.ResidualOffer != nil {
		t.Errorf("expected no residuals on an exact cross")
	}
}

func TestPayAsBidPartialFillLeavesResidualOffer(t *testing.T) {
	b := bid(area(1), account(1), 500, 30)
	o := offer(area(2), account(2), 1000, 20)

	matches := Run(PayAsBid, Input{Bids: []schema.Bid{b}, Offers: []schema.Offer{o}})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.SelectedEnergy != 500 {
		t.Fatalf("selected energy = %d, want 500", m.SelectedEnergy)
	}
	if m.ResidualBid != nil {
		t.Errorf("bid fully filled, expected no residual bid")
	}
	if m.ResidualOffer == nil {
		t.Fatalf("expected a residual offer")
	}
	if m.ResidualOffer.OfferComponent.Energy != 500 {
		t.Errorf("residual offer energy = %d, want 500", m.ResidualOffer.OfferComponent.Energy)
	}
	if m.ResidualOffer.Nonce != o.Nonce+1 {
		t.Errorf("residual offer nonce = %d, want %d", m.ResidualOffer.Nonce, o.Nonce+1)
	}
}

func TestPayAsBidPartialFillLeavesResidualBid(t *testing.T) {
	b := bid(area(1), account(1), 1000, 30)
	o := offer(area(2), account(2), 400, 20)

	matches := Run(PayAsBid, Input{Bids: []schema.Bid{b}, Offers: []schema.Offer{o}})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.ResidualOffer != nil {
		t.Errorf("offer fully filled, expected no residual offer")
	}
	if m.ResidualBid == nil {
		t.Fatalf("expected a residual bid")
	}
	if m.ResidualBid.BidComponent.Energy != 600 {
		t.Errorf("residual bid energy = %d, want 600", m.ResidualBid.BidComponent.Energy)
	}
}

func TestPayAsBidSkipsSameArea(t *testing.T) {
	a := area(7)
	b := bid(a, account(1), 1000, 30)
	o := offer(a, account(2), 1000, 20)

	matches := Run(PayAsBid, Input{Bids: []schema.Bid{b}, Offers: []schema.Offer{o}})
	if len(matches) != 0 {
		t.Fatalf("same-area bid/offer must not match, got %d matches", len(matches))
	}
}

func TestPayAsBidNoCrossWhenOfferAboveBid(t *testing.T) {
	b := bid(area(1), account(1), 1000, 10)
	o := offer(area(2), account(2), 1000, 20)

	matches := Run(PayAsBid, Input{Bids: []schema.Bid{b}, Offers: []schema.Offer{o}})
	if len(matches) != 0 {
		t.Fatalf("offer rate above bid rate must not cross, got %d matches", len(matches))
	}
}

func TestPayAsClearUniformPrice(t *testing.T) {
	bids := []schema.Bid{
		bid(area(1), account(1), 500, 40),
		bid(area(2), account(2), 500, 30),
	}
	offers := []schema.Offer{
		offer(area(3), account(3), 500, 10),
		offer(area(4), account(4), 500, 20),
	}

	matches := Run(PayAsClear, Input{Bids: bids, Offers: offers})
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}

	// Cumulative demand at rate>=30 is 1000 (both bids); cumulative supply
	// at rate<=30 is also 1000 (both offers), and 1000 >= 1000, so candidate
	// set 1 clears at (rate=30, energy=1000) — the lower of the two bid
	// rates, not the lower offer rate.
	const wantRate = 30
	for _, m := range matches {
		if m.EnergyRate != wantRate {
			t.Errorf("pay-as-clear rate = %d, want uniform rate %d", m.EnergyRate, wantRate)
		}
	}

	var totalSelected uint64
	for _, m := range matches {
		totalSelected += m.SelectedEnergy
	}
	if totalSelected != 1000 {
		t.Errorf("total cleared energy = %d, want 1000 (both bids and both offers fully cross)", totalSelected)
	}
}

// TestPayAsClearAsymmetricCurves is spec.md §8's worked clearing-point
// example: Bids [(20@10),(30@8)], Offers [(15@5),(25@7)]. Cumulative demand
// at rate>=10 is 20; cumulative supply at rate<=10 is 40 (both offers), and
// 40 >= 20, so candidate set 1 clears at (rate=10, energy=20) — not at the
// total crossing volume of 40 a naive sweep might report.
func TestPayAsClearAsymmetricCurves(t *testing.T) {
	bids := []schema.Bid{
		bid(area(1), account(1), 20, 10),
		bid(area(2), account(2), 30, 8),
	}
	offers := []schema.Offer{
		offer(area(3), account(3), 15, 5),
		offer(area(4), account(4), 25, 7),
	}

	matches := Run(PayAsClear, Input{Bids: bids, Offers: offers})
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}

	for _, m := range matches {
		if m.EnergyRate != 10 {
			t.Errorf("clearing rate = %d, want 10", m.EnergyRate)
		}
		if m.Bid.BidComponent.EnergyRate != 10 {
			t.Errorf("matched bid rate = %d, want the 20@10 bid", m.Bid.BidComponent.EnergyRate)
		}
	}

	if got := matches[0].SelectedEnergy; got != 15 {
		t.Errorf("first match selected energy = %d, want 15 (fills the 15@5 offer)", got)
	}
	if got := matches[0].Offer.OfferComponent.EnergyRate; got != 5 {
		t.Errorf("first match offer rate = %d, want 5", got)
	}
	if got := matches[1].SelectedEnergy; got != 5 {
		t.Errorf("second match selected energy = %d, want 5 (remainder of the bid against the 25@7 offer)", got)
	}
	if got := matches[1].Offer.OfferComponent.EnergyRate; got != 7 {
		t.Errorf("second match offer rate = %d, want 7", got)
	}

	var total uint64
	for _, m := range matches {
		total += m.SelectedEnergy
	}
	if total != 20 {
		t.Errorf("total cleared energy = %d, want 20", total)
	}
}

func TestPayAsClearNoOverlapNoMatch(t *testing.T) {
	bids := []schema.Bid{bid(area(1), account(1), 500, 10)}
	offers := []schema.Offer{offer(area(2), account(2), 500, 20)}

	matches := Run(PayAsClear, Input{Bids: bids, Offers: offers})
	if len(matches) != 0 {
		t.Fatalf("bid rate below offer rate must not clear, got %d matches", len(matches))
	}
}

func TestPayAsClearEmptyInput(t *testing.T) {
	if m := Run(PayAsClear, Input{}); m != nil {
		t.Fatalf("empty input must produce no matches, got %d", len(m))
	}
	if m := Run(PayAsBid, Input{}); m != nil {
		t.Fatalf("empty input must produce no matches, got %d", len(m))
	}
}

func TestTradeUUIDDeterministic(t *testing.T) {
	h1 := hash.Sum([]byte("a"))
	h2 := hash.Sum([]byte("b"))
	u1 := tradeUUID(h1, h2, 100, 20)
	u2 := tradeUUID(h1, h2, 100, 20)
	if u1 != u2 {
		t.Fatal("tradeUUID must be deterministic for identical inputs")
	}
	u3 := tradeUUID(h1, h2, 101, 20)
	if u1 == u3 {
		t.Fatal("tradeUUID must differ when energy differs")
	}
}
