package persistence

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
	"github.com/gsy-exchange/clearing-node/internal/schema"
)

func TestWireOrderRoundTrip(t *testing.T) {
	var buyer accountid.ID
	buyer[0] = 7
	var areaUUID, marketID hash.Hash
	areaUUID[0], marketID[0] = 1, 2

	original := schema.NewBidOrder(schema.Bid{
		Buyer: buyer,
		Nonce: 3,
		BidComponent: schema.OrderComponent{
			AreaUUID: areaUUID, MarketID: marketID,
			TimeSlot: 900, CreationTime: 1,
			Energy: 12_3400, EnergyRate: 5_0000,
		},
	})

	wire := toWireOrder(original)
	if wire.Component.Energy.String() != "12.34" {
		t.Errorf("wire energy = %s, want 12.34", wire.Component.Energy.String())
	}
	if wire.Component.EnergyRate.String() != "5" {
		t.Errorf("wire rate = %s, want 5", wire.Component.EnergyRate.String())
	}

	back, err := wire.toCanonical()
	if err != nil {
		t.Fatalf("toCanonical: %v", err)
	}
	if back.Hash() != original.Hash() {
		t.Fatalf("round trip changed order identity: %s != %s", back.Hash(), original.Hash())
	}
}

func TestWireComponentFloorsFractionalScaledUnits(t *testing.T) {
	// A wire value of 0.12345 kWh must floor to 1234 scaled units
	// (0.12345 * 10000 = 1234.5), per spec.md's
	// int_value = (float_value * 10000).floor() rule.
	wire := WireOrderComponent{
		AreaUUID:   hash.Zero.String(),
		MarketID:   hash.Zero.String(),
		Energy:     decimal.NewFromFloat(0.12345),
		EnergyRate: decimal.NewFromFloat(5.0),
	}
	back, err := wire.toCanonical()
	if err != nil {
		t.Fatalf("toCanonical: %v", err)
	}
	if back.Energy != 1234 {
		t.Errorf("energy = %d, want 1234 (floored)", back.Energy)
	}
	if back.EnergyRate != 50_000 {
		t.Errorf("energy rate = %d, want 50000", back.EnergyRate)
	}
}
