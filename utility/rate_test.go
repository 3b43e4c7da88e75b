package utility_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/utility"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func decptr(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

// slabRates is the canonical tiered tariff used across these tests:
// first 100 units at 5, next 100 at 7, everything beyond at 9.
func slabRates() utility.RateStructure {
	return utility.RateStructure{
		Slabs: []utility.Slab{
			{UpTo: 100, Rate: billing.NewMoney(5)},
			{UpTo: 200, Rate: billing.NewMoney(7)},
			{UpTo: 0, Rate: billing.NewMoney(9)},
		},
	}
}

func meteredBill(prev, curr int64, rates utility.RateStructure) *utility.Bill {
	return &utility.Bill{
		ID:              "bill-1",
		RoomID:          "r-101",
		Type:            utility.TypeElectricity,
		PreviousReading: decptr(prev),
		CurrentReading:  decptr(curr),
		Rates:           rates,
		Status:          utility.BillUnpaid,
	}
}

// =============================================================================
// CONSUMPTION
// =============================================================================

func TestUnitsConsumed_ReadingDelta(t *testing.T) {
	// GIVEN: Previous reading 1200, current 1350
	// WHEN: Deriving consumption
	// THEN: 150 units - the delta wins over any manual value
	b := meteredBill(1200, 1350, slabRates())
	b.ManualUnits = dec(999)

	assert.True(t, utility.UnitsConsumed(b).Equal(dec(150)))
}

func TestUnitsConsumed_ManualFallback(t *testing.T) {
	// GIVEN: No meter readings, manual units supplied
	// WHEN: Deriving consumption
	// THEN: The manual value is used
	b := &utility.Bill{ManualUnits: dec(80), Rates: slabRates()}
	assert.True(t, utility.UnitsConsumed(b).Equal(dec(80)))
}

// =============================================================================
// SLAB WALK
// =============================================================================

func TestCompute_SlabWalk_SpansTwoTiers(t *testing.T) {
	// GIVEN: 150 units against slabs [<=100 @ 5, <=200 @ 7]
	// WHEN: Computing
	// THEN: 100*5 + 50*7 = 850
	b := meteredBill(0, 150, slabRates())
	utility.Compute(b)

	assert.Equal(t, "850", b.BaseAmount.String())
	assert.Equal(t, "850", b.TotalAmount.String())
}

func TestCompute_SlabWalk_UnboundedFinalSlab(t *testing.T) {
	// GIVEN: 250 units, 50 of which fall past the last bounded slab
	// WHEN: Computing
	// THEN: 100*5 + 100*7 + 50*9 = 1650
	b := meteredBill(1000, 1250, slabRates())
	utility.Compute(b)

	assert.Equal(t, "1650", b.BaseAmount.String())
}

func TestCompute_SlabWalk_ExactBoundary(t *testing.T) {
	// GIVEN: Exactly 100 units, the first slab's cumulative cap
	// WHEN: Computing
	// THEN: All 100 at the first rate: 500, no spill into the second slab
	b := meteredBill(0, 100, slabRates())
	utility.Compute(b)

	assert.Equal(t, "500", b.BaseAmount.String())
}

func TestCompute_OverflowPastLastBoundedSlab_KeepsFinalRate(t *testing.T) {
	// GIVEN: Slabs with no unbounded terminator and consumption past the cap
	// WHEN: Computing 250 units against [<=100 @ 5, <=200 @ 7]
	// THEN: The overflow keeps the final slab's rate: 500 + 700 + 50*7 = 1550
	rates := utility.RateStructure{
		Slabs: []utility.Slab{
			{UpTo: 100, Rate: billing.NewMoney(5)},
			{UpTo: 200, Rate: billing.NewMoney(7)},
		},
	}
	b := meteredBill(0, 250, rates)
	utility.Compute(b)

	assert.Equal(t, "1550", b.BaseAmount.String())
}

func TestCompute_FlatRateEqualsSingleUnboundedSlab(t *testing.T) {
	// GIVEN: The same consumption priced flat and as one unbounded slab
	// WHEN: Computing both
	// THEN: Identical amounts - the flat rate is the degenerate slab case
	flat := meteredBill(0, 175, utility.RateStructure{BaseRate: billing.NewMoney(6)})
	slab := meteredBill(0, 175, utility.RateStructure{
		Slabs: []utility.Slab{{UpTo: 0, Rate: billing.NewMoney(6)}},
	})
	utility.Compute(flat)
	utility.Compute(slab)

	assert.Equal(t, flat.BaseAmount.String(), slab.BaseAmount.String())
	assert.Equal(t, "1050", flat.BaseAmount.String())
}

func TestCompute_SlabMonotonicity(t *testing.T) {
	// GIVEN: Increasing consumption
	// WHEN: Computing each
	// THEN: The base amount never decreases
	prev := billing.Zero()
	for units := int64(0); units <= 300; units += 25 {
		b := meteredBill(0, units, slabRates())
		utility.Compute(b)
		require.False(t, b.BaseAmount.LessThan(prev),
			"base amount decreased at %d units: %s < %s", units, b.BaseAmount, prev)
		prev = b.BaseAmount
	}
}

func TestCompute_NegativeDelta_TreatedAsZero(t *testing.T) {
	// GIVEN: A meter rollover producing current < previous
	// WHEN: Computing
	// THEN: Zero consumption, only fixed charges bill
	rates := slabRates()
	rates.FixedCharge = billing.NewMoney(50)
	b := meteredBill(1350, 1200, rates)
	utility.Compute(b)

	assert.Equal(t, "50", b.BaseAmount.String())
}

// =============================================================================
// TAXES AND ADDITIONAL CHARGES
// =============================================================================

func TestCompute_FullBreakdown(t *testing.T) {
	// GIVEN: 150 units on the slab tariff, fixed charge 50, 5% + 2% taxes,
	//        a 25 meter rent and a 10% promotional discount
	// WHEN: Computing
	// THEN: base = 850 + 50 = 900; tax = 900*7% = 63;
	//       additional = 25 - 90 = -65; total = 898
	rates := slabRates()
	rates.FixedCharge = billing.NewMoney(50)
	rates.GovTaxPct = 5
	rates.ServiceTaxPct = 2
	rates.OtherCharges = []utility.OtherCharge{
		{Name: "Meter Rent", Amount: billing.NewMoney(25)},
		{Name: "Promo Discount", Percent: 10, IsDiscount: true},
	}

	b := meteredBill(1200, 1350, rates)
	utility.Compute(b)

	assert.Equal(t, "900", b.BaseAmount.String())
	assert.Equal(t, "63", b.TaxAmount.String())
	assert.Equal(t, "-65", b.AdditionalAmount.String())
	assert.Equal(t, "898", b.TotalAmount.String())
}

func TestCompute_TotalFlooredAtZero(t *testing.T) {
	// GIVEN: A discount larger than the whole bill
	// WHEN: Computing
	// THEN: The total clamps to zero
	rates := utility.RateStructure{
		BaseRate:     billing.NewMoney(1),
		OtherCharges: []utility.OtherCharge{{Name: "Credit", Amount: billing.NewMoney(500), IsDiscount: true}},
	}
	b := meteredBill(0, 10, rates)
	utility.Compute(b)

	assert.True(t, b.TotalAmount.IsZero(), "total must floor at zero, got %s", b.TotalAmount)
}

func TestCompute_Deterministic(t *testing.T) {
	// GIVEN: One bill
	// WHEN: Computing twice
	// THEN: The breakdown is identical - Compute reads only inputs
	b := meteredBill(1200, 1350, slabRates())
	utility.Compute(b)
	first := b.TotalAmount.String()
	utility.Compute(b)

	assert.Equal(t, first, b.TotalAmount.String())
}

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestDeriveStatus(t *testing.T) {
	due := billing.NewDate(2025, 6, 10)

	b := meteredBill(0, 10, slabRates())
	b.DueDate = due

	assert.Equal(t, utility.BillUnpaid, utility.DeriveStatus(b, billing.NewDate(2025, 6, 10)),
		"not overdue on the due date itself")
	assert.Equal(t, utility.BillOverdue, utility.DeriveStatus(b, billing.NewDate(2025, 6, 11)),
		"overdue the day after the due date")

	b.Status = utility.BillPaid
	assert.Equal(t, utility.BillPaid, utility.DeriveStatus(b, billing.NewDate(2025, 6, 11)),
		"paid is sticky regardless of dates")
}
