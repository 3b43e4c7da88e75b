package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// DAILY PRORATION
// =============================================================================

func TestProrate_Daily_TenDaysOfThirtyDayMonth(t *testing.T) {
	// GIVEN: Rent 9000 in June (30 days), occupancy June 21-30
	// WHEN: Prorating daily
	// THEN: 10 days at 300/day = 3000
	ten := activeTenancy(billing.NewDate(2025, time.June, 21), 9000)
	ten.Proration = billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateDaily}

	start := billing.NewDate(2025, time.June, 21)
	end := billing.NewDate(2025, time.June, 30)
	res, err := billing.Prorate(ten, &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := res.Line.Amount.String(); got != "3000" {
		t.Errorf("prorated amount: got %s, want 3000", got)
	}
	if res.DayCount != 10 {
		t.Errorf("day count: got %d, want 10", res.DayCount)
	}
	if res.Line.Type != billing.ChargeProrated {
		t.Errorf("charge type: got %s, want %s", res.Line.Type, billing.ChargeProrated)
	}
}

func TestProrate_Daily_FullMonthEqualsRent(t *testing.T) {
	// GIVEN: Rent 9000 and an occupancy of the whole of June
	// WHEN: Prorating daily
	// THEN: Exactly the full rent - no rounding drift at the boundary
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 9000)

	start := billing.NewDate(2025, time.June, 1)
	end := billing.NewDate(2025, time.June, 30)
	res, err := billing.Prorate(ten, &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := res.Line.Amount.String(); got != "9000" {
		t.Errorf("full month must equal full rent: got %s", got)
	}
}

func TestProrate_Daily_RoundsToWholeUnits(t *testing.T) {
	// GIVEN: Rent 10000 in a 31-day month, 7 days of occupancy
	// WHEN: Prorating daily (10000/31 is non-terminating)
	// THEN: The amount rounds to a whole currency unit: 10000/31*7 = 2258.06 -> 2258
	ten := activeTenancy(billing.NewDate(2025, time.July, 25), 10000)

	start := billing.NewDate(2025, time.July, 25)
	end := billing.NewDate(2025, time.July, 31)
	res, err := billing.Prorate(ten, &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := res.Line.Amount.String(); got != "2258" {
		t.Errorf("rounded amount: got %s, want 2258", got)
	}
}

// =============================================================================
// WEEKLY PRORATION
// =============================================================================

func TestProrate_Weekly_PartialWeekRoundsUp(t *testing.T) {
	// GIVEN: Rent 8000 (weekly rate 2000), 10 days of occupancy
	// WHEN: Prorating weekly
	// THEN: ceil(10/7) = 2 weeks, amount 4000
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 8000)
	ten.Proration = billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateWeekly}

	start := billing.NewDate(2025, time.June, 1)
	end := billing.NewDate(2025, time.June, 10)
	res, err := billing.Prorate(ten, &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Weeks != 2 {
		t.Errorf("weeks: got %d, want 2", res.Weeks)
	}
	if got := res.Line.Amount.String(); got != "4000" {
		t.Errorf("weekly prorated amount: got %s, want 4000", got)
	}
}

func TestProrate_Weekly_SingleDayIsOneWeek(t *testing.T) {
	// GIVEN: A one-day occupancy under weekly proration
	// WHEN: Prorating
	// THEN: Billed as one full week - the mode's floor
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 8000)
	ten.Proration = billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateWeekly}

	d := billing.NewDate(2025, time.June, 5)
	res, err := billing.Prorate(ten, &d, &d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Weeks != 1 {
		t.Errorf("weeks: got %d, want 1", res.Weeks)
	}
	if got := res.Line.Amount.String(); got != "2000" {
		t.Errorf("one week amount: got %s, want 2000", got)
	}
}

// =============================================================================
// RANGE VALIDATION
// =============================================================================

func TestProrate_InvertedRange_Errors(t *testing.T) {
	// GIVEN: A range with end before start
	// WHEN: Prorating
	// THEN: ErrInvalidProrationRange
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 9000)

	start := billing.NewDate(2025, time.June, 20)
	end := billing.NewDate(2025, time.June, 10)
	_, err := billing.Prorate(ten, &start, &end)
	if !errors.Is(err, billing.ErrInvalidProrationRange) {
		t.Errorf("expected ErrInvalidProrationRange, got %v", err)
	}
}

func TestProrate_MissingDate_Errors(t *testing.T) {
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 9000)
	start := billing.NewDate(2025, time.June, 10)

	_, err := billing.Prorate(ten, &start, nil)
	if !errors.Is(err, billing.ErrInvalidProrationRange) {
		t.Errorf("expected ErrInvalidProrationRange, got %v", err)
	}
}

func TestProrate_NonPositiveRent_Errors(t *testing.T) {
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 0)
	d := billing.NewDate(2025, time.June, 10)

	_, err := billing.Prorate(ten, &d, &d)
	if !errors.Is(err, billing.ErrMissingBillingAnchor) {
		t.Errorf("expected ErrMissingBillingAnchor, got %v", err)
	}
}

// =============================================================================
// CHECK-IN / CHECK-OUT CONVENIENCE WRAPPERS
// =============================================================================

func TestCheckInProration_RunsToMonthEnd(t *testing.T) {
	// GIVEN: A mid-month check-in on June 21, rent 9000
	// WHEN: Computing the move-in proration
	// THEN: June 21-30 at the daily rate = 3000
	ten := activeTenancy(billing.NewDate(2025, time.June, 21), 9000)

	res, err := billing.CheckInProration(ten)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Line.Amount.String(); got != "3000" {
		t.Errorf("move-in proration: got %s, want 3000", got)
	}
	if res.Start.String() != "2025-06-21" || res.End.String() != "2025-06-30" {
		t.Errorf("range = %s to %s, want 2025-06-21 to 2025-06-30", res.Start, res.End)
	}
}

func TestCheckOutProration_RunsFromMonthStart(t *testing.T) {
	// GIVEN: A check-out on June 10, rent 9000
	// WHEN: Computing the move-out proration
	// THEN: June 1-10 at the daily rate = 3000
	ten := activeTenancy(billing.NewDate(2025, time.January, 1), 9000)
	ten.CheckOut = dateptr(2025, time.June, 10)

	res, err := billing.CheckOutProration(ten)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Line.Amount.String(); got != "3000" {
		t.Errorf("move-out proration: got %s, want 3000", got)
	}
	if res.Start.String() != "2025-06-01" || res.End.String() != "2025-06-10" {
		t.Errorf("range = %s to %s, want 2025-06-01 to 2025-06-10", res.Start, res.End)
	}
}

func TestCheckOutProration_WithoutCheckOutDate_Errors(t *testing.T) {
	ten := activeTenancy(billing.NewDate(2025, time.January, 1), 9000)

	_, err := billing.CheckOutProration(ten)
	if !errors.Is(err, billing.ErrInvalidProrationRange) {
		t.Errorf("expected ErrInvalidProrationRange, got %v", err)
	}
}

// =============================================================================
// AUDIT METADATA
// =============================================================================

func TestProrationResult_Metadata(t *testing.T) {
	// GIVEN: A weekly proration result
	// WHEN: Rendering its metadata
	// THEN: Mode, day count, rate, and weeks are present so the amount can
	//       be recomputed by a reviewer
	ten := activeTenancy(billing.NewDate(2025, time.June, 1), 8000)
	ten.Proration = billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateWeekly}

	start := billing.NewDate(2025, time.June, 1)
	end := billing.NewDate(2025, time.June, 10)
	res, err := billing.Prorate(ten, &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta := res.Metadata()
	if meta["proration_mode"] != "weekly" {
		t.Errorf("proration_mode: got %q", meta["proration_mode"])
	}
	if meta["day_count"] != "10" {
		t.Errorf("day_count: got %q", meta["day_count"])
	}
	if meta["weeks"] != "2" {
		t.Errorf("weeks: got %q", meta["weeks"])
	}
	if meta["rate"] != "2000" {
		t.Errorf("rate: got %q", meta["rate"])
	}
}
