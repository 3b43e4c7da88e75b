package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dateptr(year int, month time.Month, day int) *billing.Date {
	d := billing.NewDate(year, month, day)
	return &d
}

func activeTenancy(checkIn billing.Date, rent float64) *billing.Tenancy {
	in := checkIn
	return &billing.Tenancy{
		ID:         "t-1",
		PropertyID: "p-1",
		RoomID:     "r-101",
		CheckIn:    &in,
		RentAmount: billing.NewMoney(rent),
		Cycle:      billing.CycleMonthly,
		Status:     billing.TenancyActive,
	}
}

// =============================================================================
// NEXT BILLING DATE
// =============================================================================

func TestNextBillingDate_FirstAdvanceFromCheckIn(t *testing.T) {
	// GIVEN: A tenancy checked in June 15 with no billing history
	// WHEN: Computing the next billing date as of check-in day
	// THEN: July 15, one monthly cycle from the check-in anchor
	ten := activeTenancy(billing.NewDate(2025, time.June, 15), 9000)
	asOf := billing.NewDate(2025, time.June, 15)

	next, err := billing.NextBillingDate(ten, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := billing.NewDate(2025, time.July, 15); !next.Equal(want) {
		t.Errorf("next billing date: got %s, want %s", next, want)
	}
}

func TestNextBillingDate_AdvancesPastStaleDates(t *testing.T) {
	// GIVEN: A tenancy whose stored next billing date is months in the past
	//        (e.g. the scheduler was down)
	// WHEN: Computing the next billing date as of today
	// THEN: The result is strictly after asOf, not just one cycle ahead
	ten := activeTenancy(billing.NewDate(2025, time.January, 10), 9000)
	ten.NextBillingDate = dateptr(2025, time.March, 10)
	asOf := billing.NewDate(2025, time.June, 20)

	next, err := billing.NextBillingDate(ten, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := billing.NewDate(2025, time.July, 10); !next.Equal(want) {
		t.Errorf("stale date must catch up: got %s, want %s", next, want)
	}
	if !next.After(asOf) {
		t.Errorf("next billing date %s must be strictly after asOf %s", next, asOf)
	}
}

func TestNextBillingDate_ExplicitBillingDayOverridesCheckIn(t *testing.T) {
	// GIVEN: A tenancy checked in on the 15th but configured to bill on the 1st
	// WHEN: Computing the next billing date
	// THEN: The explicit billing day wins as the anchor
	ten := activeTenancy(billing.NewDate(2025, time.June, 15), 9000)
	ten.BillingDay = 1
	asOf := billing.NewDate(2025, time.June, 20)

	next, err := billing.NextBillingDate(ten, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Day() != 1 {
		t.Errorf("anchor day: got %d, want 1", next.Day())
	}
}

func TestNextBillingDate_MissingCheckIn_Errors(t *testing.T) {
	// GIVEN: A tenancy with no check-in date
	// WHEN: Computing the next billing date
	// THEN: ErrMissingBillingAnchor
	ten := &billing.Tenancy{ID: "t-broken", RentAmount: billing.NewMoney(9000)}

	_, err := billing.NextBillingDate(ten, billing.NewDate(2025, time.June, 1))
	if !errors.Is(err, billing.ErrMissingBillingAnchor) {
		t.Errorf("expected ErrMissingBillingAnchor, got %v", err)
	}
}

// =============================================================================
// BILLING STATUS CLASSIFICATION
// =============================================================================

func TestBillingStatus_Classification(t *testing.T) {
	asOf := billing.NewDate(2025, time.June, 10)
	cases := []struct {
		name string
		next *billing.Date
		want billing.BillingState
	}{
		{"no date", nil, billing.BillingNotSet},
		{"passed", dateptr(2025, time.June, 9), billing.BillingOverdue},
		{"today", dateptr(2025, time.June, 10), billing.BillingDueSoon},
		{"within window", dateptr(2025, time.June, 13), billing.BillingDueSoon},
		{"beyond window", dateptr(2025, time.June, 14), billing.BillingCurrent},
	}
	for _, tc := range cases {
		ten := activeTenancy(billing.NewDate(2025, time.January, 10), 9000)
		ten.NextBillingDate = tc.next
		if got := billing.BillingStatus(ten, asOf, 3); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIsDue(t *testing.T) {
	// GIVEN: A tenancy due June 10
	// WHEN: Checking due-ness on either side of that date
	// THEN: Due on and after the date, not before, never without a date
	ten := activeTenancy(billing.NewDate(2025, time.January, 10), 9000)
	ten.NextBillingDate = dateptr(2025, time.June, 10)

	if billing.IsDue(ten, billing.NewDate(2025, time.June, 9)) {
		t.Error("not due before the billing date")
	}
	if !billing.IsDue(ten, billing.NewDate(2025, time.June, 10)) {
		t.Error("due on the billing date itself")
	}
	if !billing.IsDue(ten, billing.NewDate(2025, time.June, 11)) {
		t.Error("due after the billing date")
	}

	ten.NextBillingDate = nil
	if billing.IsDue(ten, billing.NewDate(2025, time.June, 11)) {
		t.Error("never due without a next billing date")
	}
}

// =============================================================================
// TENURE
// =============================================================================

func TestTenureMonths(t *testing.T) {
	ten := activeTenancy(billing.NewDate(2024, time.June, 15), 9000)

	cases := []struct {
		name string
		asOf billing.Date
		want int
	}{
		{"before check-in", billing.NewDate(2024, time.May, 1), 0},
		{"same day", billing.NewDate(2024, time.June, 15), 0},
		{"day before first month completes", billing.NewDate(2024, time.July, 14), 0},
		{"exactly one month", billing.NewDate(2024, time.July, 15), 1},
		{"one year", billing.NewDate(2025, time.June, 15), 12},
		{"eighteen months", billing.NewDate(2025, time.December, 15), 18},
	}
	for _, tc := range cases {
		if got := ten.TenureMonths(tc.asOf); got != tc.want {
			t.Errorf("%s: TenureMonths = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestIsBillable(t *testing.T) {
	cases := []struct {
		status billing.TenancyStatus
		want   bool
	}{
		{billing.TenancyActive, true},
		{billing.TenancyNoticePeriod, true},
		{billing.TenancyCheckout, false},
		{billing.TenancyTerminated, false},
	}
	for _, tc := range cases {
		ten := activeTenancy(billing.NewDate(2025, time.January, 1), 9000)
		ten.Status = tc.status
		if got := ten.IsBillable(); got != tc.want {
			t.Errorf("IsBillable(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
