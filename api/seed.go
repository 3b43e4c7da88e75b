/*
seed.go - Demo data loader for development and demonstrations

PURPOSE:

	Populates the stores with realistic tenancies, billing history, and
	utility bills so the API has something to show out of the box. Each
	seeded tenancy demonstrates a specific engine feature.

SEEDED TENANCIES:

	t-aisha:  Long-term tenant (18 months in), qualifies for the tenure
	          discount; clean payment history
	t-marco:  Mid-month check-in, daily-prorated first invoice
	t-priya:  Overdue tenant with an unpaid invoice past its due date,
	          demonstrates the late penalty and the overdue sweep
	t-jonas:  Month-end anchor (billing day 31), demonstrates clamping

USAGE:

	seeded via the -seed flag on server startup; see cmd/server/main.go

NOTE:

	Seeding appends to the stores; run it against a fresh database.

SEE ALSO:
  - handlers.go: Handler dependencies used here
  - factory/rateplan.go: Rate plan used for the seeded utility bill
*/
package api

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/factory"
	"github.com/roomstay/billing-engine/utility"
)

// Seed loads the demo dataset relative to today's date.
func Seed(ctx context.Context, h *Handler) error {
	today := billing.Today()

	if err := seedLongTermTenant(ctx, h, today); err != nil {
		return fmt.Errorf("failed to seed long-term tenant: %w", err)
	}
	if err := seedMidMonthCheckIn(ctx, h, today); err != nil {
		return fmt.Errorf("failed to seed mid-month check-in: %w", err)
	}
	if err := seedOverdueTenant(ctx, h, today); err != nil {
		return fmt.Errorf("failed to seed overdue tenant: %w", err)
	}
	if err := seedMonthEndAnchor(ctx, h, today); err != nil {
		return fmt.Errorf("failed to seed month-end anchor: %w", err)
	}
	if err := seedUtilityBill(ctx, h, today); err != nil {
		return fmt.Errorf("failed to seed utility bill: %w", err)
	}

	log.Println("[Seed] Demo data loaded")
	return nil
}

// seedLongTermTenant creates a tenant 18 months into their stay with a clean
// payment history, so the next composed invoice carries the tenure discount.
func seedLongTermTenant(ctx context.Context, h *Handler, today billing.Date) error {
	checkIn := today.AddMonths(-18)
	next := billing.NewDate(today.Year(), today.Month(), checkIn.Day())
	if next.BeforeOrEqual(today) {
		next = billing.AddCycle(next, billing.CycleMonthly, checkIn.Day())
	}

	t := &billing.Tenancy{
		ID:         "t-aisha",
		PropertyID: "prop-hilltop",
		RoomID:     "room-101",
		RoomType:   "single",
		CheckIn:    &checkIn,
		RentAmount: billing.NewMoneyFromInt(9000),
		Cycle:      billing.CycleMonthly,
		Proration:  billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateDaily},
		Status:     billing.TenancyActive,
	}
	t.NextBillingDate = &next
	if err := h.Tenancies.SaveTenancy(ctx, t); err != nil {
		return err
	}

	// Three months of settled history.
	for i := 3; i >= 1; i-- {
		billed := today.AddMonths(-i)
		due := billed.AddDays(h.Config.PaymentTermDays)
		paid := billed.AddDays(2)
		rec := billing.BillingRecord{
			ID:          uuid.NewString(),
			TenancyID:   t.ID,
			Amount:      t.RentAmount,
			BillingDate: billed,
			DueDate:     due,
			PaidDate:    &paid,
			Status:      billing.RecordPaid,
			ChargeType:  billing.ChargeRent,
			Note:        "Anniversary billing",
		}
		if err := h.History.AppendRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// seedMidMonthCheckIn creates a tenant who moved in on the 15th of this
// month; their first invoice should be the daily-prorated remainder.
func seedMidMonthCheckIn(ctx context.Context, h *Handler, today billing.Date) error {
	checkIn := billing.NewDate(today.Year(), today.Month(), 15)

	t := &billing.Tenancy{
		ID:         "t-marco",
		PropertyID: "prop-hilltop",
		RoomID:     "room-204",
		RoomType:   "double",
		CheckIn:    &checkIn,
		RentAmount: billing.NewMoneyFromInt(12000),
		Cycle:      billing.CycleMonthly,
		Proration:  billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateDaily},
		Status:     billing.TenancyActive,
	}
	return h.Tenancies.SaveTenancy(ctx, t)
}

// seedOverdueTenant creates a tenant with an unpaid invoice ten days past
// due. The overdue sweep moves it, and the next composition adds the
// late-payment penalty on the overdue sum.
func seedOverdueTenant(ctx context.Context, h *Handler, today billing.Date) error {
	checkIn := today.AddMonths(-6)
	next := billing.AddCycle(today.AddDays(-17), billing.CycleMonthly, checkIn.Day())

	t := &billing.Tenancy{
		ID:         "t-priya",
		PropertyID: "prop-lakeside",
		RoomID:     "room-310",
		RoomType:   "single",
		CheckIn:    &checkIn,
		RentAmount: billing.NewMoneyFromInt(8500),
		Cycle:      billing.CycleMonthly,
		Proration:  billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateDaily},
		Status:     billing.TenancyActive,
	}
	t.NextBillingDate = &next
	if err := h.Tenancies.SaveTenancy(ctx, t); err != nil {
		return err
	}

	billed := today.AddDays(-17)
	rec := billing.BillingRecord{
		ID:          uuid.NewString(),
		TenancyID:   t.ID,
		Amount:      t.RentAmount,
		BillingDate: billed,
		DueDate:     billed.AddDays(h.Config.PaymentTermDays),
		Status:      billing.RecordOverdue,
		ChargeType:  billing.ChargeRent,
		Note:        "Anniversary billing",
	}
	return h.History.AppendRecord(ctx, rec)
}

// seedMonthEndAnchor creates a tenant anchored to day 31; in shorter months
// the anniversary clamps to the last day.
func seedMonthEndAnchor(ctx context.Context, h *Handler, today billing.Date) error {
	checkIn := today.AddMonths(-2)

	t := &billing.Tenancy{
		ID:         "t-jonas",
		PropertyID: "prop-lakeside",
		RoomID:     "room-407",
		RoomType:   "double",
		CheckIn:    &checkIn,
		RentAmount: billing.NewMoneyFromInt(11000),
		Cycle:      billing.CycleMonthly,
		BillingDay: 31,
		Proration:  billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateWeekly},
		Status:     billing.TenancyActive,
	}
	return h.Tenancies.SaveTenancy(ctx, t)
}

// seedUtilityBill creates a slab-rated electricity bill for last month.
func seedUtilityBill(ctx context.Context, h *Handler, today billing.Date) error {
	planJSON := factory.RatePlanJSON{
		Slabs: []factory.SlabJSON{
			{UpTo: 100, Rate: 5},
			{UpTo: 200, Rate: 7},
			{UpTo: 0, Rate: 9},
		},
		FixedCharge:   50,
		GovTaxPct:     5,
		ServiceTaxPct: 2,
		OtherCharges: []factory.OtherChargeJSON{
			{Name: "Meter Rent", Amount: 25},
		},
		LateFee: &factory.LateFeeJSON{Applicable: true, Basis: "daily_rate", DailyRate: 10},
	}
	plan, err := factory.FromRatePlanJSON(planJSON)
	if err != nil {
		return err
	}

	period := today.AddMonths(-1)
	prev := decimal.NewFromInt(1200)
	curr := decimal.NewFromInt(1350)

	b := &utility.Bill{
		ID:              uuid.NewString(),
		RoomID:          "room-101",
		TenancyID:       "t-aisha",
		Type:            utility.TypeElectricity,
		PeriodMonth:     period.Month(),
		PeriodYear:      period.Year(),
		PreviousReading: &prev,
		CurrentReading:  &curr,
		Rates:           plan.Rates,
		DueDate:         today.AddDays(7),
		Status:          utility.BillUnpaid,
		LateFee:         plan.LateFee,
	}
	utility.Compute(b)
	return h.Bills.CreateBill(ctx, b)
}
