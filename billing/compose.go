/*
compose.go - Anniversary charge composition

PURPOSE:
  Builds the priced line-item list for one anniversary billing pass: base
  rent, the flat per-room-type electricity charge, the shared common-area
  charge, and the qualifying discounts and penalties. The output is handed
  to the invoice lifecycle manager, which persists it.

STACKING:
  Each discount/penalty is applied whenever its condition independently
  holds; there is no mutual exclusion and no cap. A long-tenured resident
  who also paid the previous bill early gets both discounts. The total is
  floored at zero.

PURITY:
  The composer reads nothing itself. The tenancy, its billing history and
  the property configuration are passed in; the result is deterministic in
  its inputs and safe to run concurrently across tenancies.
*/
package billing

import "fmt"

// Composer assembles anniversary charges for a tenancy under a property
// configuration.
type Composer struct {
	Config Config
}

func NewComposer(cfg Config) *Composer {
	return &Composer{Config: cfg}
}

// ComposeAnniversaryCharges builds the charge result for the billing period
// anchored at the tenancy's next anniversary:
//
//   - period start: this month's anniversary day if still in the future,
//     else next month's (clamped to month length)
//   - period end: the day before the following month's anniversary day
//   - due date: anniversary + payment term
//
// Line items, in order: Monthly Rent; flat electricity (when configured for
// the room type); common-area charge (when configured); long-term discount
// (tenure >= the configured threshold); early-payment discount (previous
// bill settled on/before its due date); late-payment penalty (percentage of
// the overdue billing-history sum).
func (c *Composer) ComposeAnniversaryCharges(t *Tenancy, history []BillingRecord, asOf Date) (ChargeResult, error) {
	if t.CheckIn == nil {
		return ChargeResult{}, &AnchorError{TenancyID: t.ID, Field: "check_in_date"}
	}
	if !t.RentAmount.IsPositive() {
		return ChargeResult{}, &AnchorError{TenancyID: t.ID, Field: "rent_amount"}
	}

	anchor := t.AnchorDay()
	anniversary := NextAnniversary(asOf, anchor)
	periodEnd := AddCycle(anniversary, CycleMonthly, anchor).AddDays(-1)
	dueDate := anniversary.AddDays(c.Config.PaymentTermDays)

	lines := []LineItem{{
		Description: "Monthly Rent",
		Amount:      t.RentAmount,
		Type:        ChargeRent,
	}}

	if amount, ok := c.Config.ElectricityCharge(t.RoomType); ok {
		lines = append(lines, LineItem{
			Description: "Electricity Charges",
			Amount:      amount,
			Type:        ChargeElectricity,
		})
	}

	if c.Config.CommonAreaCharge.IsPositive() {
		lines = append(lines, LineItem{
			Description: "Common Area Maintenance",
			Amount:      c.Config.CommonAreaCharge,
			Type:        ChargeCommonArea,
		})
	}

	meta := map[string]string{
		"generated":     "anniversary",
		"anchor_day":    itoa(anchor),
		"tenure_months": itoa(t.TenureMonths(asOf)),
	}

	for _, adj := range c.adjustments(t, history, asOf) {
		lines = append(lines, adj.ToLineItem())
	}

	return ChargeResult{
		TenancyID:   t.ID,
		Lines:       lines,
		Total:       SumLines(lines).FloorZero(),
		PeriodStart: anniversary,
		PeriodEnd:   periodEnd,
		DueDate:     dueDate,
		Metadata:    meta,
	}, nil
}

// adjustments evaluates the discount/penalty conditions against the passed
// history. Discounts carry negative amounts.
func (c *Composer) adjustments(t *Tenancy, history []BillingRecord, asOf Date) []Adjustment {
	var adjs []Adjustment

	if t.TenureMonths(asOf) >= c.Config.LongTermTenureMonths {
		adjs = append(adjs, Adjustment{
			Reason: fmt.Sprintf("Long-term Tenant Discount (%.0f%%)", c.Config.LongTermDiscountPct),
			Amount: t.RentAmount.Percent(c.Config.LongTermDiscountPct).Round().Neg(),
			Type:   ChargeDiscount,
		})
	}

	if prev := LatestRecord(history); prev != nil && prev.PaidOnTime() {
		adjs = append(adjs, Adjustment{
			Reason: fmt.Sprintf("Early Payment Discount (%.0f%%)", c.Config.EarlyPaymentDiscountPct),
			Amount: t.RentAmount.Percent(c.Config.EarlyPaymentDiscountPct).Round().Neg(),
			Type:   ChargeDiscount,
		})
	}

	if overdue := OverdueAmount(history); overdue.IsPositive() {
		adjs = append(adjs, Adjustment{
			Reason: fmt.Sprintf("Late Payment Penalty (%.0f%% of overdue)", c.Config.LatePenaltyPct),
			Amount: overdue.Percent(c.Config.LatePenaltyPct).Round(),
			Type:   ChargePenalty,
		})
	}

	return adjs
}
