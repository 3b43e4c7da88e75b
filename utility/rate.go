/*
rate.go - Consumption and slab-rate computation

PURPOSE:
  Turns meter readings into a priced breakdown. The walk is the classic
  tiered tariff: each slab sells units up to its cumulative capacity at its
  own rate until the consumption is exhausted. A single unbounded slab is
  exactly equivalent to the flat rate.

BREAKDOWN:
  base       = slab/flat consumption + fixed charge
  tax        = base x (government % + service %)
  additional = named charges (fixed or % of base), discounts negative
  total      = max(0, base + tax + additional)

  Base, tax and additional amounts are stored on the bill separately so a
  reviewer can recompute the total from the stored inputs.
*/
package utility

import (
	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
)

// UnitsConsumed returns the billable units: the reading delta when both
// readings are present, otherwise the manually supplied value.
func UnitsConsumed(b *Bill) decimal.Decimal {
	if b.PreviousReading != nil && b.CurrentReading != nil {
		return b.CurrentReading.Sub(*b.PreviousReading)
	}
	return b.ManualUnits
}

// Compute recomputes the bill's breakdown from its readings and rate
// structure, storing base/tax/additional/total on the bill. Deterministic:
// same inputs always give the same breakdown.
func Compute(b *Bill) {
	units := UnitsConsumed(b)
	if units.IsNegative() {
		units = decimal.Zero
	}

	base := consumptionAmount(units, b.Rates).Add(b.Rates.FixedCharge)
	tax := base.Percent(b.Rates.GovTaxPct).Add(base.Percent(b.Rates.ServiceTaxPct))

	additional := billing.Zero()
	for _, oc := range b.Rates.OtherCharges {
		amount := oc.Amount
		if oc.Percent > 0 {
			amount = base.Percent(oc.Percent)
		}
		if oc.IsDiscount {
			amount = amount.Neg()
		}
		additional = additional.Add(amount)
	}

	b.BaseAmount = base.Round()
	b.TaxAmount = tax.Round()
	b.AdditionalAmount = additional.Round()
	b.TotalAmount = b.BaseAmount.Add(b.TaxAmount).Add(b.AdditionalAmount).FloorZero()
}

// consumptionAmount walks the slabs in order, selling units up to each
// slab's cumulative capacity at that slab's rate. Units beyond the last
// bounded slab are charged at the final slab's rate. With no slabs the flat
// BaseRate applies.
func consumptionAmount(units decimal.Decimal, rates RateStructure) billing.Money {
	if len(rates.Slabs) == 0 {
		return rates.BaseRate.Mul(units)
	}

	amount := billing.Zero()
	remaining := units
	prev := decimal.Zero

	for _, slab := range rates.Slabs {
		if !remaining.IsPositive() {
			break
		}

		if slab.UpTo == 0 {
			// Unbounded final slab takes everything left.
			amount = amount.Add(slab.Rate.Mul(remaining))
			remaining = decimal.Zero
			break
		}

		capacity := decimal.NewFromInt(slab.UpTo).Sub(prev)
		band := decimal.Min(remaining, capacity)
		amount = amount.Add(slab.Rate.Mul(band))
		remaining = remaining.Sub(band)
		prev = decimal.NewFromInt(slab.UpTo)
	}

	if remaining.IsPositive() {
		// Consumption past the last bounded slab keeps its rate.
		last := rates.Slabs[len(rates.Slabs)-1]
		amount = amount.Add(last.Rate.Mul(remaining))
	}
	return amount
}

// DeriveStatus is the lazy status derivation: paid is sticky, and an unpaid
// bill classifies as overdue once its due date has passed. Persisting the
// overdue state in bulk is the scheduler's job, not this function's.
func DeriveStatus(b *Bill, asOf billing.Date) BillStatus {
	if b.Status == BillPaid {
		return BillPaid
	}
	if b.DueDate.Before(asOf) {
		return BillOverdue
	}
	return BillUnpaid
}
