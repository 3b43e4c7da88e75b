package utility

import (
	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// LATE FEE ACCRUAL
// =============================================================================

// DaysOverdue returns the whole days the bill has been overdue as of a date.
// Paid bills are never overdue.
func DaysOverdue(b *Bill, asOf billing.Date) int {
	if b.Status == BillPaid || !b.DueDate.Before(asOf) {
		return 0
	}
	return billing.DaysBetween(b.DueDate, asOf)
}

// ApplyLateFee computes and stores the accrued late fee. No-op when late
// fees are not applicable, the bill is already paid, or zero days are
// overdue. The computed amount and computation date are stored on the
// bill's late-fee sub-record; the fee structure itself is never mutated.
func ApplyLateFee(b *Bill, asOf billing.Date) {
	if !b.LateFee.Applicable || b.Status == BillPaid {
		return
	}

	days := DaysOverdue(b, asOf)
	if days == 0 {
		return
	}

	var fee billing.Money
	switch b.LateFee.Basis {
	case LateFeePercentage:
		fee = b.TotalAmount.Percent(b.LateFee.Percent)
	case LateFeeDailyRate:
		fee = b.LateFee.DailyRate.Mul(decimal.NewFromInt(int64(days)))
	default:
		fee = b.LateFee.FixedAmount
	}

	computed := asOf
	b.LateFee.ComputedAmount = fee.Round()
	b.LateFee.ComputedOn = &computed
}

// AmountDue returns the bill total plus any accrued late fee.
func AmountDue(b *Bill) billing.Money {
	return b.TotalAmount.Add(b.LateFee.ComputedAmount)
}
