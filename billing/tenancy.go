/*
tenancy.go - The billable occupancy record

PURPOSE:
  A Tenancy is a resident's occupancy of a room: the anchor dates, the rent,
  the billing cycle configuration, and the lifecycle status. It is the single
  input every calculator in this package operates on.

LIFECYCLE:
  Created at move-in, mutated on every billing pass (NextBillingDate /
  LastBillingDate advance) and on status change. Never physically deleted -
  checkout and termination are soft transitions.

BILLING HISTORY:
  Past billing events are NOT embedded here. They live in an append-only
  ledger keyed by tenancy id (see HistoryLedger in store.go) and are passed
  to the calculators explicitly. This keeps the record bounded and the
  calculators pure.

INVARIANT:
  NextBillingDate is strictly in the future relative to the last completed
  billing pass, or nil once checkout has occurred.
*/
package billing

// =============================================================================
// TENANCY
// =============================================================================

type TenancyStatus string

const (
	TenancyActive       TenancyStatus = "active"
	TenancyNoticePeriod TenancyStatus = "notice_period"
	TenancyCheckout     TenancyStatus = "checkout"
	TenancyTerminated   TenancyStatus = "terminated"
)

type ProrationMode string

const (
	ProrateDaily  ProrationMode = "daily"
	ProrateWeekly ProrationMode = "weekly"
)

// ProrationPolicy controls whether and how partial periods are billed.
type ProrationPolicy struct {
	Enabled bool
	Mode    ProrationMode
}

type Tenancy struct {
	ID         TenancyID
	PropertyID PropertyID
	RoomID     string
	RoomType   string // keys the per-room-type electricity charge

	CheckIn  *Date
	CheckOut *Date

	RentAmount Money
	Cycle      CycleUnit
	// BillingDay is the anniversary day-of-month. Zero means "use the
	// check-in day".
	BillingDay int

	NextBillingDate *Date
	LastBillingDate *Date

	Proration ProrationPolicy
	Status    TenancyStatus
}

// AnchorDay returns the anniversary day-of-month for this tenancy.
func (t *Tenancy) AnchorDay() int {
	if t.BillingDay > 0 {
		return t.BillingDay
	}
	if t.CheckIn != nil {
		return t.CheckIn.Day()
	}
	return 0
}

// IsBillable reports whether the tenancy is in a status that accrues rent.
func (t *Tenancy) IsBillable() bool {
	return t.Status == TenancyActive || t.Status == TenancyNoticePeriod
}

// TenureMonths returns the number of whole months since check-in, as of the
// given date. Used by the long-term-tenant discount.
func (t *Tenancy) TenureMonths(asOf Date) int {
	if t.CheckIn == nil || asOf.Before(*t.CheckIn) {
		return 0
	}
	in := *t.CheckIn
	months := (asOf.Year()-in.Year())*12 + int(asOf.Month()) - int(in.Month())
	if asOf.Day() < in.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// =============================================================================
// BILLING HISTORY - Append-only ledger entries
// =============================================================================

type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordPaid    RecordStatus = "paid"
	RecordOverdue RecordStatus = "overdue"
)

// BillingRecord is one entry in a tenancy's billing history: the trace of a
// past billing pass, linked to the invoice it produced.
type BillingRecord struct {
	ID          string
	TenancyID   TenancyID
	InvoiceID   InvoiceID
	Amount      Money
	BillingDate Date
	DueDate     Date
	PaidDate    *Date
	Status      RecordStatus
	ChargeType  ChargeType
	Note        string
}

// PaidOnTime reports whether the record settled on or before its due date.
func (r BillingRecord) PaidOnTime() bool {
	return r.PaidDate != nil && r.PaidDate.BeforeOrEqual(r.DueDate)
}

// OverdueAmount returns the sum of overdue record amounts in a history set.
// The late-payment penalty is charged on this sum.
func OverdueAmount(history []BillingRecord) Money {
	total := Zero()
	for _, r := range history {
		if r.Status == RecordOverdue {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// LatestRecord returns the most recent history entry by billing date, or nil
// for an empty history. Used by the early-payment discount.
func LatestRecord(history []BillingRecord) *BillingRecord {
	var latest *BillingRecord
	for i := range history {
		if latest == nil || history[i].BillingDate.After(latest.BillingDate) {
			latest = &history[i]
		}
	}
	return latest
}
