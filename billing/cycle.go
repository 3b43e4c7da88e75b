/*
cycle.go - Billing cycle advancement and status classification

PURPOSE:
  Answers two questions for a tenancy: "when is the next bill due?" and
  "is it due now?". Advancement is anniversary-based: the next billing date
  keeps the tenancy's anchor day-of-month, clamped to month length when the
  target month is shorter.

MUTATION:
  NextBillingDate computes and returns the new date; it never mutates the
  tenancy. The caller persists the advance (with the conditional update in
  the store, so two billing passes cannot both advance the same tenancy).
*/
package billing

// =============================================================================
// BILLING STATUS - Pure classification over persisted fields
// =============================================================================

type BillingState string

const (
	BillingNotSet  BillingState = "not_set"
	BillingCurrent BillingState = "current"
	BillingDueSoon BillingState = "due_soon"
	BillingOverdue BillingState = "overdue"
)

// NextBillingDate computes the tenancy's next anniversary billing date.
//
// Starting from the current NextBillingDate (or the check-in date when the
// cycle has never advanced), it adds one cycle unit (monthly +1, quarterly
// +3, yearly +12 months) re-anchored to the anniversary day with month-end
// clamping. A candidate that is not strictly after asOf advances by further
// cycle units until it is, so the returned date is always in the future.
func NextBillingDate(t *Tenancy, asOf Date) (Date, error) {
	if t.CheckIn == nil {
		return Date{}, &AnchorError{TenancyID: t.ID, Field: "check_in_date"}
	}

	base := *t.CheckIn
	if t.NextBillingDate != nil {
		base = *t.NextBillingDate
	}

	anchor := t.AnchorDay()
	next := AddCycle(base, t.Cycle, anchor)
	for !next.After(asOf) {
		next = AddCycle(next, t.Cycle, anchor)
	}
	return next, nil
}

// BillingStatus classifies a tenancy's billing state as of a date:
// not_set when no next billing date exists, overdue when it has passed,
// due_soon when it falls within the configured window, otherwise current.
func BillingStatus(t *Tenancy, asOf Date, dueSoonDays int) BillingState {
	if t.NextBillingDate == nil {
		return BillingNotSet
	}
	next := *t.NextBillingDate
	switch {
	case next.Before(asOf):
		return BillingOverdue
	case next.BeforeOrEqual(asOf.AddDays(dueSoonDays)):
		return BillingDueSoon
	default:
		return BillingCurrent
	}
}

// IsDue reports whether the tenancy should be billed now: a next billing
// date exists and is not in the future.
func IsDue(t *Tenancy, asOf Date) bool {
	return t.NextBillingDate != nil && !t.NextBillingDate.After(asOf)
}
