/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages (invoice, utility) and the store implementations wrap
  these with additional context.

ERROR CATEGORIES:
  1. Anchor errors - tenancy is missing the data billing needs
  2. Lifecycle errors - illegal invoice state transitions
  3. Store errors - persistence conflicts and missing records

USAGE:
  Callers classify with errors.Is():

    if errors.Is(err, billing.ErrAlreadyPaid) {
        // double settlement attempt, surface 409
    }

SEE ALSO:
  - cycle.go, proration.go, compose.go: return anchor/range errors
  - invoice/lifecycle.go: returns lifecycle errors
  - store/sqlite, billing/store: return store errors
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingBillingAnchor is returned when a tenancy has no check-in date
	// or no positive rent amount. Billing for that tenancy is unrecoverable
	// until the record is corrected.
	ErrMissingBillingAnchor = errors.New("missing billing anchor")

	// ErrInvalidProrationRange is returned when a proration range is missing
	// a date or has end before start.
	ErrInvalidProrationRange = errors.New("invalid proration range")

	// ErrProrationDisabled is returned when a prorated invoice is requested
	// for a tenancy whose proration policy is switched off.
	ErrProrationDisabled = errors.New("proration disabled for tenancy")

	// ErrAlreadyPaid is returned on an attempted double settlement.
	ErrAlreadyPaid = errors.New("invoice already paid")

	// ErrInvalidTransition is returned for any other illegal invoice state
	// transition (e.g. paying a cancelled invoice).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateInvoicePeriod is returned when an invoice already exists
	// for the tenancy in the current calendar month. This is expected
	// behavior for retried billing passes.
	ErrDuplicateInvoicePeriod = errors.New("invoice already exists for billing period")

	// ErrConcurrentModification is returned when the conditional tenancy
	// update detects that another billing pass advanced the cycle first.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrTenancyNotFound is returned when a referenced tenancy doesn't exist.
	ErrTenancyNotFound = errors.New("tenancy not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrBillNotFound is returned when a referenced utility bill doesn't exist.
	ErrBillNotFound = errors.New("utility bill not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AnchorError reports which anchor field is missing on a tenancy.
type AnchorError struct {
	TenancyID TenancyID
	Field     string // "check_in_date" or "rent_amount"
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("tenancy %s has no %s; cannot bill", e.TenancyID, e.Field)
}

func (e *AnchorError) Unwrap() error { return ErrMissingBillingAnchor }

// ProrationRangeError reports the offending range.
type ProrationRangeError struct {
	TenancyID TenancyID
	Start     *Date
	End       *Date
}

func (e *ProrationRangeError) Error() string {
	if e.Start == nil || e.End == nil {
		return fmt.Sprintf("proration for tenancy %s is missing a range date", e.TenancyID)
	}
	return fmt.Sprintf("proration range inverted: %s after %s", e.Start, e.End)
}

func (e *ProrationRangeError) Unwrap() error { return ErrInvalidProrationRange }

// TransitionError reports an illegal invoice status change.
type TransitionError struct {
	InvoiceID InvoiceID
	From      string
	To        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invoice %s: cannot transition %s -> %s", e.InvoiceID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	if e.From == "paid" && e.To == "paid" {
		return ErrAlreadyPaid
	}
	return ErrInvalidTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingBillingAnchor) ||
		errors.Is(err, ErrInvalidProrationRange) ||
		errors.Is(err, ErrProrationDisabled) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateInvoicePeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenancyNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrBillNotFound)
}
