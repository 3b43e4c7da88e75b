/*
store.go - Persistence interfaces for tenancies and billing history

PURPOSE:
  Defines the contract between the billing core and the persistence layer.
  The core never touches a database: it asks a TenancyStore for the record,
  computes, and hands the results back. Implementations live in
  store/memory (tests, dev) and store/sqlite (production).

PER-TENANCY LOCK:
  Two billing passes must not interleave for the same tenancy. The engine
  does not hold in-process locks for this; instead AdvanceBillingDates is a
  conditional update keyed on the tenancy id and its current next billing
  date. The pass that loses the race gets ErrConcurrentModification and
  skips - the winner has already billed the period.

BILLING HISTORY:
  The ledger is append-only per tenancy. Entries are appended by the
  invoice lifecycle manager on every billing pass; settlement and the bulk
  overdue sweep update only the status mirror, never amounts or dates.
*/
package billing

import "context"

// =============================================================================
// TENANCY STORE
// =============================================================================

type TenancyStore interface {
	// GetTenancy returns the tenancy or ErrTenancyNotFound.
	GetTenancy(ctx context.Context, id TenancyID) (*Tenancy, error)

	// SaveTenancy creates or replaces a tenancy record.
	SaveTenancy(ctx context.Context, t *Tenancy) error

	// ListTenancies returns all tenancies, any status.
	ListTenancies(ctx context.Context) ([]*Tenancy, error)

	// AdvanceBillingDates persists a billing pass: sets NextBillingDate to
	// next and LastBillingDate to billed, but only when the stored next
	// billing date still equals expectedNext (nil matches a never-billed
	// tenancy). Returns ErrConcurrentModification when another pass advanced
	// the cycle first. This conditional update is the per-tenancy lock.
	AdvanceBillingDates(ctx context.Context, id TenancyID, expectedNext *Date, next, billed Date) error
}

// =============================================================================
// BILLING HISTORY LEDGER
// =============================================================================

type HistoryLedger interface {
	// AppendRecord appends one billing-history entry. Entries are never
	// rewritten; corrections happen on the linked invoice.
	AppendRecord(ctx context.Context, rec BillingRecord) error

	// Records returns the full history for a tenancy, oldest first.
	Records(ctx context.Context, id TenancyID) ([]BillingRecord, error)

	// RecordsInRange returns history entries with billing date in [from, to].
	RecordsInRange(ctx context.Context, id TenancyID, from, to Date) ([]BillingRecord, error)

	// SetRecordStatus updates the status mirror of the entry linked to an
	// invoice (settlement, overdue sweep). Amounts and dates are immutable.
	SetRecordStatus(ctx context.Context, invoiceID InvoiceID, status RecordStatus, paidDate *Date) error
}
