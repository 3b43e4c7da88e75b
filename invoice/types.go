// Package invoice implements the invoice lifecycle: creation from composed
// charges, the status state machine, sequential numbering, and billing
// summaries. It builds on the billing package's calculators and stores.
package invoice

import (
	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// INVOICE
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// transitions is the legal state machine:
//   pending -> paid
//   pending -> overdue -> paid
//   pending | overdue -> cancelled
// paid and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Source records how an invoice was generated.
type Source string

const (
	SourceManual      Source = "manual"
	SourceBulk        Source = "bulk"
	SourceAnniversary Source = "anniversary"
	SourceProrated    Source = "prorated"
	SourceLifecycle   Source = "lifecycle"
)

// PaymentInfo is the settlement metadata recorded when an invoice is paid.
type PaymentInfo struct {
	Method         string
	Date           billing.Date
	TransactionRef string
}

type Invoice struct {
	ID        billing.InvoiceID
	Number    string // INV-{year}{month}-{sequence}
	TenancyID billing.TenancyID

	Amount  billing.Money
	Lines   []billing.LineItem
	DueDate billing.Date

	// Billing-period window the charges cover.
	PeriodStart billing.Date
	PeriodEnd   billing.Date

	IssuedAt billing.Date
	Status   Status
	Payment  *PaymentInfo

	Source Source
	// ChargeType is the dominant charge category, used by summary grouping.
	ChargeType billing.ChargeType

	Metadata map[string]string
}

// IsTerminal reports whether the invoice can no longer change status.
func (inv *Invoice) IsTerminal() bool {
	return inv.Status == StatusPaid || inv.Status == StatusCancelled
}

// IsOverdue reports whether an unpaid invoice has passed its due date.
// This is the lazy derivation: callers evaluate it on read, the bulk sweep
// persists it.
func (inv *Invoice) IsOverdue(asOf billing.Date) bool {
	return inv.Status == StatusPending && inv.DueDate.Before(asOf)
}
