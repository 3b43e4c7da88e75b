package invoice

import (
	"context"
	"time"

	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// INVOICE STORE - Persistence contract for invoices
// =============================================================================

// Store persists invoices. Status changes go through Transition, which is an
// atomic read-modify-write scoped to a single invoice record - the engine
// requires no multi-record transactions.
type Store interface {
	// CreateInvoice persists a new invoice.
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// GetInvoice returns the invoice or billing.ErrInvoiceNotFound.
	GetInvoice(ctx context.Context, id billing.InvoiceID) (*Invoice, error)

	// ListByTenancy returns the tenancy's invoices issued in [from, to],
	// oldest first.
	ListByTenancy(ctx context.Context, id billing.TenancyID, from, to billing.Date) ([]*Invoice, error)

	// ListByStatus returns all invoices currently in the given status.
	// Used by the bulk overdue sweep.
	ListByStatus(ctx context.Context, status Status) ([]*Invoice, error)

	// Transition atomically moves an invoice to a new status, recording
	// payment metadata when settling. The update applies only while the
	// stored status is in allowed; otherwise billing.ErrInvalidTransition
	// is returned and the record is untouched.
	Transition(ctx context.Context, id billing.InvoiceID, to Status, allowed []Status, payment *PaymentInfo) (*Invoice, error)

	// HighestSequence returns the largest invoice-number sequence issued in
	// the given calendar month, 0 when none.
	HighestSequence(ctx context.Context, year int, month time.Month) (int, error)

	// ExistsForMonth reports whether the tenancy already has a non-cancelled
	// invoice issued in the given calendar month. This backs the billing
	// pass idempotency check.
	ExistsForMonth(ctx context.Context, id billing.TenancyID, year int, month time.Month) (bool, error)
}
