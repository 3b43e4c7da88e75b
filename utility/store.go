package utility

import (
	"context"

	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// UTILITY BILL STORE
// =============================================================================

// BillStore persists utility bills. Updates are whole-record replacements
// scoped to a single bill; the breakdown stored is always the latest
// Compute output for the stored inputs.
type BillStore interface {
	// CreateBill persists a new bill.
	CreateBill(ctx context.Context, b *Bill) error

	// GetBill returns the bill or billing.ErrBillNotFound.
	GetBill(ctx context.Context, id string) (*Bill, error)

	// UpdateBill replaces the stored bill.
	UpdateBill(ctx context.Context, b *Bill) error

	// ListByRoom returns a room's bills, newest period first.
	ListByRoom(ctx context.Context, roomID string) ([]*Bill, error)

	// ListUnpaid returns every bill not yet paid, for the overdue sweep.
	ListUnpaid(ctx context.Context) ([]*Bill, error)
}

// SweepOverdue persists the lazy overdue derivation in bulk: every unpaid
// bill past its due date is marked overdue and its late fee accrued.
// Returns the number of bills updated.
func SweepOverdue(ctx context.Context, store BillStore, asOf billing.Date) (int, error) {
	bills, err := store.ListUnpaid(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, b := range bills {
		status := DeriveStatus(b, asOf)
		if status != BillOverdue {
			continue
		}
		b.Status = BillOverdue
		ApplyLateFee(b, asOf)
		if err := store.UpdateBill(ctx, b); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// MarkPaid settles a utility bill. Repeated settlement fails with
// billing.ErrAlreadyPaid; the first settlement's date is untouched.
func MarkPaid(ctx context.Context, store BillStore, id string, paidOn billing.Date) (*Bill, error) {
	b, err := store.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == BillPaid {
		return nil, billing.ErrAlreadyPaid
	}
	b.Status = BillPaid
	b.PaidDate = &paidOn
	if err := store.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
