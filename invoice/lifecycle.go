/*
lifecycle.go - Invoice creation and status transitions

PURPOSE:
  The Manager is the only way invoices come into existence or change
  status. It owns the billing pass orchestration described in the system
  overview: check whether the tenancy is due, compose charges, persist the
  invoice, append the billing-history record, and advance the cycle.

STATE MACHINE:
  pending -> paid
  pending -> overdue -> paid
  pending | overdue -> cancelled

  overdue is entered by the bulk sweep when a due date passes, never forced
  during creation. paid and cancelled are terminal; a second MarkPaid fails
  with ErrAlreadyPaid and leaves the first settlement untouched.

IDEMPOTENCY:
  A billing pass is idempotent per calendar month: when a non-cancelled
  invoice already exists for the tenancy in the issue month, the pass stops
  with ErrDuplicateInvoicePeriod before touching anything. Concurrent
  passes for the same tenancy are serialized by the conditional cycle
  advance in the tenancy store: the advance is taken BEFORE the invoice is
  inserted, so only the pass that wins it writes an invoice; the loser
  fails with ErrConcurrentModification having written nothing.

ERROR HANDLING:
  All failures return to the caller before any mutation where possible; the
  manager never retries internally. The cross-record sequence is ordered
  cycle advance, then invoice insert, then history append; a crash inside
  it leaves no duplicate, and the stored next billing date always reflects
  the last pass that won the advance.
*/
package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roomstay/billing-engine/billing"
)

// Manager drives invoice lifecycle operations against the stores.
type Manager struct {
	Invoices  Store
	Tenancies billing.TenancyStore
	History   billing.HistoryLedger
	Composer  *billing.Composer
}

func NewManager(invoices Store, tenancies billing.TenancyStore, history billing.HistoryLedger, cfg billing.Config) *Manager {
	return &Manager{
		Invoices:  invoices,
		Tenancies: tenancies,
		History:   history,
		Composer:  billing.NewComposer(cfg),
	}
}

// =============================================================================
// CREATION
// =============================================================================

// CreateInvoice persists a pending invoice from a composed charge result and
// appends the billing-history record on the originating tenancy. The invoice
// amount is the composer's total; the line items travel with it.
func (m *Manager) CreateInvoice(ctx context.Context, t *billing.Tenancy, result billing.ChargeResult, source Source, asOf billing.Date) (*Invoice, error) {
	exists, err := m.Invoices.ExistsForMonth(ctx, t.ID, asOf.Year(), asOf.Month())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, billing.ErrDuplicateInvoicePeriod
	}

	seq, err := m.Invoices.HighestSequence(ctx, asOf.Year(), asOf.Month())
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:          billing.InvoiceID(uuid.NewString()),
		Number:      FormatNumber(asOf.Year(), asOf.Month(), seq+1),
		TenancyID:   t.ID,
		Amount:      result.Total,
		Lines:       result.Lines,
		DueDate:     result.DueDate,
		PeriodStart: result.PeriodStart,
		PeriodEnd:   result.PeriodEnd,
		IssuedAt:    asOf,
		Status:      StatusPending,
		Source:      source,
		ChargeType:  dominantChargeType(result.Lines),
		Metadata:    result.Metadata,
	}

	if err := m.Invoices.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	rec := billing.BillingRecord{
		ID:          uuid.NewString(),
		TenancyID:   t.ID,
		InvoiceID:   inv.ID,
		Amount:      inv.Amount,
		BillingDate: asOf,
		DueDate:     inv.DueDate,
		Status:      billing.RecordPending,
		ChargeType:  inv.ChargeType,
		Note:        generationNote(source, inv),
	}
	if err := m.History.AppendRecord(ctx, rec); err != nil {
		return nil, err
	}

	return inv, nil
}

// GenerateAnniversary runs a full anniversary billing pass for a tenancy:
// duplicate check, charge composition against the history ledger, the
// conditional cycle advance that serves as the per-tenancy lock, and only
// then invoice creation. The advance comes before the insert so that of two
// racing passes exactly one reaches CreateInvoice; the loser fails the
// conditional update and writes nothing.
func (m *Manager) GenerateAnniversary(ctx context.Context, id billing.TenancyID, source Source, asOf billing.Date) (*Invoice, error) {
	t, err := m.Tenancies.GetTenancy(ctx, id)
	if err != nil {
		return nil, err
	}

	// Retried same-month passes stop here, before touching the cycle dates.
	exists, err := m.Invoices.ExistsForMonth(ctx, t.ID, asOf.Year(), asOf.Month())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, billing.ErrDuplicateInvoicePeriod
	}

	history, err := m.History.Records(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := m.Composer.ComposeAnniversaryCharges(t, history, asOf)
	if err != nil {
		return nil, err
	}

	next, err := billing.NextBillingDate(t, asOf)
	if err != nil {
		return nil, err
	}

	if err := m.Tenancies.AdvanceBillingDates(ctx, t.ID, t.NextBillingDate, next, asOf); err != nil {
		return nil, err
	}

	return m.CreateInvoice(ctx, t, result, source, asOf)
}

// GenerateProrated creates a prorated invoice for a mid-cycle check-in or
// check-out, for tenancies whose proration policy allows it. The invoice
// period is the prorated occupancy range; the due date is the issue date
// plus the configured payment term.
func (m *Manager) GenerateProrated(ctx context.Context, id billing.TenancyID, checkout bool, asOf billing.Date) (*Invoice, error) {
	t, err := m.Tenancies.GetTenancy(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Proration.Enabled {
		return nil, fmt.Errorf("tenancy %s: %w", t.ID, billing.ErrProrationDisabled)
	}

	var res billing.ProrationResult
	if checkout {
		res, err = billing.CheckOutProration(t)
	} else {
		res, err = billing.CheckInProration(t)
	}
	if err != nil {
		return nil, err
	}

	meta := res.Metadata()
	meta["generated"] = string(SourceProrated)

	result := billing.ChargeResult{
		TenancyID:   t.ID,
		Lines:       []billing.LineItem{res.Line},
		Total:       billing.SumLines([]billing.LineItem{res.Line}).FloorZero(),
		PeriodStart: res.Start,
		PeriodEnd:   res.End,
		DueDate:     asOf.AddDays(m.Composer.Config.PaymentTermDays),
		Metadata:    meta,
	}
	return m.CreateInvoice(ctx, t, result, SourceProrated, asOf)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// MarkPaid settles an invoice, recording method, date and transaction
// reference. A repeated settlement fails with ErrAlreadyPaid; the stored
// payment metadata from the first call is unchanged by the second attempt.
func (m *Manager) MarkPaid(ctx context.Context, id billing.InvoiceID, p PaymentInfo) (*Invoice, error) {
	current, err := m.Invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusPaid {
		return nil, &billing.TransitionError{InvoiceID: id, From: string(StatusPaid), To: string(StatusPaid)}
	}
	if !CanTransition(current.Status, StatusPaid) {
		return nil, &billing.TransitionError{InvoiceID: id, From: string(current.Status), To: string(StatusPaid)}
	}

	inv, err := m.Invoices.Transition(ctx, id, StatusPaid, []Status{StatusPending, StatusOverdue}, &p)
	if err != nil {
		return nil, err
	}

	paid := p.Date
	if err := m.History.SetRecordStatus(ctx, id, billing.RecordPaid, &paid); err != nil {
		return nil, err
	}
	return inv, nil
}

// Cancel voids a pending or overdue invoice. Paid invoices cannot be
// cancelled; cancelled is terminal.
func (m *Manager) Cancel(ctx context.Context, id billing.InvoiceID) (*Invoice, error) {
	current, err := m.Invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, StatusCancelled) {
		return nil, &billing.TransitionError{InvoiceID: id, From: string(current.Status), To: string(StatusCancelled)}
	}
	return m.Invoices.Transition(ctx, id, StatusCancelled, []Status{StatusPending, StatusOverdue}, nil)
}

// SweepOverdue is the bulk pass that persists the lazy overdue derivation:
// every pending invoice whose due date has passed moves to overdue, and its
// history record mirrors the status. Returns the number of invoices moved.
func (m *Manager) SweepOverdue(ctx context.Context, asOf billing.Date) (int, error) {
	pending, err := m.Invoices.ListByStatus(ctx, StatusPending)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, inv := range pending {
		if !inv.IsOverdue(asOf) {
			continue
		}
		if _, err := m.Invoices.Transition(ctx, inv.ID, StatusOverdue, []Status{StatusPending}, nil); err != nil {
			// Lost a race with a settlement; the invoice is no longer pending.
			if billing.IsClientError(err) {
				continue
			}
			return moved, err
		}
		if err := m.History.SetRecordStatus(ctx, inv.ID, billing.RecordOverdue, nil); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// dominantChargeType picks the summary grouping category: the first
// non-adjustment line's type, falling back to rent.
func dominantChargeType(lines []billing.LineItem) billing.ChargeType {
	for _, l := range lines {
		if l.Type != billing.ChargeDiscount && l.Type != billing.ChargePenalty {
			return l.Type
		}
	}
	return billing.ChargeRent
}

func generationNote(source Source, inv *Invoice) string {
	switch source {
	case SourceAnniversary:
		return fmt.Sprintf("Anniversary billing for %s to %s", inv.PeriodStart, inv.PeriodEnd)
	case SourceProrated:
		return "Prorated billing for partial occupancy period"
	case SourceBulk:
		return "Generated by bulk billing run"
	case SourceLifecycle:
		return "Generated by tenancy lifecycle event"
	default:
		return "Manually generated invoice"
	}
}
