// Package memory provides in-memory implementations of the billing stores,
// used by tests and dev mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/invoice"
	"github.com/roomstay/billing-engine/utility"
)

// =============================================================================
// MEMORY STORE - Mutex-guarded maps, copy-on-read
// =============================================================================

// Store implements billing.TenancyStore, billing.HistoryLedger,
// invoice.Store and utility.BillStore.
type Store struct {
	mu        sync.RWMutex
	tenancies map[billing.TenancyID]billing.Tenancy
	history   map[billing.TenancyID][]billing.BillingRecord
	invoices  map[billing.InvoiceID]invoice.Invoice
	bills     map[string]utility.Bill
}

func New() *Store {
	return &Store{
		tenancies: make(map[billing.TenancyID]billing.Tenancy),
		history:   make(map[billing.TenancyID][]billing.BillingRecord),
		invoices:  make(map[billing.InvoiceID]invoice.Invoice),
		bills:     make(map[string]utility.Bill),
	}
}

// Interface checks
var (
	_ billing.TenancyStore  = (*Store)(nil)
	_ billing.HistoryLedger = (*Store)(nil)
	_ invoice.Store         = (*Store)(nil)
	_ utility.BillStore     = (*Store)(nil)
)

// =============================================================================
// TENANCY STORE
// =============================================================================

func (s *Store) GetTenancy(_ context.Context, id billing.TenancyID) (*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenancies[id]
	if !ok {
		return nil, billing.ErrTenancyNotFound
	}
	return &t, nil
}

func (s *Store) SaveTenancy(_ context.Context, t *billing.Tenancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenancies[t.ID] = *t
	return nil
}

func (s *Store) ListTenancies(_ context.Context) ([]*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*billing.Tenancy, 0, len(s.tenancies))
	for id := range s.tenancies {
		t := s.tenancies[id]
		result = append(result, &t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) AdvanceBillingDates(_ context.Context, id billing.TenancyID, expectedNext *billing.Date, next, billed billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenancies[id]
	if !ok {
		return billing.ErrTenancyNotFound
	}

	// The conditional check is the per-tenancy lock: a pass that read a
	// stale next billing date loses here.
	if !sameDate(t.NextBillingDate, expectedNext) {
		return billing.ErrConcurrentModification
	}

	t.NextBillingDate = &next
	t.LastBillingDate = &billed
	s.tenancies[id] = t
	return nil
}

func sameDate(a, b *billing.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// =============================================================================
// HISTORY LEDGER
// =============================================================================

func (s *Store) AppendRecord(_ context.Context, rec billing.BillingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.history[rec.TenancyID]
	// Insert in billing-date order.
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].BillingDate.After(rec.BillingDate)
	})
	recs = append(recs, billing.BillingRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	s.history[rec.TenancyID] = recs
	return nil
}

func (s *Store) Records(_ context.Context, id billing.TenancyID) ([]billing.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]billing.BillingRecord, len(s.history[id]))
	copy(result, s.history[id])
	return result, nil
}

func (s *Store) RecordsInRange(_ context.Context, id billing.TenancyID, from, to billing.Date) ([]billing.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []billing.BillingRecord
	for _, rec := range s.history[id] {
		if from.BeforeOrEqual(rec.BillingDate) && rec.BillingDate.BeforeOrEqual(to) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *Store) SetRecordStatus(_ context.Context, invoiceID billing.InvoiceID, status billing.RecordStatus, paidDate *billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tid, recs := range s.history {
		for i := range recs {
			if recs[i].InvoiceID == invoiceID {
				recs[i].Status = status
				recs[i].PaidDate = paidDate
				s.history[tid] = recs
				return nil
			}
		}
	}
	return billing.ErrInvoiceNotFound
}

// =============================================================================
// INVOICE STORE
// =============================================================================

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id billing.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, billing.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (s *Store) ListByTenancy(_ context.Context, id billing.TenancyID, from, to billing.Date) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for key := range s.invoices {
		inv := s.invoices[key]
		if inv.TenancyID != id {
			continue
		}
		if from.BeforeOrEqual(inv.IssuedAt) && inv.IssuedAt.BeforeOrEqual(to) {
			result = append(result, &inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IssuedAt.Before(result[j].IssuedAt) })
	return result, nil
}

func (s *Store) ListByStatus(_ context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for key := range s.invoices {
		inv := s.invoices[key]
		if inv.Status == status {
			result = append(result, &inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) Transition(_ context.Context, id billing.InvoiceID, to invoice.Status, allowed []invoice.Status, payment *invoice.PaymentInfo) (*invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, billing.ErrInvoiceNotFound
	}

	permitted := false
	for _, a := range allowed {
		if inv.Status == a {
			permitted = true
			break
		}
	}
	if !permitted {
		if inv.Status == invoice.StatusPaid && to == invoice.StatusPaid {
			return nil, billing.ErrAlreadyPaid
		}
		return nil, &billing.TransitionError{InvoiceID: id, From: string(inv.Status), To: string(to)}
	}

	inv.Status = to
	if payment != nil {
		p := *payment
		inv.Payment = &p
	}
	s.invoices[id] = inv
	return &inv, nil
}

func (s *Store) HighestSequence(_ context.Context, year int, month time.Month) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := 0
	for _, inv := range s.invoices {
		if inv.IssuedAt.Year() != year || inv.IssuedAt.Month() != month {
			continue
		}
		if seq := invoice.ParseSequence(inv.Number); seq > highest {
			highest = seq
		}
	}
	return highest, nil
}

func (s *Store) ExistsForMonth(_ context.Context, id billing.TenancyID, year int, month time.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.invoices {
		if inv.TenancyID == id &&
			inv.IssuedAt.Year() == year && inv.IssuedAt.Month() == month &&
			inv.Status != invoice.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// UTILITY BILL STORE
// =============================================================================

func (s *Store) CreateBill(_ context.Context, b *utility.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[b.ID] = *b
	return nil
}

func (s *Store) GetBill(_ context.Context, id string) (*utility.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[id]
	if !ok {
		return nil, billing.ErrBillNotFound
	}
	return &b, nil
}

func (s *Store) UpdateBill(_ context.Context, b *utility.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[b.ID]; !ok {
		return billing.ErrBillNotFound
	}
	s.bills[b.ID] = *b
	return nil
}

func (s *Store) ListByRoom(_ context.Context, roomID string) ([]*utility.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*utility.Bill
	for id := range s.bills {
		b := s.bills[id]
		if b.RoomID == roomID {
			result = append(result, &b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PeriodYear != result[j].PeriodYear {
			return result[i].PeriodYear > result[j].PeriodYear
		}
		return result[i].PeriodMonth > result[j].PeriodMonth
	})
	return result, nil
}

func (s *Store) ListUnpaid(_ context.Context) ([]*utility.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*utility.Bill
	for id := range s.bills {
		b := s.bills[id]
		if b.Status != utility.BillPaid {
			result = append(result, &b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
