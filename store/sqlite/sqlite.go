/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (billing.TenancyStore,
  billing.HistoryLedger, invoice.Store, utility.BillStore) using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  billing.TenancyStore:  Tenancy records and billing-date advancement
  billing.HistoryLedger: Append-only billing history per tenancy
  invoice.Store:         Invoice persistence and status transitions
  utility.BillStore:     Metered utility bills

CONDITIONAL UPDATES:
  The two operations that race across billing passes are guarded at the
  SQL level rather than with in-process locks:
  - AdvanceBillingDates updates only while next_billing_date still holds
    the expected value (the per-tenancy lock)
  - Transition updates only while the stored invoice status is in the
    allowed set (the state-machine guard)
  The caller that loses either race gets a typed error and skips.

APPEND-ONLY HISTORY:
  billing_history rows are never deleted, and only the status mirror
  columns (status, paid_date) are ever updated. Amounts and dates are
  immutable once written.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/roomstay.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  mgr := invoice.NewManager(store, store, store, billing.DefaultConfig())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: TenancyStore and HistoryLedger definitions
  - invoice/store.go: Store definition
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/invoice"
	"github.com/roomstay/billing-engine/utility"
)

const dateLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ billing.TenancyStore  = (*Store)(nil)
	_ billing.HistoryLedger = (*Store)(nil)
	_ invoice.Store         = (*Store)(nil)
	_ utility.BillStore     = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tenancies (the billable occupancy records)
	CREATE TABLE IF NOT EXISTS tenancies (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		room_type TEXT NOT NULL DEFAULT '',
		check_in TEXT,
		check_out TEXT,
		rent_amount TEXT NOT NULL,
		cycle TEXT NOT NULL,
		billing_day INTEGER NOT NULL DEFAULT 0,
		next_billing_date TEXT,
		last_billing_date TEXT,
		proration_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		proration_mode TEXT NOT NULL DEFAULT 'daily',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tenancies_property
		ON tenancies(property_id);
	CREATE INDEX IF NOT EXISTS idx_tenancies_status
		ON tenancies(status);

	-- Hot path for the scheduler's due-tenancy scan
	CREATE INDEX IF NOT EXISTS idx_tenancies_next_billing
		ON tenancies(next_billing_date) WHERE next_billing_date IS NOT NULL;

	-- Invoices
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		tenancy_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		due_date TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_json TEXT,
		source TEXT NOT NULL,
		charge_type TEXT NOT NULL,
		metadata_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_tenancy_issued
		ON invoices(tenancy_id, issued_at);
	CREATE INDEX IF NOT EXISTS idx_invoices_status
		ON invoices(status);

	-- The per-month idempotency check scans by tenancy and issue month
	CREATE INDEX IF NOT EXISTS idx_invoices_tenancy_month
		ON invoices(tenancy_id, substr(issued_at, 1, 7));

	-- Billing history (append-only ledger)
	CREATE TABLE IF NOT EXISTS billing_history (
		id TEXT PRIMARY KEY,
		tenancy_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		billing_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		paid_date TEXT,
		status TEXT NOT NULL,
		charge_type TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_tenancy_date
		ON billing_history(tenancy_id, billing_date);
	CREATE INDEX IF NOT EXISTS idx_history_invoice
		ON billing_history(invoice_id) WHERE invoice_id != '';

	-- Utility bills (metered consumption)
	CREATE TABLE IF NOT EXISTS utility_bills (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		tenancy_id TEXT NOT NULL DEFAULT '',
		bill_type TEXT NOT NULL,
		period_month INTEGER NOT NULL,
		period_year INTEGER NOT NULL,
		previous_reading TEXT,
		current_reading TEXT,
		manual_units TEXT NOT NULL DEFAULT '0',
		rates_json TEXT NOT NULL,
		base_amount TEXT NOT NULL DEFAULT '0',
		tax_amount TEXT NOT NULL DEFAULT '0',
		additional_amount TEXT NOT NULL DEFAULT '0',
		total_amount TEXT NOT NULL DEFAULT '0',
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_date TEXT,
		late_fee_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_utility_bills_room
		ON utility_bills(room_id, period_year, period_month);
	CREATE INDEX IF NOT EXISTS idx_utility_bills_status
		ON utility_bills(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANCY STORE (billing.TenancyStore interface)
// =============================================================================

// SaveTenancy creates or replaces a tenancy record.
func (s *Store) SaveTenancy(ctx context.Context, t *billing.Tenancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenancies
		(id, property_id, room_id, room_type, check_in, check_out, rent_amount,
		 cycle, billing_day, next_billing_date, last_billing_date,
		 proration_enabled, proration_mode, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			room_id = excluded.room_id,
			room_type = excluded.room_type,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			rent_amount = excluded.rent_amount,
			cycle = excluded.cycle,
			billing_day = excluded.billing_day,
			next_billing_date = excluded.next_billing_date,
			last_billing_date = excluded.last_billing_date,
			proration_enabled = excluded.proration_enabled,
			proration_mode = excluded.proration_mode,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.PropertyID, t.RoomID, t.RoomType,
		nullDate(t.CheckIn), nullDate(t.CheckOut),
		t.RentAmount.Value.String(),
		string(t.Cycle), t.BillingDay,
		nullDate(t.NextBillingDate), nullDate(t.LastBillingDate),
		t.Proration.Enabled, string(t.Proration.Mode),
		string(t.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save tenancy: %w", err)
	}
	return nil
}

// GetTenancy retrieves a tenancy by ID.
func (s *Store) GetTenancy(ctx context.Context, id billing.TenancyID) (*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectTenancy+" WHERE id = ?", id)

	t, err := scanTenancy(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrTenancyNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTenancies returns all tenancies, any status.
func (s *Store) ListTenancies(ctx context.Context) ([]*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectTenancy+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenancies []*billing.Tenancy
	for rows.Next() {
		t, err := scanTenancy(rows)
		if err != nil {
			return nil, err
		}
		tenancies = append(tenancies, t)
	}
	return tenancies, rows.Err()
}

// AdvanceBillingDates persists a billing pass. The WHERE clause on the
// current next_billing_date is the per-tenancy lock: the pass that loses
// the race matches zero rows and gets ErrConcurrentModification.
func (s *Store) AdvanceBillingDates(ctx context.Context, id billing.TenancyID, expectedNext *billing.Date, next, billed billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// IS matches NULL = NULL, which plain = does not.
	query := `
		UPDATE tenancies
		SET next_billing_date = ?, last_billing_date = ?, updated_at = ?
		WHERE id = ? AND next_billing_date IS ?
	`

	res, err := s.db.ExecContext(ctx, query,
		next.Time.Format(dateLayout),
		billed.Time.Format(dateLayout),
		time.Now().UTC().Format(time.RFC3339),
		id, nullDate(expectedNext),
	)
	if err != nil {
		return fmt.Errorf("failed to advance billing dates: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var count int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM tenancies WHERE id = ?", id).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return billing.ErrTenancyNotFound
		}
		return billing.ErrConcurrentModification
	}
	return nil
}

const selectTenancy = `
	SELECT id, property_id, room_id, room_type, check_in, check_out,
	       rent_amount, cycle, billing_day, next_billing_date, last_billing_date,
	       proration_enabled, proration_mode, status
	FROM tenancies
`

type scannable interface {
	Scan(dest ...any) error
}

func scanTenancy(row scannable) (*billing.Tenancy, error) {
	var (
		t                   billing.Tenancy
		checkIn, checkOut   sql.NullString
		rentAmount          string
		cycle, mode, status string
		nextDate, lastDate  sql.NullString
	)

	err := row.Scan(
		&t.ID, &t.PropertyID, &t.RoomID, &t.RoomType,
		&checkIn, &checkOut, &rentAmount, &cycle, &t.BillingDay,
		&nextDate, &lastDate, &t.Proration.Enabled, &mode, &status,
	)
	if err != nil {
		return nil, err
	}

	t.RentAmount = billing.MustParseMoney(rentAmount)
	t.Cycle = billing.CycleUnit(cycle)
	t.Proration.Mode = billing.ProrationMode(mode)
	t.Status = billing.TenancyStatus(status)
	t.CheckIn = parseNullDate(checkIn)
	t.CheckOut = parseNullDate(checkOut)
	t.NextBillingDate = parseNullDate(nextDate)
	t.LastBillingDate = parseNullDate(lastDate)

	return &t, nil
}

// =============================================================================
// BILLING HISTORY (billing.HistoryLedger interface)
// =============================================================================

// AppendRecord appends one billing-history entry.
func (s *Store) AppendRecord(ctx context.Context, rec billing.BillingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO billing_history
		(id, tenancy_id, invoice_id, amount, billing_date, due_date, paid_date,
		 status, charge_type, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.TenancyID, rec.InvoiceID,
		rec.Amount.Value.String(),
		rec.BillingDate.Time.Format(dateLayout),
		rec.DueDate.Time.Format(dateLayout),
		nullDate(rec.PaidDate),
		string(rec.Status), string(rec.ChargeType), rec.Note,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append billing record: %w", err)
	}
	return nil
}

// Records returns the full history for a tenancy, oldest first.
func (s *Store) Records(ctx context.Context, id billing.TenancyID) ([]billing.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectHistory + `
		WHERE tenancy_id = ?
		ORDER BY billing_date ASC, created_at ASC
	`
	return s.queryRecords(ctx, query, id)
}

// RecordsInRange returns history entries with billing date in [from, to].
func (s *Store) RecordsInRange(ctx context.Context, id billing.TenancyID, from, to billing.Date) ([]billing.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectHistory + `
		WHERE tenancy_id = ? AND billing_date >= ? AND billing_date <= ?
		ORDER BY billing_date ASC, created_at ASC
	`
	return s.queryRecords(ctx, query, id,
		from.Time.Format(dateLayout), to.Time.Format(dateLayout))
}

// SetRecordStatus updates the status mirror of the entry linked to an
// invoice. Amounts and dates are never touched.
func (s *Store) SetRecordStatus(ctx context.Context, invoiceID billing.InvoiceID, status billing.RecordStatus, paidDate *billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE billing_history SET status = ?, paid_date = ? WHERE invoice_id = ?",
		string(status), nullDate(paidDate), invoiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record status: %w", err)
	}
	return nil
}

const selectHistory = `
	SELECT id, tenancy_id, invoice_id, amount, billing_date, due_date,
	       paid_date, status, charge_type, note
	FROM billing_history
`

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]billing.BillingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query billing history: %w", err)
	}
	defer rows.Close()

	var records []billing.BillingRecord
	for rows.Next() {
		var (
			rec                 billing.BillingRecord
			amount, billed, due string
			paid                sql.NullString
			status, chargeType  string
			note                sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.TenancyID, &rec.InvoiceID, &amount,
			&billed, &due, &paid, &status, &chargeType, &note); err != nil {
			return nil, err
		}
		rec.Amount = billing.MustParseMoney(amount)
		rec.BillingDate = mustParseDate(billed)
		rec.DueDate = mustParseDate(due)
		rec.PaidDate = parseNullDate(paid)
		rec.Status = billing.RecordStatus(status)
		rec.ChargeType = billing.ChargeType(chargeType)
		rec.Note = note.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// INVOICE STORE (invoice.Store interface)
// =============================================================================

// CreateInvoice persists a new invoice.
func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linesJSON, err := json.Marshal(inv.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}
	metadataJSON, _ := json.Marshal(inv.Metadata)

	var paymentJSON any
	if inv.Payment != nil {
		b, err := json.Marshal(inv.Payment)
		if err != nil {
			return fmt.Errorf("failed to encode payment info: %w", err)
		}
		paymentJSON = string(b)
	}

	query := `
		INSERT INTO invoices
		(id, number, tenancy_id, amount, lines_json, due_date, period_start,
		 period_end, issued_at, status, payment_json, source, charge_type,
		 metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		inv.ID, inv.Number, inv.TenancyID,
		inv.Amount.Value.String(),
		string(linesJSON),
		inv.DueDate.Time.Format(dateLayout),
		inv.PeriodStart.Time.Format(dateLayout),
		inv.PeriodEnd.Time.Format(dateLayout),
		inv.IssuedAt.Time.Format(dateLayout),
		string(inv.Status), paymentJSON,
		string(inv.Source), string(inv.ChargeType),
		string(metadataJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID.
func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getInvoice(ctx, id)
}

func (s *Store) getInvoice(ctx context.Context, id billing.InvoiceID) (*invoice.Invoice, error) {
	row := s.db.QueryRowContext(ctx, selectInvoice+" WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListByTenancy returns the tenancy's invoices issued in [from, to].
func (s *Store) ListByTenancy(ctx context.Context, id billing.TenancyID, from, to billing.Date) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectInvoice + `
		WHERE tenancy_id = ? AND issued_at >= ? AND issued_at <= ?
		ORDER BY issued_at ASC, number ASC
	`
	return s.queryInvoices(ctx, query, id,
		from.Time.Format(dateLayout), to.Time.Format(dateLayout))
}

// ListByStatus returns all invoices currently in the given status.
func (s *Store) ListByStatus(ctx context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectInvoice + `
		WHERE status = ?
		ORDER BY issued_at ASC, number ASC
	`
	return s.queryInvoices(ctx, query, string(status))
}

// Transition atomically moves an invoice to a new status. The WHERE clause
// on the current status is the state-machine guard: a concurrent settle or
// cancel that got there first leaves this update matching zero rows.
func (s *Store) Transition(ctx context.Context, id billing.InvoiceID, to invoice.Status, allowed []invoice.Status, payment *invoice.PaymentInfo) (*invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "UPDATE invoices SET status = ?"
	args := []any{string(to)}

	if payment != nil {
		b, err := json.Marshal(payment)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payment info: %w", err)
		}
		query += ", payment_json = ?"
		args = append(args, string(b))
	}

	query += " WHERE id = ? AND status IN ("
	args = append(args, id)
	for i, st := range allowed {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, string(st))
	}
	query += ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to transition invoice: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Distinguish a missing invoice from a disallowed transition.
		if _, err := s.getInvoice(ctx, id); err != nil {
			return nil, err
		}
		return nil, billing.ErrInvalidTransition
	}

	return s.getInvoice(ctx, id)
}

// HighestSequence returns the largest invoice-number sequence issued in the
// given calendar month, 0 when none.
func (s *Store) HighestSequence(ctx context.Context, year int, month time.Month) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Numbers are INV-YYYYMM-SSSS; the sequence starts at offset 12.
	prefix := fmt.Sprintf("INV-%04d%02d-", year, month)
	var max int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(substr(number, 12) AS INTEGER)), 0)
		 FROM invoices WHERE number LIKE ? || '%'`, prefix,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query invoice sequence: %w", err)
	}
	return max, nil
}

// ExistsForMonth reports whether the tenancy already has a non-cancelled
// invoice issued in the given calendar month.
func (s *Store) ExistsForMonth(ctx context.Context, id billing.TenancyID, year int, month time.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monthPrefix := fmt.Sprintf("%04d-%02d", year, month)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices
		 WHERE tenancy_id = ? AND status != ? AND substr(issued_at, 1, 7) = ?`,
		id, string(invoice.StatusCancelled), monthPrefix,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const selectInvoice = `
	SELECT id, number, tenancy_id, amount, lines_json, due_date, period_start,
	       period_end, issued_at, status, payment_json, source, charge_type,
	       metadata_json
	FROM invoices
`

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]*invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row scannable) (*invoice.Invoice, error) {
	var (
		inv                        invoice.Invoice
		amount, linesJSON          string
		due, start, end, issued    string
		status, source, chargeType string
		paymentJSON, metadataJSON  sql.NullString
	)

	err := row.Scan(
		&inv.ID, &inv.Number, &inv.TenancyID, &amount, &linesJSON,
		&due, &start, &end, &issued, &status,
		&paymentJSON, &source, &chargeType, &metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	inv.Amount = billing.MustParseMoney(amount)
	inv.DueDate = mustParseDate(due)
	inv.PeriodStart = mustParseDate(start)
	inv.PeriodEnd = mustParseDate(end)
	inv.IssuedAt = mustParseDate(issued)
	inv.Status = invoice.Status(status)
	inv.Source = invoice.Source(source)
	inv.ChargeType = billing.ChargeType(chargeType)

	if err := json.Unmarshal([]byte(linesJSON), &inv.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode line items: %w", err)
	}
	if paymentJSON.Valid && paymentJSON.String != "" {
		var p invoice.PaymentInfo
		if err := json.Unmarshal([]byte(paymentJSON.String), &p); err != nil {
			return nil, fmt.Errorf("failed to decode payment info: %w", err)
		}
		inv.Payment = &p
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		json.Unmarshal([]byte(metadataJSON.String), &inv.Metadata)
	}

	return &inv, nil
}

// =============================================================================
// UTILITY BILL STORE (utility.BillStore interface)
// =============================================================================

// CreateBill persists a new utility bill.
func (s *Store) CreateBill(ctx context.Context, b *utility.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO utility_bills
		(id, room_id, tenancy_id, bill_type, period_month, period_year,
		 previous_reading, current_reading, manual_units, rates_json,
		 base_amount, tax_amount, additional_amount, total_amount,
		 due_date, status, paid_date, late_fee_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.RoomID, b.TenancyID, string(b.Type),
		int(b.PeriodMonth), b.PeriodYear,
		nullDecimal(b.PreviousReading), nullDecimal(b.CurrentReading),
		b.ManualUnits.String(), mustJSON(b.Rates),
		b.BaseAmount.Value.String(), b.TaxAmount.Value.String(),
		b.AdditionalAmount.Value.String(), b.TotalAmount.Value.String(),
		b.DueDate.Time.Format(dateLayout), string(b.Status),
		nullDate(b.PaidDate), mustJSON(b.LateFee),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// UpdateBill replaces a stored bill (recompute, late fee, settlement).
func (s *Store) UpdateBill(ctx context.Context, b *utility.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE utility_bills SET
			room_id = ?, tenancy_id = ?, bill_type = ?, period_month = ?,
			period_year = ?, previous_reading = ?, current_reading = ?,
			manual_units = ?, rates_json = ?, base_amount = ?, tax_amount = ?,
			additional_amount = ?, total_amount = ?, due_date = ?, status = ?,
			paid_date = ?, late_fee_json = ?, updated_at = ?
		WHERE id = ?`,
		b.RoomID, b.TenancyID, string(b.Type), int(b.PeriodMonth), b.PeriodYear,
		nullDecimal(b.PreviousReading), nullDecimal(b.CurrentReading),
		b.ManualUnits.String(), mustJSON(b.Rates),
		b.BaseAmount.Value.String(), b.TaxAmount.Value.String(),
		b.AdditionalAmount.Value.String(), b.TotalAmount.Value.String(),
		b.DueDate.Time.Format(dateLayout), string(b.Status),
		nullDate(b.PaidDate), mustJSON(b.LateFee),
		time.Now().UTC().Format(time.RFC3339),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrBillNotFound
	}
	return nil
}

// GetBill retrieves a utility bill by ID.
func (s *Store) GetBill(ctx context.Context, id string) (*utility.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectBill+" WHERE id = ?", id)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListByRoom returns all bills for a room, newest period first.
func (s *Store) ListByRoom(ctx context.Context, roomID string) ([]*utility.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectBill + `
		WHERE room_id = ?
		ORDER BY period_year DESC, period_month DESC
	`
	return s.queryBills(ctx, query, roomID)
}

// ListUnpaid returns all bills not yet settled.
func (s *Store) ListUnpaid(ctx context.Context) ([]*utility.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectBill + `
		WHERE status != ?
		ORDER BY due_date ASC
	`
	return s.queryBills(ctx, query, string(utility.BillPaid))
}

const selectBill = `
	SELECT id, room_id, tenancy_id, bill_type, period_month, period_year,
	       previous_reading, current_reading, manual_units, rates_json,
	       base_amount, tax_amount, additional_amount, total_amount,
	       due_date, status, paid_date, late_fee_json
	FROM utility_bills
`

func (s *Store) queryBills(ctx context.Context, query string, args ...any) ([]*utility.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []*utility.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func scanBill(row scannable) (*utility.Bill, error) {
	var (
		b                            utility.Bill
		billType, status             string
		prevReading, currReading     sql.NullString
		manualUnits, ratesJSON       string
		base, tax, additional, total string
		due                          string
		paidDate, lateFeeJSON        sql.NullString
		periodMonth                  int
	)

	err := row.Scan(
		&b.ID, &b.RoomID, &b.TenancyID, &billType, &periodMonth, &b.PeriodYear,
		&prevReading, &currReading, &manualUnits, &ratesJSON,
		&base, &tax, &additional, &total,
		&due, &status, &paidDate, &lateFeeJSON,
	)
	if err != nil {
		return nil, err
	}

	b.Type = utility.BillType(billType)
	b.PeriodMonth = time.Month(periodMonth)
	b.PreviousReading = parseNullDecimal(prevReading)
	b.CurrentReading = parseNullDecimal(currReading)
	b.ManualUnits, _ = decimal.NewFromString(manualUnits)
	b.BaseAmount = billing.MustParseMoney(base)
	b.TaxAmount = billing.MustParseMoney(tax)
	b.AdditionalAmount = billing.MustParseMoney(additional)
	b.TotalAmount = billing.MustParseMoney(total)
	b.DueDate = mustParseDate(due)
	b.Status = utility.BillStatus(status)
	b.PaidDate = parseNullDate(paidDate)

	if err := json.Unmarshal([]byte(ratesJSON), &b.Rates); err != nil {
		return nil, fmt.Errorf("failed to decode rate structure: %w", err)
	}
	if lateFeeJSON.Valid && lateFeeJSON.String != "" {
		if err := json.Unmarshal([]byte(lateFeeJSON.String), &b.LateFee); err != nil {
			return nil, fmt.Errorf("failed to decode late fee: %w", err)
		}
	}

	return &b, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"billing_history", "invoices", "utility_bills", "tenancies"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullDate(d *billing.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time.Format(dateLayout)
}

func parseNullDate(s sql.NullString) *billing.Date {
	if !s.Valid || s.String == "" {
		return nil
	}
	d := mustParseDate(s.String)
	return &d
}

func mustParseDate(s string) billing.Date {
	t, _ := time.Parse(dateLayout, s)
	return billing.DateOf(t)
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
