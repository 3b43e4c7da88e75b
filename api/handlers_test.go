/*
handlers_test.go - Unit tests for API handlers

Tests the HTTP surface end to end against the in-memory store: tenancy
creation, billing passes, invoice settlement, utility bills, and the
domain-error to HTTP-status mapping.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/factory"
	"github.com/roomstay/billing-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store := memory.New()
	handler := NewHandler(store, store, store, store, billing.DefaultConfig())
	return handler, NewRouter(handler)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func seedAPITenancy(t *testing.T, h *Handler, id string, checkIn billing.Date, rent float64) {
	t.Helper()
	in := checkIn
	err := h.Tenancies.SaveTenancy(context.Background(), &billing.Tenancy{
		ID:         billing.TenancyID(id),
		PropertyID: "p-1",
		RoomID:     "r-" + id,
		CheckIn:    &in,
		RentAmount: billing.NewMoney(rent),
		Cycle:      billing.CycleMonthly,
		Proration:  billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateDaily},
		Status:     billing.TenancyActive,
	})
	if err != nil {
		t.Fatalf("failed to seed tenancy: %v", err)
	}
}

// =============================================================================
// TENANCY ENDPOINTS
// =============================================================================

func TestCreateTenancy_RoundTrip(t *testing.T) {
	// GIVEN: A create request with explicit billing day
	// WHEN: POSTing and then fetching the tenancy
	// THEN: The stored record matches, with the documented defaults filled in
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tenancies", CreateTenancyRequest{
		ID:         "t-1",
		PropertyID: "p-1",
		RoomID:     "r-101",
		CheckIn:    "2025-06-15",
		RentAmount: 9000,
		BillingDay: 15,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[TenancyDTO](t, doJSON(t, router, http.MethodGet, "/api/tenancies/t-1", nil))
	if got.RentAmount != 9000 {
		t.Errorf("rent_amount = %v, want 9000", got.RentAmount)
	}
	if got.Cycle != "monthly" {
		t.Errorf("cycle default = %q, want monthly", got.Cycle)
	}
	if got.ProrationMode != "daily" {
		t.Errorf("proration_mode default = %q, want daily", got.ProrationMode)
	}
	if got.Status != "active" {
		t.Errorf("status default = %q, want active", got.Status)
	}
}

func TestCreateTenancy_Validation(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tenancies", CreateTenancyRequest{RoomID: "r-101"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/tenancies", CreateTenancyRequest{
		ID: "t-1", RoomID: "r-101", CheckIn: "15/06/2025",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestGetTenancy_NotFound(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/tenancies/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetBillingStatus(t *testing.T) {
	// GIVEN: A tenancy with no billing history
	// WHEN: Asking for billing status as of a fixed date
	// THEN: not_set state with the computed next anniversary
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.June, 15), 9000)

	got := decodeBody[BillingStatusDTO](t, doJSON(t, router, http.MethodGet,
		"/api/tenancies/t-1/billing-status?as_of=2025-06-20", nil))

	if got.State != "not_set" {
		t.Errorf("state = %q, want not_set", got.State)
	}
	if got.NextBillingDate != "2025-07-15" {
		t.Errorf("next_billing_date = %q, want 2025-07-15", got.NextBillingDate)
	}
}

func TestPreviewCharges_DoesNotPersist(t *testing.T) {
	// GIVEN: A billable tenancy
	// WHEN: Previewing charges
	// THEN: The composed lines come back but no invoice is created
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.June, 15), 9000)

	preview := decodeBody[ChargePreviewDTO](t, doJSON(t, router, http.MethodGet,
		"/api/tenancies/t-1/charges/preview?as_of=2025-06-20", nil))
	if preview.Total != 9000 {
		t.Errorf("preview total = %v, want 9000", preview.Total)
	}

	invoices := decodeBody[[]InvoiceDTO](t, doJSON(t, router, http.MethodGet,
		"/api/tenancies/t-1/invoices?from=2025-01-01&to=2025-12-31", nil))
	if len(invoices) != 0 {
		t.Errorf("preview must not create invoices, found %d", len(invoices))
	}
}

// =============================================================================
// INVOICE ENDPOINTS
// =============================================================================

func TestGenerateAndPayInvoice(t *testing.T) {
	// GIVEN: A billable tenancy
	// WHEN: Generating an invoice, paying it, then paying again
	// THEN: 201, then 200 with payment metadata, then 409
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.March, 15), 9000)

	rec := doJSON(t, router, http.MethodPost, "/api/invoices/generate", GenerateInvoiceRequest{
		TenancyID: "t-1", AsOf: "2025-06-20",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d, body %s", rec.Code, rec.Body.String())
	}
	inv := decodeBody[InvoiceDTO](t, rec)
	if inv.Number != "INV-202506-0001" {
		t.Errorf("number = %q, want INV-202506-0001", inv.Number)
	}
	if inv.Status != "pending" {
		t.Errorf("status = %q, want pending", inv.Status)
	}

	payPath := fmt.Sprintf("/api/invoices/%s/pay", inv.ID)
	rec = doJSON(t, router, http.MethodPost, payPath, PayInvoiceRequest{
		Method: "upi", Date: "2025-06-22", TransactionRef: "txn-001",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay status = %d, body %s", rec.Code, rec.Body.String())
	}
	paid := decodeBody[InvoiceDTO](t, rec)
	if paid.Status != "paid" || paid.Payment == nil || paid.Payment.TransactionRef != "txn-001" {
		t.Errorf("unexpected paid invoice: %+v", paid)
	}

	rec = doJSON(t, router, http.MethodPost, payPath, PayInvoiceRequest{Method: "cash"})
	if rec.Code != http.StatusConflict {
		t.Errorf("double pay status = %d, want 409", rec.Code)
	}
}

func TestGenerateInvoice_DuplicateMonthConflicts(t *testing.T) {
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.March, 15), 9000)

	req := GenerateInvoiceRequest{TenancyID: "t-1", AsOf: "2025-06-20"}
	if rec := doJSON(t, router, http.MethodPost, "/api/invoices/generate", req); rec.Code != http.StatusCreated {
		t.Fatalf("first generate status = %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/invoices/generate", req); rec.Code != http.StatusConflict {
		t.Errorf("duplicate generate status = %d, want 409", rec.Code)
	}
}

func TestGenerateProratedInvoice(t *testing.T) {
	// GIVEN: A mid-month check-in on June 21
	// WHEN: Requesting a prorated invoice
	// THEN: 10 days at the daily rate = 3000
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.June, 21), 9000)

	rec := doJSON(t, router, http.MethodPost, "/api/invoices/generate", GenerateInvoiceRequest{
		TenancyID: "t-1", Prorated: true, AsOf: "2025-06-21",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d, body %s", rec.Code, rec.Body.String())
	}
	inv := decodeBody[InvoiceDTO](t, rec)
	if inv.Amount != 3000 {
		t.Errorf("prorated amount = %v, want 3000", inv.Amount)
	}
	if inv.Source != "prorated" {
		t.Errorf("source = %q, want prorated", inv.Source)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	// GIVEN: One paid and one pending invoice
	// WHEN: Fetching the summary
	// THEN: Totals partition by status and completion is a whole percent
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.March, 15), 9000)

	first := decodeBody[InvoiceDTO](t, doJSON(t, router, http.MethodPost, "/api/invoices/generate",
		GenerateInvoiceRequest{TenancyID: "t-1", AsOf: "2025-05-20"}))
	// Paid after the due date so the June pass composes no early-payment
	// discount and both invoices stay at 9000.
	doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/invoices/%s/pay", first.ID),
		PayInvoiceRequest{Method: "upi", Date: "2025-06-23"})
	doJSON(t, router, http.MethodPost, "/api/invoices/generate",
		GenerateInvoiceRequest{TenancyID: "t-1", AsOf: "2025-06-20"})

	got := decodeBody[SummaryDTO](t, doJSON(t, router, http.MethodGet,
		"/api/tenancies/t-1/summary?from=2025-01-01&to=2025-12-31", nil))

	if got.InvoiceCount != 2 {
		t.Fatalf("invoice_count = %d, want 2", got.InvoiceCount)
	}
	if got.PaidAmount+got.PendingAmount+got.OverdueAmount != got.TotalAmount {
		t.Errorf("status partition broken: %+v", got)
	}
	if got.CompletionPct != 50 {
		t.Errorf("completion_pct = %d, want 50", got.CompletionPct)
	}
}

// =============================================================================
// UTILITY BILL ENDPOINTS
// =============================================================================

func utilityBillRequest() CreateUtilityBillRequest {
	prev, curr := 1200.0, 1350.0
	return CreateUtilityBillRequest{
		RoomID:          "r-101",
		Type:            "electricity",
		PeriodMonth:     6,
		PeriodYear:      2025,
		PreviousReading: &prev,
		CurrentReading:  &curr,
		RatePlan: mustRatePlanJSON(`{
			"slabs": [
				{"up_to": 100, "rate": 5},
				{"up_to": 200, "rate": 7},
				{"up_to": 0,   "rate": 9}
			],
			"fixed_charge": 50,
			"gov_tax_pct": 5,
			"service_tax_pct": 2,
			"late_fee": {"applicable": true, "basis": "daily_rate", "daily_rate": 10}
		}`),
		DueDate: "2025-06-25",
	}
}

func TestCreateUtilityBill_ComputesBreakdown(t *testing.T) {
	// GIVEN: Readings 1200 -> 1350 on the slab tariff
	// WHEN: Creating the bill
	// THEN: base 900 (850 + 50 fixed), tax 63, total 963
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/utility-bills", utilityBillRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	bill := decodeBody[UtilityBillDTO](t, rec)

	if bill.UnitsConsumed != 150 {
		t.Errorf("units_consumed = %v, want 150", bill.UnitsConsumed)
	}
	if bill.BaseAmount != 900 {
		t.Errorf("base_amount = %v, want 900", bill.BaseAmount)
	}
	if bill.TaxAmount != 63 {
		t.Errorf("tax_amount = %v, want 63", bill.TaxAmount)
	}
	if bill.TotalAmount != 963 {
		t.Errorf("total_amount = %v, want 963", bill.TotalAmount)
	}
}

func TestGetUtilityBill_LazyOverdueWithLateFee(t *testing.T) {
	// GIVEN: A bill due June 25
	// WHEN: Reading it as of July 10 (15 days overdue at 10/day)
	// THEN: Status overdue, late fee 150, amount_due includes it
	_, router := newTestServer(t)

	created := decodeBody[UtilityBillDTO](t, doJSON(t, router, http.MethodPost, "/api/utility-bills", utilityBillRequest()))

	got := decodeBody[UtilityBillDTO](t, doJSON(t, router, http.MethodGet,
		"/api/utility-bills/"+created.ID+"?as_of=2025-07-10", nil))

	if got.Status != "overdue" {
		t.Errorf("status = %q, want overdue", got.Status)
	}
	if got.LateFeeAmount != 150 {
		t.Errorf("late_fee_amount = %v, want 150", got.LateFeeAmount)
	}
	if got.AmountDue != got.TotalAmount+150 {
		t.Errorf("amount_due = %v, want total + late fee", got.AmountDue)
	}
}

func TestPayUtilityBill_Twice(t *testing.T) {
	_, router := newTestServer(t)

	created := decodeBody[UtilityBillDTO](t, doJSON(t, router, http.MethodPost, "/api/utility-bills", utilityBillRequest()))
	payPath := "/api/utility-bills/" + created.ID + "/pay?as_of=2025-06-20"

	if rec := doJSON(t, router, http.MethodPost, payPath, nil); rec.Code != http.StatusOK {
		t.Fatalf("pay status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, router, http.MethodPost, payPath, nil); rec.Code != http.StatusConflict {
		t.Errorf("double pay status = %d, want 409", rec.Code)
	}
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func TestRunBilling_BulkPass(t *testing.T) {
	// GIVEN: One due tenancy, one not yet due, one terminated
	// WHEN: Running the bulk billing pass twice
	// THEN: First run generates one invoice; second run generates none
	h, router := newTestServer(t)
	ctx := context.Background()

	seedAPITenancy(t, h, "t-due", billing.NewDate(2025, time.March, 15), 9000)
	due := billing.NewDate(2025, time.June, 15)
	ten, _ := h.Tenancies.GetTenancy(ctx, "t-due")
	ten.NextBillingDate = &due
	if err := h.Tenancies.SaveTenancy(ctx, ten); err != nil {
		t.Fatal(err)
	}

	seedAPITenancy(t, h, "t-future", billing.NewDate(2025, time.March, 15), 7500)
	future := billing.NewDate(2025, time.July, 15)
	ten, _ = h.Tenancies.GetTenancy(ctx, "t-future")
	ten.NextBillingDate = &future
	if err := h.Tenancies.SaveTenancy(ctx, ten); err != nil {
		t.Fatal(err)
	}

	seedAPITenancy(t, h, "t-gone", billing.NewDate(2024, time.March, 1), 6000)
	ten, _ = h.Tenancies.GetTenancy(ctx, "t-gone")
	ten.Status = billing.TenancyTerminated
	if err := h.Tenancies.SaveTenancy(ctx, ten); err != nil {
		t.Fatal(err)
	}

	first := decodeBody[BillingRunResultDTO](t, doJSON(t, router, http.MethodPost,
		"/api/admin/billing-run?as_of=2025-06-20", nil))
	if first.Generated != 1 || first.Skipped != 2 {
		t.Errorf("first run: generated=%d skipped=%d, want 1/2", first.Generated, first.Skipped)
	}

	second := decodeBody[BillingRunResultDTO](t, doJSON(t, router, http.MethodPost,
		"/api/admin/billing-run?as_of=2025-06-21", nil))
	if second.Generated != 0 {
		t.Errorf("second run must be idempotent, generated=%d", second.Generated)
	}
}

func TestSweepOverdue_Endpoint(t *testing.T) {
	// GIVEN: An invoice past its due date
	// WHEN: Sweeping
	// THEN: One record moves and the invoice reads back overdue
	h, router := newTestServer(t)
	seedAPITenancy(t, h, "t-1", billing.NewDate(2025, time.March, 15), 9000)

	inv := decodeBody[InvoiceDTO](t, doJSON(t, router, http.MethodPost, "/api/invoices/generate",
		GenerateInvoiceRequest{TenancyID: "t-1", AsOf: "2025-06-10"}))

	swept := decodeBody[SweepResultDTO](t, doJSON(t, router, http.MethodPost,
		"/api/admin/overdue-sweep?as_of=2025-07-01", nil))
	if swept.Moved != 1 {
		t.Errorf("moved = %d, want 1", swept.Moved)
	}

	got := decodeBody[InvoiceDTO](t, doJSON(t, router, http.MethodGet, "/api/invoices/"+inv.ID, nil))
	if got.Status != "overdue" {
		t.Errorf("status = %q, want overdue", got.Status)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func mustRatePlanJSON(s string) factory.RatePlanJSON {
	var rj factory.RatePlanJSON
	if err := json.Unmarshal([]byte(s), &rj); err != nil {
		panic(err)
	}
	return rj
}
