/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tenancies:
    GET    /api/tenancies                      List all tenancies
    POST   /api/tenancies                      Create tenancy
    GET    /api/tenancies/{id}                 Get tenancy details
    GET    /api/tenancies/{id}/billing-status  Derived cycle state
    GET    /api/tenancies/{id}/charges/preview Composed charges, no invoice
    GET    /api/tenancies/{id}/history         Billing history ledger
    GET    /api/tenancies/{id}/invoices        Invoices in a date range
    GET    /api/tenancies/{id}/summary         Aggregated billing summary

  Invoices:
    POST   /api/invoices/generate              Run a billing pass
    GET    /api/invoices/{id}                  Get invoice
    POST   /api/invoices/{id}/pay              Settle invoice
    POST   /api/invoices/{id}/cancel           Void invoice

  Utility bills:
    POST   /api/utility-bills                  Create + compute bill
    GET    /api/utility-bills/{id}             Get bill (lazy overdue)
    POST   /api/utility-bills/{id}/pay         Settle bill
    GET    /api/rooms/{roomID}/utility-bills   Bills for a room

  Admin:
    POST   /api/admin/billing-run              Bulk anniversary pass
    POST   /api/admin/overdue-sweep            Persist overdue derivation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate period, invalid transition, lost race)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - seed.go: Demo data loader
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/factory"
	"github.com/roomstay/billing-engine/invoice"
	"github.com/roomstay/billing-engine/utility"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tenancies billing.TenancyStore
	History   billing.HistoryLedger
	Invoices  invoice.Store
	Bills     utility.BillStore
	Manager   *invoice.Manager
	Config    billing.Config
}

// NewHandler creates a new handler over the given stores.
func NewHandler(tenancies billing.TenancyStore, history billing.HistoryLedger, invoices invoice.Store, bills utility.BillStore, cfg billing.Config) *Handler {
	return &Handler{
		Tenancies: tenancies,
		History:   history,
		Invoices:  invoices,
		Bills:     bills,
		Manager:   invoice.NewManager(invoices, tenancies, history, cfg),
		Config:    cfg,
	}
}

// =============================================================================
// TENANCY HANDLERS
// =============================================================================

// ListTenancies returns all tenancies.
func (h *Handler) ListTenancies(w http.ResponseWriter, r *http.Request) {
	tenancies, err := h.Tenancies.ListTenancies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenancies", err)
		return
	}

	dtos := make([]TenancyDTO, len(tenancies))
	for i, t := range tenancies {
		dtos[i] = toTenancyDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTenancy returns a single tenancy.
func (h *Handler) GetTenancy(w http.ResponseWriter, r *http.Request) {
	id := billing.TenancyID(chi.URLParam(r, "id"))

	t, err := h.Tenancies.GetTenancy(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get tenancy", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenancyDTO(t))
}

// CreateTenancy creates or replaces a tenancy.
func (h *Handler) CreateTenancy(w http.ResponseWriter, r *http.Request) {
	var req CreateTenancyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "id and room_id are required", nil)
		return
	}

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_in format (use YYYY-MM-DD)", err)
		return
	}

	t := &billing.Tenancy{
		ID:         billing.TenancyID(req.ID),
		PropertyID: billing.PropertyID(req.PropertyID),
		RoomID:     req.RoomID,
		RoomType:   req.RoomType,
		CheckIn:    &checkIn,
		RentAmount: billing.NewMoney(req.RentAmount),
		Cycle:      billing.CycleMonthly,
		BillingDay: req.BillingDay,
		Proration:  billing.ProrationPolicy{Enabled: true, Mode: billing.ProrateDaily},
		Status:     billing.TenancyActive,
	}
	if req.Cycle != "" {
		t.Cycle = billing.CycleUnit(req.Cycle)
	}
	if req.ProrationMode != "" {
		t.Proration.Mode = billing.ProrationMode(req.ProrationMode)
	}
	if req.Status != "" {
		t.Status = billing.TenancyStatus(req.Status)
	}
	if req.CheckOut != "" {
		checkOut, err := parseDate(req.CheckOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid check_out format (use YYYY-MM-DD)", err)
			return
		}
		t.CheckOut = &checkOut
	}

	if err := h.Tenancies.SaveTenancy(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tenancy", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenancyDTO(t))
}

// GetBillingStatus returns the derived cycle state for a tenancy.
func (h *Handler) GetBillingStatus(w http.ResponseWriter, r *http.Request) {
	id := billing.TenancyID(chi.URLParam(r, "id"))
	asOf := asOfParam(r)

	t, err := h.Tenancies.GetTenancy(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get tenancy", err)
		return
	}

	dto := BillingStatusDTO{
		TenancyID: string(t.ID),
		State:     string(billing.BillingStatus(t, asOf, h.Config.DueSoonDays)),
		AsOf:      asOf.String(),
	}
	if next, err := billing.NextBillingDate(t, asOf); err == nil {
		dto.NextBillingDate = next.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// PreviewCharges composes the anniversary charge set without creating an
// invoice. Useful for showing a tenant what the next bill will look like.
func (h *Handler) PreviewCharges(w http.ResponseWriter, r *http.Request) {
	id := billing.TenancyID(chi.URLParam(r, "id"))
	asOf := asOfParam(r)
	ctx := r.Context()

	t, err := h.Tenancies.GetTenancy(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get tenancy", err)
		return
	}

	history, err := h.History.Records(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load billing history", err)
		return
	}

	result, err := h.Manager.Composer.ComposeAnniversaryCharges(t, history, asOf)
	if err != nil {
		writeDomainError(w, "Failed to compose charges", err)
		return
	}

	writeJSON(w, http.StatusOK, ChargePreviewDTO{
		TenancyID:   string(result.TenancyID),
		Lines:       toLineItemDTOs(result.Lines),
		Total:       result.Total.Float64(),
		PeriodStart: result.PeriodStart.String(),
		PeriodEnd:   result.PeriodEnd.String(),
		DueDate:     result.DueDate.String(),
		Metadata:    result.Metadata,
	})
}

// GetHistory returns the billing history ledger for a tenancy.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := billing.TenancyID(chi.URLParam(r, "id"))

	records, err := h.History.Records(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load billing history", err)
		return
	}

	dtos := make([]BillingRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListTenancyInvoices returns the tenancy's invoices in a date range.
// Defaults to the trailing twelve months.
func (h *Handler) ListTenancyInvoices(w http.ResponseWriter, r *http.Request) {
	id := billing.TenancyID(chi.URLParam(r, "id"))
	from, to, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range (use YYYY-MM-DD)", err)
		return
	}

	invoices, err := h.Invoices.ListByTenancy(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTOs(invoices))
}

// GetSummary returns the aggregated billing summary for a tenancy.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := billing.TenancyID(chi.URLParam(r, "id"))
	from, to, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Manager.BillingSummary(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// GenerateInvoice runs a billing pass: anniversary by default, prorated
// check-in/check-out when requested.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req GenerateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TenancyID == "" {
		writeError(w, http.StatusBadRequest, "tenancy_id is required", nil)
		return
	}

	asOf := billing.Today()
	if req.AsOf != "" {
		var err error
		asOf, err = parseDate(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
	}

	id := billing.TenancyID(req.TenancyID)
	var inv *invoice.Invoice
	var err error
	if req.Prorated {
		inv, err = h.Manager.GenerateProrated(r.Context(), id, req.Checkout, asOf)
	} else {
		inv, err = h.Manager.GenerateAnniversary(r.Context(), id, invoice.SourceManual, asOf)
	}
	if err != nil {
		writeDomainError(w, "Failed to generate invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	inv, err := h.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// PayInvoice settles an invoice.
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	var req PayInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required", nil)
		return
	}

	paidOn := billing.Today()
	if req.Date != "" {
		var err error
		paidOn, err = parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	inv, err := h.Manager.MarkPaid(r.Context(), id, invoice.PaymentInfo{
		Method:         req.Method,
		Date:           paidOn,
		TransactionRef: req.TransactionRef,
	})
	if err != nil {
		writeDomainError(w, "Failed to settle invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// CancelInvoice voids a pending or overdue invoice.
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	inv, err := h.Manager.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to cancel invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// =============================================================================
// UTILITY BILL HANDLERS
// =============================================================================

// CreateUtilityBill creates a utility bill and computes its amounts from
// the supplied rate plan.
func (h *Handler) CreateUtilityBill(w http.ResponseWriter, r *http.Request) {
	var req CreateUtilityBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "room_id is required", nil)
		return
	}

	plan, err := factory.FromRatePlanJSON(req.RatePlan)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate plan", err)
		return
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date format (use YYYY-MM-DD)", err)
		return
	}

	b := &utility.Bill{
		ID:          uuid.NewString(),
		RoomID:      req.RoomID,
		TenancyID:   billing.TenancyID(req.TenancyID),
		Type:        utility.BillType(req.Type),
		PeriodMonth: time.Month(req.PeriodMonth),
		PeriodYear:  req.PeriodYear,
		ManualUnits: decimal.NewFromFloat(req.ManualUnits),
		Rates:       plan.Rates,
		DueDate:     dueDate,
		Status:      utility.BillUnpaid,
		LateFee:     plan.LateFee,
	}
	if req.PreviousReading != nil {
		d := decimal.NewFromFloat(*req.PreviousReading)
		b.PreviousReading = &d
	}
	if req.CurrentReading != nil {
		d := decimal.NewFromFloat(*req.CurrentReading)
		b.CurrentReading = &d
	}

	utility.Compute(b)

	if err := h.Bills.CreateBill(r.Context(), b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUtilityBillDTO(b))
}

// GetUtilityBill returns a bill with its lazily derived status and the late
// fee it would carry today.
func (h *Handler) GetUtilityBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf := asOfParam(r)

	b, err := h.Bills.GetBill(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get bill", err)
		return
	}

	b.Status = utility.DeriveStatus(b, asOf)
	utility.ApplyLateFee(b, asOf)
	writeJSON(w, http.StatusOK, toUtilityBillDTO(b))
}

// PayUtilityBill settles a utility bill.
func (h *Handler) PayUtilityBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf := asOfParam(r)

	b, err := utility.MarkPaid(r.Context(), h.Bills, id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to settle bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toUtilityBillDTO(b))
}

// ListRoomUtilityBills returns all bills for a room.
func (h *Handler) ListRoomUtilityBills(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	bills, err := h.Bills.ListByRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}

	dtos := make([]UtilityBillDTO, len(bills))
	for i, b := range bills {
		dtos[i] = toUtilityBillDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunBilling generates anniversary invoices for every tenancy that is due.
// The per-month idempotency check makes repeated runs safe.
func (h *Handler) RunBilling(w http.ResponseWriter, r *http.Request) {
	asOf := asOfParam(r)
	ctx := r.Context()

	tenancies, err := h.Tenancies.ListTenancies(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenancies", err)
		return
	}

	result := BillingRunResultDTO{AsOf: asOf.String()}
	for _, t := range tenancies {
		if !t.IsBillable() || !billing.IsDue(t, asOf) {
			result.Skipped++
			continue
		}
		if _, err := h.Manager.GenerateAnniversary(ctx, t.ID, invoice.SourceBulk, asOf); err != nil {
			if billing.IsClientError(err) || billing.IsRetryable(err) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, string(t.ID)+": "+err.Error())
			continue
		}
		result.Generated++
	}
	writeJSON(w, http.StatusOK, result)
}

// SweepOverdue persists the lazy overdue derivation for invoices and
// utility bills in one pass.
func (h *Handler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	asOf := asOfParam(r)
	ctx := r.Context()

	moved, err := h.Manager.SweepOverdue(ctx, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Overdue sweep failed", err)
		return
	}

	billsMoved, err := utility.SweepOverdue(ctx, h.Bills, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Utility overdue sweep failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SweepResultDTO{Moved: moved + billsMoved, AsOf: asOf.String()})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (billing.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return billing.Date{}, err
	}
	return billing.DateOf(t), nil
}

// asOfParam reads the optional as_of query parameter, defaulting to today.
func asOfParam(r *http.Request) billing.Date {
	if s := r.URL.Query().Get("as_of"); s != "" {
		if d, err := parseDate(s); err == nil {
			return d
		}
	}
	return billing.Today()
}

// rangeParams reads from/to query parameters; the default window is the
// trailing twelve months.
func rangeParams(r *http.Request) (billing.Date, billing.Date, error) {
	to := billing.Today()
	from := to.AddMonths(-12)

	if s := r.URL.Query().Get("from"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return from, to, err
		}
		from = d
	}
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return from, to, err
		}
		to = d
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps typed domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, billing.ErrAlreadyPaid),
		errors.Is(err, billing.ErrInvalidTransition),
		errors.Is(err, billing.ErrDuplicateInvoicePeriod),
		errors.Is(err, billing.ErrConcurrentModification):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
