/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Tenancy:
    TenancyDTO, CreateTenancyRequest, BillingStatusDTO

  Invoice:
    InvoiceDTO, LineItemDTO, GenerateInvoiceRequest, PayInvoiceRequest,
    SummaryDTO

  Utility:
    UtilityBillDTO, CreateUtilityBillRequest

  History:
    BillingRecordDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rateplan.go: RatePlanJSON type
*/
package api

import (
	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/factory"
	"github.com/roomstay/billing-engine/invoice"
	"github.com/roomstay/billing-engine/utility"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TenancyDTO represents a tenancy in API responses.
type TenancyDTO struct {
	ID              string  `json:"id"`
	PropertyID      string  `json:"property_id"`
	RoomID          string  `json:"room_id"`
	RoomType        string  `json:"room_type,omitempty"`
	CheckIn         string  `json:"check_in,omitempty"`
	CheckOut        string  `json:"check_out,omitempty"`
	RentAmount      float64 `json:"rent_amount"`
	Cycle           string  `json:"cycle"`
	BillingDay      int     `json:"billing_day,omitempty"`
	NextBillingDate string  `json:"next_billing_date,omitempty"`
	LastBillingDate string  `json:"last_billing_date,omitempty"`
	ProrationMode   string  `json:"proration_mode"`
	Status          string  `json:"status"`
}

// CreateTenancyRequest is the request to create or replace a tenancy.
type CreateTenancyRequest struct {
	ID            string  `json:"id"`
	PropertyID    string  `json:"property_id"`
	RoomID        string  `json:"room_id"`
	RoomType      string  `json:"room_type,omitempty"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out,omitempty"`
	RentAmount    float64 `json:"rent_amount"`
	Cycle         string  `json:"cycle,omitempty"`
	BillingDay    int     `json:"billing_day,omitempty"`
	ProrationMode string  `json:"proration_mode,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// BillingStatusDTO is the derived cycle state for a tenancy.
type BillingStatusDTO struct {
	TenancyID       string `json:"tenancy_id"`
	State           string `json:"state"`
	NextBillingDate string `json:"next_billing_date,omitempty"`
	AsOf            string `json:"as_of"`
}

// LineItemDTO represents one charge line on an invoice or preview.
type LineItemDTO struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
}

// ChargePreviewDTO is the composed charge set before invoice creation.
type ChargePreviewDTO struct {
	TenancyID   string            `json:"tenancy_id"`
	Lines       []LineItemDTO     `json:"lines"`
	Total       float64           `json:"total"`
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	DueDate     string            `json:"due_date"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID          string            `json:"id"`
	Number      string            `json:"number"`
	TenancyID   string            `json:"tenancy_id"`
	Amount      float64           `json:"amount"`
	Lines       []LineItemDTO     `json:"lines"`
	DueDate     string            `json:"due_date"`
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	IssuedAt    string            `json:"issued_at"`
	Status      string            `json:"status"`
	Source      string            `json:"source"`
	ChargeType  string            `json:"charge_type"`
	Payment     *PaymentDTO       `json:"payment,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PaymentDTO records how an invoice was settled.
type PaymentDTO struct {
	Method         string `json:"method"`
	Date           string `json:"date"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

// GenerateInvoiceRequest triggers a billing pass for one tenancy.
type GenerateInvoiceRequest struct {
	TenancyID string `json:"tenancy_id"`
	// Prorated requests a partial-period invoice instead of anniversary.
	Prorated bool   `json:"prorated,omitempty"`
	Checkout bool   `json:"checkout,omitempty"`
	AsOf     string `json:"as_of,omitempty"`
}

// PayInvoiceRequest settles an invoice.
type PayInvoiceRequest struct {
	Method         string `json:"method"`
	Date           string `json:"date,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

// SummaryDTO is the aggregated billing summary for a tenancy.
type SummaryDTO struct {
	TenancyID     string         `json:"tenancy_id"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	TotalAmount   float64        `json:"total_amount"`
	PaidAmount    float64        `json:"paid_amount"`
	PendingAmount float64        `json:"pending_amount"`
	OverdueAmount float64        `json:"overdue_amount"`
	InvoiceCount  int            `json:"invoice_count"`
	CountsByType  map[string]int `json:"counts_by_type"`
	AverageAmount float64        `json:"average_amount"`
	CompletionPct int64          `json:"completion_pct"`
}

// BillingRecordDTO is one history ledger entry.
type BillingRecordDTO struct {
	ID          string  `json:"id"`
	TenancyID   string  `json:"tenancy_id"`
	InvoiceID   string  `json:"invoice_id,omitempty"`
	Amount      float64 `json:"amount"`
	BillingDate string  `json:"billing_date"`
	DueDate     string  `json:"due_date"`
	PaidDate    string  `json:"paid_date,omitempty"`
	Status      string  `json:"status"`
	ChargeType  string  `json:"charge_type"`
	Note        string  `json:"note,omitempty"`
}

// UtilityBillDTO represents a metered utility bill.
type UtilityBillDTO struct {
	ID               string  `json:"id"`
	RoomID           string  `json:"room_id"`
	TenancyID        string  `json:"tenancy_id,omitempty"`
	Type             string  `json:"type"`
	PeriodMonth      int     `json:"period_month"`
	PeriodYear       int     `json:"period_year"`
	UnitsConsumed    float64 `json:"units_consumed"`
	BaseAmount       float64 `json:"base_amount"`
	TaxAmount        float64 `json:"tax_amount"`
	AdditionalAmount float64 `json:"additional_amount"`
	TotalAmount      float64 `json:"total_amount"`
	LateFeeAmount    float64 `json:"late_fee_amount,omitempty"`
	AmountDue        float64 `json:"amount_due"`
	DueDate          string  `json:"due_date"`
	Status           string  `json:"status"`
	PaidDate         string  `json:"paid_date,omitempty"`
}

// CreateUtilityBillRequest creates and computes a utility bill.
type CreateUtilityBillRequest struct {
	RoomID          string               `json:"room_id"`
	TenancyID       string               `json:"tenancy_id,omitempty"`
	Type            string               `json:"type"`
	PeriodMonth     int                  `json:"period_month"`
	PeriodYear      int                  `json:"period_year"`
	PreviousReading *float64             `json:"previous_reading,omitempty"`
	CurrentReading  *float64             `json:"current_reading,omitempty"`
	ManualUnits     float64              `json:"manual_units,omitempty"`
	RatePlan        factory.RatePlanJSON `json:"rate_plan"`
	DueDate         string               `json:"due_date"`
}

// SweepResultDTO reports the outcome of a bulk pass.
type SweepResultDTO struct {
	Moved int    `json:"moved"`
	AsOf  string `json:"as_of"`
}

// BillingRunResultDTO reports the outcome of a bulk billing run.
type BillingRunResultDTO struct {
	Generated int      `json:"generated"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
	AsOf      string   `json:"as_of"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTenancyDTO(t *billing.Tenancy) TenancyDTO {
	dto := TenancyDTO{
		ID:            string(t.ID),
		PropertyID:    string(t.PropertyID),
		RoomID:        t.RoomID,
		RoomType:      t.RoomType,
		RentAmount:    t.RentAmount.Float64(),
		Cycle:         string(t.Cycle),
		BillingDay:    t.BillingDay,
		ProrationMode: string(t.Proration.Mode),
		Status:        string(t.Status),
	}
	if t.CheckIn != nil {
		dto.CheckIn = t.CheckIn.String()
	}
	if t.CheckOut != nil {
		dto.CheckOut = t.CheckOut.String()
	}
	if t.NextBillingDate != nil {
		dto.NextBillingDate = t.NextBillingDate.String()
	}
	if t.LastBillingDate != nil {
		dto.LastBillingDate = t.LastBillingDate.String()
	}
	return dto
}

func toLineItemDTOs(lines []billing.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(lines))
	for i, l := range lines {
		dtos[i] = LineItemDTO{
			Description: l.Description,
			Amount:      l.Amount.Float64(),
			Type:        string(l.Type),
		}
	}
	return dtos
}

func toInvoiceDTO(inv *invoice.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:          string(inv.ID),
		Number:      inv.Number,
		TenancyID:   string(inv.TenancyID),
		Amount:      inv.Amount.Float64(),
		Lines:       toLineItemDTOs(inv.Lines),
		DueDate:     inv.DueDate.String(),
		PeriodStart: inv.PeriodStart.String(),
		PeriodEnd:   inv.PeriodEnd.String(),
		IssuedAt:    inv.IssuedAt.String(),
		Status:      string(inv.Status),
		Source:      string(inv.Source),
		ChargeType:  string(inv.ChargeType),
		Metadata:    inv.Metadata,
	}
	if inv.Payment != nil {
		dto.Payment = &PaymentDTO{
			Method:         inv.Payment.Method,
			Date:           inv.Payment.Date.String(),
			TransactionRef: inv.Payment.TransactionRef,
		}
	}
	return dto
}

func toInvoiceDTOs(invoices []*invoice.Invoice) []InvoiceDTO {
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	return dtos
}

func toRecordDTO(rec billing.BillingRecord) BillingRecordDTO {
	dto := BillingRecordDTO{
		ID:          rec.ID,
		TenancyID:   string(rec.TenancyID),
		InvoiceID:   string(rec.InvoiceID),
		Amount:      rec.Amount.Float64(),
		BillingDate: rec.BillingDate.String(),
		DueDate:     rec.DueDate.String(),
		Status:      string(rec.Status),
		ChargeType:  string(rec.ChargeType),
		Note:        rec.Note,
	}
	if rec.PaidDate != nil {
		dto.PaidDate = rec.PaidDate.String()
	}
	return dto
}

func toUtilityBillDTO(b *utility.Bill) UtilityBillDTO {
	units, _ := utility.UnitsConsumed(b).Float64()
	dto := UtilityBillDTO{
		ID:               b.ID,
		RoomID:           b.RoomID,
		TenancyID:        string(b.TenancyID),
		Type:             string(b.Type),
		PeriodMonth:      int(b.PeriodMonth),
		PeriodYear:       b.PeriodYear,
		UnitsConsumed:    units,
		BaseAmount:       b.BaseAmount.Float64(),
		TaxAmount:        b.TaxAmount.Float64(),
		AdditionalAmount: b.AdditionalAmount.Float64(),
		TotalAmount:      b.TotalAmount.Float64(),
		LateFeeAmount:    b.LateFee.ComputedAmount.Float64(),
		AmountDue:        utility.AmountDue(b).Float64(),
		DueDate:          b.DueDate.String(),
		Status:           string(b.Status),
	}
	if b.PaidDate != nil {
		dto.PaidDate = b.PaidDate.String()
	}
	return dto
}

func toSummaryDTO(s invoice.Summary) SummaryDTO {
	counts := make(map[string]int, len(s.CountsByType))
	for t, n := range s.CountsByType {
		counts[string(t)] = n
	}
	return SummaryDTO{
		TenancyID:     string(s.TenancyID),
		From:          s.From.String(),
		To:            s.To.String(),
		TotalAmount:   s.TotalAmount.Float64(),
		PaidAmount:    s.PaidAmount.Float64(),
		PendingAmount: s.PendingAmount.Float64(),
		OverdueAmount: s.OverdueAmount.Float64(),
		InvoiceCount:  s.InvoiceCount,
		CountsByType:  counts,
		AverageAmount: s.AverageAmount.Float64(),
		CompletionPct: s.CompletionPct,
	}
}
