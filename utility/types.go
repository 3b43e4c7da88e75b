// Package utility implements metered utility billing: meter-reading
// consumption, tiered (slab) rate computation with fixed charges and taxes,
// and late-fee accrual. Bills are recomputed deterministically from their
// inputs; the stored breakdown is never trusted over a recompute.
package utility

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
)

// =============================================================================
// UTILITY BILL
// =============================================================================

type BillType string

const (
	TypeElectricity BillType = "electricity"
	TypeWater       BillType = "water"
	TypeGas         BillType = "gas"
	TypeInternet    BillType = "internet"
)

type BillStatus string

const (
	BillUnpaid  BillStatus = "unpaid"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

type Bill struct {
	ID        string
	RoomID    string
	TenancyID billing.TenancyID
	Type      BillType

	// Billing period the consumption covers.
	PeriodMonth time.Month
	PeriodYear  int

	// Meter readings; nil when the provider supplies units directly.
	PreviousReading *decimal.Decimal
	CurrentReading  *decimal.Decimal
	// ManualUnits is the fallback consumption when readings are absent.
	ManualUnits decimal.Decimal

	Rates RateStructure

	// Computed breakdown, stored separately for auditability.
	BaseAmount       billing.Money
	TaxAmount        billing.Money
	AdditionalAmount billing.Money
	TotalAmount      billing.Money

	DueDate  billing.Date
	Status   BillStatus
	PaidDate *billing.Date

	LateFee LateFee
}

// =============================================================================
// RATE STRUCTURE
// =============================================================================

// Slab is one tier of a tiered rate: units up to UpTo (cumulative) are
// charged at Rate per unit. UpTo == 0 marks an unbounded final slab.
type Slab struct {
	UpTo int64
	Rate billing.Money
}

// OtherCharge is a named extra: either a fixed amount or a percentage of
// the base amount, and optionally a discount (subtracted instead of added).
type OtherCharge struct {
	Name       string
	Amount     billing.Money // fixed; ignored when Percent > 0
	Percent    float64       // of base amount
	IsDiscount bool
}

// RateStructure converts consumed units into a priced breakdown.
type RateStructure struct {
	// BaseRate is the flat per-unit rate, used when no slabs are defined.
	BaseRate billing.Money

	// Slabs, in ascending UpTo order. When present they replace BaseRate.
	Slabs []Slab

	// FixedCharge is added to the base amount regardless of consumption
	// (meter rent, service charge).
	FixedCharge billing.Money

	// Tax percentages applied on the base amount.
	GovTaxPct     float64
	ServiceTaxPct float64

	OtherCharges []OtherCharge
}

// =============================================================================
// LATE FEE
// =============================================================================

type LateFeeBasis string

const (
	LateFeeFixed      LateFeeBasis = "fixed"
	LateFeePercentage LateFeeBasis = "percentage"
	LateFeeDailyRate  LateFeeBasis = "daily_rate"
)

// LateFee is the accrual sub-record on a bill: the configured structure
// plus the last computed amount and when it was computed.
type LateFee struct {
	Applicable bool
	Basis      LateFeeBasis

	FixedAmount billing.Money // fixed basis
	Percent     float64       // percentage basis, of the bill total
	DailyRate   billing.Money // daily_rate basis, per overdue day

	ComputedAmount billing.Money
	ComputedOn     *billing.Date
}
