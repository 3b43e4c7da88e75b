/*
Package billing provides the core rent billing engine.

PURPOSE:
  This package contains the domain types and pure calculators for recurring
  rent billing: anniversary cycle advancement, partial-period proration, and
  multi-line charge composition with discounts and penalties. It performs no
  I/O of its own - callers load the tenancy and its billing history, invoke
  the calculators, and persist the results.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal
  - LineItem: One priced entry in a charge composition
  - Adjustment: A signed discount (negative) or penalty (positive)
  - ChargeResult: The full output of a composition pass
  - Tenancy/Invoice IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: calculators are functions over explicit inputs, safe to run
     concurrently for different tenancies
  2. Precision: decimal.Decimal for every amount, never float arithmetic
  3. Auditability: every computed amount carries the rates and counts used
  4. Floor-at-zero: totals never go negative; discounts can at most zero a bill

USAGE:
  rent := billing.NewMoney(9000)
  line := billing.LineItem{Description: "Monthly Rent", Amount: rent, Type: billing.ChargeRent}

SEE ALSO:
  - calendar.go: Date arithmetic (clamping, day counts, anniversaries)
  - cycle.go: Billing cycle advancement and status classification
  - proration.go: Partial-period amounts
  - compose.go: Anniversary charge composition
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount (decimal-backed)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(b Money) Money          { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money          { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) GreaterThan(b Money) bool   { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool      { return m.Value.LessThan(b.Value) }

// Percent returns p percent of m (p expressed as e.g. 5 for 5%).
func (m Money) Percent(p float64) Money {
	return Money{Value: m.Value.Mul(decimal.NewFromFloat(p)).Div(decimal.NewFromInt(100))}
}

// Round rounds to whole currency units. The source ledgers carry whole-unit
// amounts, so computed charges are rounded to the nearest unit.
func (m Money) Round() Money { return Money{Value: m.Value.Round(0)} }

// RoundCents rounds to two decimal places, used for derived statistics
// (averages) rather than charged amounts.
func (m Money) RoundCents() Money { return Money{Value: m.Value.Round(2)} }

// FloorZero clamps a negative amount to zero. This is the documented
// edge-case policy: composition never produces a negative bill.
func (m Money) FloorZero() Money {
	if m.IsNegative() {
		return Zero()
	}
	return m
}

func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

func (m Money) String() string { return m.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenancyID string
type InvoiceID string
type PropertyID string

// =============================================================================
// CHARGE TYPES AND LINE ITEMS
// =============================================================================

type ChargeType string

const (
	ChargeRent       ChargeType = "rent"
	ChargeProrated   ChargeType = "prorated_rent"
	ChargeElectricity ChargeType = "electricity"
	ChargeCommonArea ChargeType = "common_area"
	ChargeUtility    ChargeType = "utility"
	ChargeDiscount   ChargeType = "discount"
	ChargePenalty    ChargeType = "penalty"
	ChargeLateFee    ChargeType = "late_fee"
)

// LineItem is one priced entry in a composed charge. Discounts carry
// negative amounts; the invoice total is the plain sum of its lines.
type LineItem struct {
	Description string
	Amount      Money
	Type        ChargeType
}

// Adjustment is a signed amount attached to a composition pass.
// Positive = penalty, negative = discount. Adjustments are not persisted
// on their own - they survive only as line items on the invoice.
type Adjustment struct {
	Reason string
	Amount Money
	Type   ChargeType
}

func (a Adjustment) ToLineItem() LineItem {
	return LineItem{Description: a.Reason, Amount: a.Amount, Type: a.Type}
}

// =============================================================================
// CHARGE RESULT - Output of a composition pass
// =============================================================================

// ChargeResult is what the composer hands to the invoice lifecycle manager:
// the priced line items, the billing-period window they cover, the due date,
// and free-form metadata recording how the charges were derived.
type ChargeResult struct {
	TenancyID   TenancyID
	Lines       []LineItem
	Total       Money
	PeriodStart Date
	PeriodEnd   Date
	DueDate     Date
	Metadata    map[string]string
}

// SumLines returns the plain sum of the line amounts. ChargeResult.Total is
// always this sum floored at zero; the helper exists so tests and stores can
// verify the invariant.
func SumLines(lines []LineItem) Money {
	total := Zero()
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}
