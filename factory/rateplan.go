/*
Package factory provides JSON to Go rate-plan conversion.

PURPOSE:
  Converts JSON rate-plan and billing-config definitions into utility
  RateStructure and billing.Config values. Rate plans are data, not code -
  an operator can change slab tariffs, taxes, or discount percentages
  without a deploy, and the API stores plans as JSON.

JSON SCHEMA (rate plan):
  {
    "base_rate": 8,
    "slabs": [
      {"up_to": 100, "rate": 5},
      {"up_to": 200, "rate": 7},
      {"up_to": 0,   "rate": 9}
    ],
    "fixed_charge": 50,
    "gov_tax_pct": 5,
    "service_tax_pct": 2,
    "other_charges": [
      {"name": "Meter Rent", "amount": 25},
      {"name": "Rebate", "percent": 1, "is_discount": true}
    ],
    "late_fee": {"applicable": true, "basis": "daily_rate", "daily_rate": 10}
  }

JSON SCHEMA (billing config):
  {
    "common_area_charge": 500,
    "electricity_by_room_type": {"single": 800, "double": 1200},
    "payment_term_days": 7,
    "long_term_discount_pct": 5
  }

USAGE:
  plan, err := factory.ParseRatePlan(jsonStr)
  bill.Rates = plan.Rates
  bill.LateFee = plan.LateFee

SEE ALSO:
  - utility/types.go: RateStructure and LateFee definitions
  - billing/config.go: Config defaults
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/utility"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type RatePlanJSON struct {
	BaseRate      float64           `json:"base_rate,omitempty"`
	Slabs         []SlabJSON        `json:"slabs,omitempty"`
	FixedCharge   float64           `json:"fixed_charge,omitempty"`
	GovTaxPct     float64           `json:"gov_tax_pct,omitempty"`
	ServiceTaxPct float64           `json:"service_tax_pct,omitempty"`
	OtherCharges  []OtherChargeJSON `json:"other_charges,omitempty"`
	LateFee       *LateFeeJSON      `json:"late_fee,omitempty"`
}

type SlabJSON struct {
	UpTo int64   `json:"up_to"` // 0 = unbounded final slab
	Rate float64 `json:"rate"`
}

type OtherChargeJSON struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount,omitempty"`
	Percent    float64 `json:"percent,omitempty"`
	IsDiscount bool    `json:"is_discount,omitempty"`
}

type LateFeeJSON struct {
	Applicable bool    `json:"applicable"`
	Basis      string  `json:"basis"` // fixed, percentage, daily_rate
	Amount     float64 `json:"amount,omitempty"`
	Percent    float64 `json:"percent,omitempty"`
	DailyRate  float64 `json:"daily_rate,omitempty"`
}

type BillingConfigJSON struct {
	CommonAreaCharge      float64            `json:"common_area_charge,omitempty"`
	ElectricityByRoomType map[string]float64 `json:"electricity_by_room_type,omitempty"`
	PaymentTermDays       int                `json:"payment_term_days,omitempty"`
	DueSoonDays           int                `json:"due_soon_days,omitempty"`
	LongTermTenureMonths  int                `json:"long_term_tenure_months,omitempty"`
	LongTermDiscountPct   float64            `json:"long_term_discount_pct,omitempty"`
	EarlyPaymentPct       float64            `json:"early_payment_discount_pct,omitempty"`
	LatePenaltyPct        float64            `json:"late_penalty_pct,omitempty"`
}

// RatePlan bundles the rate structure with its late-fee policy.
type RatePlan struct {
	Rates   utility.RateStructure
	LateFee utility.LateFee
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRatePlan parses a JSON rate-plan definition.
func ParseRatePlan(jsonStr string) (RatePlan, error) {
	var rj RatePlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return RatePlan{}, fmt.Errorf("failed to parse rate plan JSON: %w", err)
	}
	return FromRatePlanJSON(rj)
}

// FromRatePlanJSON converts the schema struct to engine types.
func FromRatePlanJSON(rj RatePlanJSON) (RatePlan, error) {
	rates := utility.RateStructure{
		BaseRate:      billing.NewMoney(rj.BaseRate),
		FixedCharge:   billing.NewMoney(rj.FixedCharge),
		GovTaxPct:     rj.GovTaxPct,
		ServiceTaxPct: rj.ServiceTaxPct,
	}

	var prev int64
	for i, sj := range rj.Slabs {
		unbounded := sj.UpTo == 0
		if unbounded && i != len(rj.Slabs)-1 {
			return RatePlan{}, fmt.Errorf("slab %d: unbounded slab must be last", i)
		}
		if !unbounded && sj.UpTo <= prev {
			return RatePlan{}, fmt.Errorf("slab %d: up_to %d not ascending", i, sj.UpTo)
		}
		rates.Slabs = append(rates.Slabs, utility.Slab{UpTo: sj.UpTo, Rate: billing.NewMoney(sj.Rate)})
		prev = sj.UpTo
	}

	for _, oc := range rj.OtherCharges {
		rates.OtherCharges = append(rates.OtherCharges, utility.OtherCharge{
			Name:       oc.Name,
			Amount:     billing.NewMoney(oc.Amount),
			Percent:    oc.Percent,
			IsDiscount: oc.IsDiscount,
		})
	}

	plan := RatePlan{Rates: rates}
	if rj.LateFee != nil {
		basis, err := lateFeeBasis(rj.LateFee.Basis)
		if err != nil {
			return RatePlan{}, err
		}
		plan.LateFee = utility.LateFee{
			Applicable:  rj.LateFee.Applicable,
			Basis:       basis,
			FixedAmount: billing.NewMoney(rj.LateFee.Amount),
			Percent:     rj.LateFee.Percent,
			DailyRate:   billing.NewMoney(rj.LateFee.DailyRate),
		}
	}
	return plan, nil
}

func lateFeeBasis(s string) (utility.LateFeeBasis, error) {
	switch s {
	case "", string(utility.LateFeeFixed):
		return utility.LateFeeFixed, nil
	case string(utility.LateFeePercentage):
		return utility.LateFeePercentage, nil
	case string(utility.LateFeeDailyRate):
		return utility.LateFeeDailyRate, nil
	default:
		return "", fmt.Errorf("unknown late fee basis %q", s)
	}
}

// ParseBillingConfig parses a JSON billing configuration, filling unset
// fields with the documented defaults.
func ParseBillingConfig(jsonStr string) (billing.Config, error) {
	var cj BillingConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return billing.Config{}, fmt.Errorf("failed to parse billing config JSON: %w", err)
	}
	return FromBillingConfigJSON(cj), nil
}

// FromBillingConfigJSON converts the schema struct, applying defaults for
// zero-valued policy fields.
func FromBillingConfigJSON(cj BillingConfigJSON) billing.Config {
	cfg := billing.DefaultConfig()

	if cj.CommonAreaCharge > 0 {
		cfg.CommonAreaCharge = billing.NewMoney(cj.CommonAreaCharge)
	}
	for roomType, amount := range cj.ElectricityByRoomType {
		cfg.ElectricityByRoomType[roomType] = billing.NewMoney(amount)
	}
	if cj.PaymentTermDays > 0 {
		cfg.PaymentTermDays = cj.PaymentTermDays
	}
	if cj.DueSoonDays > 0 {
		cfg.DueSoonDays = cj.DueSoonDays
	}
	if cj.LongTermTenureMonths > 0 {
		cfg.LongTermTenureMonths = cj.LongTermTenureMonths
	}
	if cj.LongTermDiscountPct > 0 {
		cfg.LongTermDiscountPct = cj.LongTermDiscountPct
	}
	if cj.EarlyPaymentPct > 0 {
		cfg.EarlyPaymentDiscountPct = cj.EarlyPaymentPct
	}
	if cj.LatePenaltyPct > 0 {
		cfg.LatePenaltyPct = cj.LatePenaltyPct
	}
	return cfg
}
