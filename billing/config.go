/*
config.go - Explicit billing configuration

PURPOSE:
  Everything the composer and the utility engine would otherwise read from
  ambient environment values (tax rates, payment terms, shared charges) is
  modeled as an explicit value object passed in by the caller. Defaults are
  documented here, in one place, instead of scattered lookups.
*/
package billing

// Config carries per-property billing parameters and the engine-wide
// policy constants.
type Config struct {
	// CommonAreaCharge is the flat shared-maintenance amount added to every
	// anniversary bill. Zero disables the line item.
	CommonAreaCharge Money

	// ElectricityByRoomType maps a room type to its flat (non-metered)
	// monthly electricity charge. Rooms without an entry get no line item.
	// Metered rooms are billed through the utility engine instead.
	ElectricityByRoomType map[string]Money

	// PaymentTermDays is the gap between the billing anniversary and the
	// invoice due date.
	PaymentTermDays int

	// DueSoonDays is the window before the next billing date during which a
	// tenancy classifies as due_soon.
	DueSoonDays int

	// LongTermTenureMonths is the minimum tenancy duration for the loyalty
	// discount.
	LongTermTenureMonths int

	// LongTermDiscountPct is the loyalty discount, in percent of rent.
	LongTermDiscountPct float64

	// EarlyPaymentDiscountPct is the discount for settling the previous bill
	// on time, in percent of rent.
	EarlyPaymentDiscountPct float64

	// LatePenaltyPct is the penalty charged on the sum of overdue billing
	// history amounts, in percent.
	LatePenaltyPct float64
}

// DefaultConfig returns the documented default billing parameters.
func DefaultConfig() Config {
	return Config{
		CommonAreaCharge:        Zero(),
		ElectricityByRoomType:   map[string]Money{},
		PaymentTermDays:         7,
		DueSoonDays:             3,
		LongTermTenureMonths:    12,
		LongTermDiscountPct:     5,
		EarlyPaymentDiscountPct: 2,
		LatePenaltyPct:          2,
	}
}

// ElectricityCharge returns the flat electricity amount for a room type and
// whether one is configured.
func (c Config) ElectricityCharge(roomType string) (Money, bool) {
	m, ok := c.ElectricityByRoomType[roomType]
	if !ok || !m.IsPositive() {
		return Zero(), false
	}
	return m, true
}
