package billing

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity time abstraction (billing is day-based)
// =============================================================================

type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.normalize().AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.normalize().AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.normalize().AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// DaysInMonth returns the calendar length of the date's month.
func (d Date) DaysInMonth() int {
	return DaysInMonth(d.Year(), d.Month())
}

// =============================================================================
// CALENDAR ARITHMETIC - Clamping, day counts, anniversaries
// =============================================================================

func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampToMonth builds a date in (year, month) on the target day-of-month,
// clamped to the last valid day when the month is shorter. Anniversary day 31
// in a 30-day month resolves to day 30.
func ClampToMonth(year int, month time.Month, day int) Date {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// CycleUnit is the advancement step of a billing cycle.
type CycleUnit string

const (
	CycleMonthly   CycleUnit = "monthly"
	CycleQuarterly CycleUnit = "quarterly"
	CycleYearly    CycleUnit = "yearly"
)

// Months returns the number of calendar months one cycle unit advances.
func (c CycleUnit) Months() int {
	switch c {
	case CycleQuarterly:
		return 3
	case CycleYearly:
		return 12
	default:
		return 1
	}
}

// AddCycle advances a date by one cycle unit, re-anchoring to anchorDay with
// month-end clamping. Plain AddDate is not used here because Go normalizes
// overflow (Jan 31 + 1 month = Mar 3); billing anniversaries must clamp.
func AddCycle(d Date, unit CycleUnit, anchorDay int) Date {
	year, month := d.Year(), d.Month()
	total := int(month) - 1 + unit.Months()
	year += total / 12
	month = time.Month(total%12 + 1)
	return ClampToMonth(year, month, anchorDay)
}

// NextAnniversary returns the closest anniversary date strictly after today:
// this month's anniversary day when still in the future, otherwise next
// month's, clamped to month length in either case.
func NextAnniversary(today Date, anchorDay int) Date {
	candidate := ClampToMonth(today.Year(), today.Month(), anchorDay)
	if candidate.After(today) {
		return candidate
	}
	return AddCycle(candidate, CycleMonthly, anchorDay)
}

// DaysBetween returns the whole days from `from` to `to` (exclusive count).
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// InclusiveDays returns the day count of [from, to] counting both endpoints,
// the count proration bills for. A single-day stay counts as 1.
func InclusiveDays(from, to Date) int {
	return DaysBetween(from, to) + 1
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}
