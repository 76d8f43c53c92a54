// Package dates implements the calendar arithmetic behind the RPU
// projection: payment-mode normalization, backward derivation of the Risk
// Commencement Date and grace-period handling. All functions are pure and
// operate on UTC dates at midnight.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Canonical payment modes as printed on Benefit Illustrations.
const (
	ModeAnnual     = "Annual"
	ModeHalfYearly = "Half-yearly"
	ModeQuarterly  = "Quarterly"
	ModeMonthly    = "Monthly"
)

// Grace period lengths per the product's published terms.
const (
	graceDaysMonthly = 15
	graceDaysDefault = 30
)

// ErrInvalidDates indicates a contract violation in the date inputs, such as
// a zero BI date or a PTD earlier than the BI generation date. These point at
// a broken caller, not at bad document data.
var ErrInvalidDates = errors.New("invalid date inputs")

// NormalizeMode maps a free-text payment frequency string to one of the
// canonical modes. It tolerates case, spacing and hyphenation variants
// ("half yearly", "Semi-Annual", "MONTHLY"). Unrecognized text defaults to
// Annual; that default is a deliberate product policy, not an error path.
func NormalizeMode(raw string) string {
	m := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(m, "ANNU") && !strings.Contains(m, "SEMI"):
		return ModeAnnual
	case strings.Contains(m, "YEAR") && !strings.Contains(m, "HALF"):
		return ModeAnnual
	case strings.Contains(m, "HALF") || strings.Contains(m, "SEMI"):
		return ModeHalfYearly
	case strings.Contains(m, "QUART"):
		return ModeQuarterly
	case strings.Contains(m, "MONTH"):
		return ModeMonthly
	default:
		return ModeAnnual
	}
}

// ModeMonths returns the premium interval in months for a canonical or
// free-text mode string. Unrecognized modes map to 12.
func ModeMonths(mode string) int {
	switch NormalizeMode(mode) {
	case ModeHalfYearly:
		return 6
	case ModeQuarterly:
		return 3
	case ModeMonthly:
		return 1
	default:
		return 12
	}
}

// GraceDays returns the grace period in days for a payment mode:
// 15 days for Monthly, 30 days for every other mode.
func GraceDays(mode string) int {
	if NormalizeMode(mode) == ModeMonthly {
		return graceDaysMonthly
	}
	return graceDaysDefault
}

// daysInMonth returns the number of days in the month containing year/month.
func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths shifts a date by n calendar months (n may be negative), clamping
// the day of month to the last valid day of the target month. Stepping back
// one month from March 31 yields the last day of February. This differs from
// time.Time.AddDate, which normalizes overflow into the following month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	months := int(m) - 1 + n
	ty := y + months/12
	tm := time.Month(months%12 + 1)
	if months%12 < 0 {
		ty--
		tm += 12
	}
	if last := daysInMonth(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, 0, 0, 0, 0, time.UTC)
}

// AddYears shifts a date by n whole years with day-of-month clamping, so
// Feb 29 maps to Feb 28 in a non-leap target year.
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, n*12)
}

// DeriveRCD derives the Risk Commencement Date from the BI generation date,
// the user-supplied PTD and the payment mode. Starting at PTD, the candidate
// is stepped backward one mode interval at a time while the stepped date
// would still be on or after the BI date; the smallest such candidate is the
// RCD. The search is iterative rather than closed-form because day-of-month
// clamping makes premium due dates unevenly spaced.
func DeriveRCD(biDate, ptd time.Time, mode string) (time.Time, error) {
	if biDate.IsZero() || ptd.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero BI date or PTD", ErrInvalidDates)
	}
	if ptd.Before(biDate) {
		return time.Time{}, fmt.Errorf("%w: PTD %s precedes BI date %s",
			ErrInvalidDates, ptd.Format("2006-01-02"), biDate.Format("2006-01-02"))
	}

	step := ModeMonths(mode)
	candidate := ptd
	for {
		prev := AddMonths(candidate, -step)
		if prev.Before(biDate) {
			break
		}
		candidate = prev
	}
	return candidate, nil
}

// RPUEffectiveDate returns the assumed paid-up effective date: PTD plus the
// grace period in plain calendar days, with no month clamping.
func RPUEffectiveDate(ptd time.Time, graceDays int) time.Time {
	return ptd.AddDate(0, 0, graceDays)
}

// MonthsPaid counts the whole calendar months elapsed between the RCD and a
// later reference date (the assumed RPU effective date under policy variant
// v1). A partially elapsed month does not count. The result is clamped to be
// non-negative.
func MonthsPaid(rcd, ref time.Time) int {
	months := (ref.Year()-rcd.Year())*12 + int(ref.Month()) - int(rcd.Month())
	if ref.Day() < rcd.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months
}
