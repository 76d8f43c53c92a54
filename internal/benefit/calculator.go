// Package benefit implements the Reduced Paid-Up calculation: the RPU
// factor, per-instalment income cashflow events and the netting formula
// that reduces future income, maturity and death benefits.
package benefit

import (
	"fmt"
	"time"

	"github.com/quantbridge/rpucalc/internal/dates"
	"github.com/quantbridge/rpucalc/internal/extract"
)

// IncomeEvent is one derived income instalment: the policy year it belongs
// to, the calendar year it falls in, its due date and its amount. Events are
// transient intermediates; only their aggregates are persisted.
type IncomeEvent struct {
	PolicyYear   int       `json:"policy_year"`
	CalendarYear int       `json:"calendar_year"`
	DueDate      time.Time `json:"due_date"`
	Amount       float64   `json:"amount"`
}

// IncomeSegment summarizes a contiguous run of equal income pay-outs.
type IncomeSegment struct {
	StartYear int     `json:"start_year"`
	EndYear   int     `json:"end_year"`
	Years     int     `json:"years"`
	Amount    float64 `json:"income"`
}

// Summary holds one side of the fully-paid / reduced-paid-up comparison.
type Summary struct {
	TotalIncome    float64         `json:"total_income"`
	IncomeEvents   []IncomeEvent   `json:"income_events,omitempty"`
	IncomeSegments []IncomeSegment `json:"income_segments,omitempty"`
	Maturity       *float64        `json:"maturity,omitempty"`
	Death          *float64        `json:"death,omitempty"`
}

// Outputs is the computed result for one set of extracted fields and one
// PTD. Immutable once returned.
type Outputs struct {
	RCD              time.Time `json:"rcd"`
	PTD              time.Time `json:"ptd"`
	RPUDate          time.Time `json:"rpu_date"`
	GracePeriodDays  int       `json:"grace_period_days"`
	MonthsPaid       int       `json:"months_paid"`
	MonthsPayable    int       `json:"months_payable_total"`
	RPUFactor        float64   `json:"rpu_factor"`
	AlreadyPaidTotal float64   `json:"income_already_paid"`
	FullyPaid        Summary   `json:"fully_paid"`
	ReducedPaidUp    Summary   `json:"reduced_paid_up"`
	Notes            []string  `json:"notes"`
}

// standardNotes documents the conventions applied, shown alongside every
// numeric result for user transparency.
var standardNotes = []string{
	"Illustrative values assuming non-payment of the next premium and the policy becoming paid-up after the grace period.",
	"RCD is derived by stepping backward from PTD in premium-mode intervals with day-of-month clamping; the smallest stepped date on or after the BI date is taken.",
	"RPU factor = premium months paid between RCD and the assumed RPU date / total premium months payable, capped at 1.",
	"Reduced income payable nets out instalments due before the assumed RPU date: (total income x factor) - (already paid x (1 - factor)), floored at zero.",
	"Maturity and death benefits scale linearly by the RPU factor.",
}

// Calculate derives the dates, the RPU factor and both benefit summaries
// from extracted fields and the user-supplied PTD. It performs no I/O and
// raises only on contract violations such as a missing BI date; sparse or
// missing schedule data surfaces as absent values in the output.
func Calculate(fields *extract.Fields, ptd time.Time) (*Outputs, error) {
	rcd, err := dates.DeriveRCD(fields.BIDate, ptd, fields.Mode)
	if err != nil {
		return nil, fmt.Errorf("deriving RCD: %w", err)
	}

	graceDays := dates.GraceDays(fields.Mode)
	rpuDate := dates.RPUEffectiveDate(ptd, graceDays)

	monthsPaid := dates.MonthsPaid(rcd, rpuDate)
	monthsPayable := fields.PPTYears * 12

	factor := 0.0
	if monthsPayable > 0 {
		factor = float64(monthsPaid) / float64(monthsPayable)
		if factor > 1 {
			factor = 1
		}
	}

	events := incomeEvents(fields.Schedule, rcd)

	var total, alreadyPaid float64
	for _, ev := range events {
		total += ev.Amount
		if ev.DueDate.Before(rpuDate) {
			alreadyPaid += ev.Amount
		}
	}

	// Netting formula: the factor's share of the contracted income, less
	// the unearned share of instalments that were already paid out. A
	// large early payout against a low factor can push this negative, in
	// which case nothing further is payable.
	netIncome := total*factor - alreadyPaid*(1-factor)
	if netIncome < 0 {
		netIncome = 0
	}

	maturity := lastValue(fields.Schedule, func(r extract.ScheduleRow) *float64 { return r.Maturity })
	death := lastValue(fields.Schedule, func(r extract.ScheduleRow) *float64 { return r.Death })
	if death == nil {
		death = fields.SumAssuredOnDeath
	}

	out := &Outputs{
		RCD:              rcd,
		PTD:              ptd,
		RPUDate:          rpuDate,
		GracePeriodDays:  graceDays,
		MonthsPaid:       monthsPaid,
		MonthsPayable:    monthsPayable,
		RPUFactor:        factor,
		AlreadyPaidTotal: alreadyPaid,
		FullyPaid: Summary{
			TotalIncome:    total,
			IncomeEvents:   events,
			IncomeSegments: incomeSegments(fields.Schedule),
			Maturity:       maturity,
			Death:          death,
		},
		ReducedPaidUp: Summary{
			TotalIncome:    netIncome,
			IncomeEvents:   scaleEvents(events, factor),
			IncomeSegments: scaleSegments(incomeSegments(fields.Schedule), factor),
			Maturity:       scale(maturity, factor),
			Death:          scale(death, factor),
		},
		Notes: standardNotes,
	}
	return out, nil
}

// incomeEvents builds the ordered instalment sequence from the schedule.
// Rows with a zero or absent income amount carry no payout that year and
// produce no event. The due date is the RCD advanced by policyYear-1 whole
// years with day clamping; one instalment per policy year.
func incomeEvents(schedule []extract.ScheduleRow, rcd time.Time) []IncomeEvent {
	var events []IncomeEvent
	for _, row := range schedule {
		if row.Income == nil || *row.Income <= 0 {
			continue
		}
		due := dates.AddYears(rcd, row.PolicyYear-1)
		events = append(events, IncomeEvent{
			PolicyYear:   row.PolicyYear,
			CalendarYear: rcd.Year() + row.PolicyYear - 1,
			DueDate:      due,
			Amount:       *row.Income,
		})
	}
	return events
}

// incomeSegments compresses the schedule's income column into contiguous
// equal-amount runs for compact display.
func incomeSegments(schedule []extract.ScheduleRow) []IncomeSegment {
	var segs []IncomeSegment
	for _, row := range schedule {
		if row.Income == nil || *row.Income <= 0 {
			continue
		}
		n := len(segs)
		if n > 0 && segs[n-1].Amount == *row.Income && segs[n-1].EndYear == row.PolicyYear-1 {
			segs[n-1].EndYear = row.PolicyYear
			segs[n-1].Years++
			continue
		}
		segs = append(segs, IncomeSegment{
			StartYear: row.PolicyYear,
			EndYear:   row.PolicyYear,
			Years:     1,
			Amount:    *row.Income,
		})
	}
	return segs
}

// lastValue returns the last non-nil value of one benefit category across
// the schedule, in extraction order.
func lastValue(schedule []extract.ScheduleRow, get func(extract.ScheduleRow) *float64) *float64 {
	var last *float64
	for _, row := range schedule {
		if v := get(row); v != nil {
			last = v
		}
	}
	return last
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v * factor
	return &scaled
}

func scaleEvents(events []IncomeEvent, factor float64) []IncomeEvent {
	out := make([]IncomeEvent, len(events))
	for i, ev := range events {
		ev.Amount *= factor
		out[i] = ev
	}
	return out
}

func scaleSegments(segs []IncomeSegment, factor float64) []IncomeSegment {
	out := make([]IncomeSegment, len(segs))
	for i, s := range segs {
		s.Amount *= factor
		out[i] = s
	}
	return out
}
