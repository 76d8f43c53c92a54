package benefit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbridge/rpucalc/internal/extract"
)

func num(v float64) *float64 { return &v }

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// gisFields models a typical Guaranteed Income STAR illustration: annual
// mode, 20-year term, 10-year premium payment term, income of 50,000 paid
// in policy years 6 through 15.
func gisFields() *extract.Fields {
	f := &extract.Fields{
		ProductName:       "Guaranteed Income STAR",
		BIDate:            d(2023, time.March, 31),
		Mode:              "Annual",
		PolicyTermYears:   20,
		PPTYears:          10,
		AnnualizedPremium: num(100000),
		SumAssuredOnDeath: num(1000000),
	}
	for py := 1; py <= 20; py++ {
		row := extract.ScheduleRow{PolicyYear: py, Death: num(1000000)}
		if py >= 6 && py <= 15 {
			row.Income = num(50000)
		}
		if py == 20 {
			row.Maturity = num(250000)
		}
		f.Schedule = append(f.Schedule, row)
	}
	return f
}

func TestCalculateWorkedScenario(t *testing.T) {
	out, err := Calculate(gisFields(), d(2025, time.March, 31))
	require.NoError(t, err)

	assert.Equal(t, d(2023, time.March, 31), out.RCD)
	assert.Equal(t, d(2025, time.April, 30), out.RPUDate)
	assert.Equal(t, 30, out.GracePeriodDays)
	assert.Equal(t, 24, out.MonthsPaid)
	assert.Equal(t, 120, out.MonthsPayable)
	assert.InDelta(t, 0.2, out.RPUFactor, 1e-9)

	assert.Equal(t, float64(500000), out.FullyPaid.TotalIncome)
	assert.Equal(t, float64(0), out.AlreadyPaidTotal)
	assert.Equal(t, float64(100000), out.ReducedPaidUp.TotalIncome)

	require.NotNil(t, out.FullyPaid.Maturity)
	assert.Equal(t, float64(250000), *out.FullyPaid.Maturity)
	require.NotNil(t, out.ReducedPaidUp.Maturity)
	assert.InDelta(t, 50000, *out.ReducedPaidUp.Maturity, 1e-9)

	require.NotNil(t, out.ReducedPaidUp.Death)
	assert.InDelta(t, 200000, *out.ReducedPaidUp.Death, 1e-9)

	assert.NotEmpty(t, out.Notes)
}

func TestCalculateIncomeEvents(t *testing.T) {
	out, err := Calculate(gisFields(), d(2025, time.March, 31))
	require.NoError(t, err)

	events := out.FullyPaid.IncomeEvents
	require.Len(t, events, 10)
	assert.Equal(t, 6, events[0].PolicyYear)
	assert.Equal(t, 2028, events[0].CalendarYear)
	assert.Equal(t, d(2028, time.March, 31), events[0].DueDate)
	assert.Equal(t, 15, events[9].PolicyYear)
	assert.Equal(t, d(2037, time.March, 31), events[9].DueDate)

	segs := out.FullyPaid.IncomeSegments
	require.Len(t, segs, 1)
	assert.Equal(t, 6, segs[0].StartYear)
	assert.Equal(t, 15, segs[0].EndYear)
	assert.Equal(t, 10, segs[0].Years)
	assert.Equal(t, float64(50000), segs[0].Amount)
}

func TestCalculateNetsOutEarlyPayouts(t *testing.T) {
	// Income starting in year 1: by the assumed RPU date some instalments
	// have already been paid out and net against the reduced entitlement.
	f := gisFields()
	for i := range f.Schedule {
		f.Schedule[i].Income = num(50000)
	}

	out, err := Calculate(f, d(2025, time.March, 31))
	require.NoError(t, err)

	// Instalments for policy years 1-3 (due 2023-03-31, 2024-03-31 and
	// 2025-03-31) precede the RPU date of 2025-04-30.
	assert.Equal(t, float64(150000), out.AlreadyPaidTotal)
	assert.Equal(t, float64(1000000), out.FullyPaid.TotalIncome)
	// 1,000,000 x 0.2 - 150,000 x 0.8 = 80,000.
	assert.InDelta(t, 80000, out.ReducedPaidUp.TotalIncome, 1e-6)
}

func TestCalculateNetIncomeFlooredAtZero(t *testing.T) {
	// A single large instalment already paid against a tiny factor would
	// compute negative; nothing further is payable instead.
	f := gisFields()
	for i := range f.Schedule {
		f.Schedule[i].Income = nil
	}
	f.Schedule[0].Income = num(900000)

	out, err := Calculate(f, d(2025, time.March, 31))
	require.NoError(t, err)
	assert.Equal(t, float64(900000), out.AlreadyPaidTotal)
	assert.Equal(t, float64(0), out.ReducedPaidUp.TotalIncome)
}

func TestCalculateFactorClampedAtOne(t *testing.T) {
	// PTD beyond the premium payment term: every premium was paid, so the
	// factor caps at 1 and the reduced values equal the fully-paid values.
	out, err := Calculate(gisFields(), d(2035, time.March, 31))
	require.NoError(t, err)

	assert.Equal(t, float64(1), out.RPUFactor)
	require.NotNil(t, out.ReducedPaidUp.Maturity)
	assert.Equal(t, *out.FullyPaid.Maturity, *out.ReducedPaidUp.Maturity)
}

func TestCalculateUnknownPPTMeansZeroFactor(t *testing.T) {
	f := gisFields()
	f.PPTYears = 0

	out, err := Calculate(f, d(2025, time.March, 31))
	require.NoError(t, err)
	assert.Equal(t, float64(0), out.RPUFactor)
	assert.Equal(t, float64(0), out.ReducedPaidUp.TotalIncome)
}

func TestCalculateDeathFallsBackToSumAssured(t *testing.T) {
	f := gisFields()
	for i := range f.Schedule {
		f.Schedule[i].Death = nil
	}

	out, err := Calculate(f, d(2025, time.March, 31))
	require.NoError(t, err)
	require.NotNil(t, out.FullyPaid.Death)
	assert.Equal(t, float64(1000000), *out.FullyPaid.Death)
}

func TestCalculateRejectsPTDBeforeBIDate(t *testing.T) {
	_, err := Calculate(gisFields(), d(2022, time.January, 1))
	assert.Error(t, err)
}

func TestCalculateEmptySchedule(t *testing.T) {
	f := gisFields()
	f.Schedule = nil

	out, err := Calculate(f, d(2025, time.March, 31))
	require.NoError(t, err)
	assert.Equal(t, float64(0), out.FullyPaid.TotalIncome)
	assert.Nil(t, out.FullyPaid.Maturity)
	// Death still falls back to the stated sum assured.
	require.NotNil(t, out.FullyPaid.Death)
}
