package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbridge/rpucalc/internal/benefit"
	"github.com/quantbridge/rpucalc/internal/extract"
	"github.com/quantbridge/rpucalc/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	income := 50000.0
	f := &extract.Fields{
		ProductName:     "Guaranteed Income STAR",
		ProductUIN:      "110N163V03",
		ProposerName:    "A Sample Person",
		Mode:            "Annual",
		PolicyTermYears: 20,
		PPTYears:        10,
		BIDate:          time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	for py := 6; py <= 15; py++ {
		f.Schedule = append(f.Schedule, extract.ScheduleRow{PolicyYear: py, Income: &income})
	}

	out, err := benefit.Calculate(f, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		panic(err)
	}
	return &pipeline.Result{
		CaseID:    "f00dcafe",
		ProductID: "guaranteed_income_star",
		Fields:    f,
		Outputs:   out,
	}
}

func TestRenderProducesPDF(t *testing.T) {
	raw, err := Render(sampleResult())
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")), "report must start with the PDF magic")
}

func TestRenderOmitsProposerName(t *testing.T) {
	raw, err := Render(sampleResult())
	require.NoError(t, err)
	// PDF streams are compressed, but the name must also never be passed
	// to the renderer in the first place. A plain-text scan is a cheap
	// second line of defense.
	assert.NotContains(t, string(raw), "Sample Person")
}

func TestRenderWithoutIncomeSegments(t *testing.T) {
	res := sampleResult()
	res.Outputs.FullyPaid.IncomeSegments = nil

	raw, err := Render(res)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}

func TestMoneyFormatting(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	tests := []struct {
		in   *float64
		want string
	}{
		{v(0), "0.00"},
		{v(100000), "100,000.00"},
		{v(1234567.5), "1,234,567.50"},
		{v(-5000), "-5,000.00"},
		{nil, "-"},
	}
	for _, tt := range tests {
		if got := money(tt.in); got != tt.want {
			t.Errorf("money(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
