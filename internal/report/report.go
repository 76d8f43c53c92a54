// Package report renders a one-page PDF summary of a computed case: the
// policy attributes, the fully-paid versus reduced-paid-up comparison, the
// income schedule by calendar year and the standard notes.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/quantbridge/rpucalc/internal/benefit"
	"github.com/quantbridge/rpucalc/internal/pipeline"
)

const (
	pageMargin  = 12.0
	labelWidth  = 58.0
	valueWidth  = 60.0
	rowHeight   = 6.0
	notesHeight = 4.2
)

// Render produces the one-pager PDF for a computed result.
func Render(res *pipeline.Result) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AddPage()

	writeHeader(doc, res)
	writePolicySummary(doc, res)
	writeComparison(doc, res.Outputs)
	writeIncomeSchedule(doc, res.Outputs)
	writeNotes(doc, res.Outputs.Notes)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(doc *fpdf.Fpdf, res *pipeline.Result) {
	doc.SetFont("Helvetica", "B", 15)
	doc.CellFormat(0, 9, "Reduced Paid-Up Benefit Summary", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(110, 110, 110)
	doc.CellFormat(0, 5, fmt.Sprintf("Case %s", res.CaseID), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(2)
}

func writePolicySummary(doc *fpdf.Fpdf, res *pipeline.Result) {
	out := res.Outputs
	f := res.Fields

	rows := [][2]string{
		{"Product", f.ProductName},
		{"UIN", f.ProductUIN},
		{"Premium payment mode", f.Mode},
		{"Policy term / premium term", fmt.Sprintf("%d / %d years", f.PolicyTermYears, f.PPTYears)},
		{"Commencement date (derived)", out.RCD.Format("02 Jan 2006")},
		{"Paid-to-date", out.PTD.Format("02 Jan 2006")},
		{"Assumed paid-up date", out.RPUDate.Format("02 Jan 2006")},
		{"Premium months paid / payable", fmt.Sprintf("%d / %d", out.MonthsPaid, out.MonthsPayable)},
		{"Paid-up factor", fmt.Sprintf("%.4f", out.RPUFactor)},
	}

	doc.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(labelWidth, rowHeight, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(valueWidth, rowHeight, row[1], "", 1, "L", false, 0, "")
	}
	doc.Ln(3)
}

func writeComparison(doc *fpdf.Fpdf, out *benefit.Outputs) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 7, "Fully paid vs reduced paid-up", "", 1, "L", false, 0, "")

	doc.SetFillColor(235, 235, 235)
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(labelWidth, rowHeight, "Benefit", "1", 0, "L", true, 0, "")
	doc.CellFormat(valueWidth, rowHeight, "Fully paid", "1", 0, "R", true, 0, "")
	doc.CellFormat(valueWidth, rowHeight, "Reduced paid-up", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 9)
	comparisonRow(doc, "Total income payable", &out.FullyPaid.TotalIncome, &out.ReducedPaidUp.TotalIncome)
	comparisonRow(doc, "Maturity benefit", out.FullyPaid.Maturity, out.ReducedPaidUp.Maturity)
	comparisonRow(doc, "Death benefit", out.FullyPaid.Death, out.ReducedPaidUp.Death)
	doc.Ln(3)
}

func comparisonRow(doc *fpdf.Fpdf, label string, full, reduced *float64) {
	doc.CellFormat(labelWidth, rowHeight, label, "1", 0, "L", false, 0, "")
	doc.CellFormat(valueWidth, rowHeight, money(full), "1", 0, "R", false, 0, "")
	doc.CellFormat(valueWidth, rowHeight, money(reduced), "1", 1, "R", false, 0, "")
}

func writeIncomeSchedule(doc *fpdf.Fpdf, out *benefit.Outputs) {
	if len(out.FullyPaid.IncomeSegments) == 0 {
		return
	}

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 7, "Income pay-outs", "", 1, "L", false, 0, "")

	doc.SetFillColor(235, 235, 235)
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(labelWidth, rowHeight, "Policy years", "1", 0, "L", true, 0, "")
	doc.CellFormat(valueWidth, rowHeight, "Per-year (fully paid)", "1", 0, "R", true, 0, "")
	doc.CellFormat(valueWidth, rowHeight, "Per-year (reduced)", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 9)
	for i, seg := range out.FullyPaid.IncomeSegments {
		span := fmt.Sprintf("%d - %d", seg.StartYear, seg.EndYear)
		if seg.StartYear == seg.EndYear {
			span = fmt.Sprintf("%d", seg.StartYear)
		}
		reduced := ""
		if i < len(out.ReducedPaidUp.IncomeSegments) {
			reduced = money(&out.ReducedPaidUp.IncomeSegments[i].Amount)
		}
		doc.CellFormat(labelWidth, rowHeight, span, "1", 0, "L", false, 0, "")
		doc.CellFormat(valueWidth, rowHeight, money(&seg.Amount), "1", 0, "R", false, 0, "")
		doc.CellFormat(valueWidth, rowHeight, reduced, "1", 1, "R", false, 0, "")
	}
	doc.Ln(3)
}

func writeNotes(doc *fpdf.Fpdf, notes []string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 8)
	doc.SetTextColor(80, 80, 80)
	for _, note := range notes {
		doc.MultiCell(0, notesHeight, "- "+note, "", "L", false)
	}
	doc.SetTextColor(0, 0, 0)
}

// money formats an amount with thousands separators, or a dash when the
// value is absent.
func money(v *float64) string {
	if v == nil {
		return "-"
	}
	s := fmt.Sprintf("%.2f", *v)
	dot := len(s) - 3
	intPart, frac := s[:dot], s[dot:]
	var neg bool
	if len(intPart) > 0 && intPart[0] == '-' {
		neg = true
		intPart = intPart[1:]
	}
	var b []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b = append(b, ',')
		}
		b = append(b, c)
	}
	out := string(b) + frac
	if neg {
		out = "-" + out
	}
	return out
}
