package document

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Layout reconstruction tolerances, in PDF points. BI documents are rendered
// at standard body sizes, so fixed tolerances hold up well in practice.
const (
	// lineYTolerance groups text fragments onto the same visual line.
	lineYTolerance = 2.5

	// cellGapThreshold is the minimum horizontal gap between fragments
	// that starts a new table cell. Bordered BI tables leave generous
	// padding between columns, while words inside a cell sit close.
	cellGapThreshold = 10.0

	// wordGapThreshold inserts a space between fragments of the same cell.
	wordGapThreshold = 1.0
)

// line is an intermediate grouping of positioned fragments sharing a Y band.
type line struct {
	y     float64
	frags []pdf.Text
}

// groupLines clusters positioned text fragments into visual lines, ordered
// top-to-bottom with fragments ordered left-to-right. PDF user space has its
// origin at the bottom-left, so higher lines carry larger Y values.
func groupLines(frags []pdf.Text) []line {
	if len(frags) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []line
	for _, f := range sorted {
		if strings.TrimSpace(f.S) == "" {
			continue
		}
		if n := len(lines); n > 0 && lines[n-1].y-f.Y <= lineYTolerance {
			lines[n-1].frags = append(lines[n-1].frags, f)
			continue
		}
		lines = append(lines, line{y: f.Y, frags: []pdf.Text{f}})
	}

	for i := range lines {
		sort.SliceStable(lines[i].frags, func(a, b int) bool {
			return lines[i].frags[a].X < lines[i].frags[b].X
		})
	}
	return lines
}

// lineText joins a line's fragments into display text, inserting spaces at
// visible horizontal gaps.
func lineText(l line) string {
	var sb strings.Builder
	prevEnd := 0.0
	for i, f := range l.frags {
		if i > 0 && f.X-prevEnd > wordGapThreshold {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.S)
		prevEnd = f.X + f.W
	}
	return strings.TrimSpace(sb.String())
}

// lineCells splits a line into table cells on large horizontal gaps.
func lineCells(l line) []string {
	var cells []string
	var cur strings.Builder
	prevEnd := 0.0
	for i, f := range l.frags {
		if i > 0 {
			gap := f.X - prevEnd
			switch {
			case gap > cellGapThreshold:
				cells = append(cells, strings.TrimSpace(cur.String()))
				cur.Reset()
			case gap > wordGapThreshold:
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(f.S)
		prevEnd = f.X + f.W
	}
	if cur.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cur.String()))
	}
	return cells
}

// pageText renders the plain text of a page from its positioned fragments.
func pageText(frags []pdf.Text) string {
	lines := groupLines(frags)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := lineText(l); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}

// pageTables reconstructs table grids from a page's positioned fragments.
// Consecutive multi-cell lines form one table; a run of single-cell lines
// ends it. BI key/value blocks and schedule tables both surface this way,
// with each visual line becoming one row.
func pageTables(frags []pdf.Text) []Table {
	lines := groupLines(frags)

	var tables []Table
	var cur Table
	flush := func() {
		if len(cur) > 0 {
			tables = append(tables, cur)
			cur = nil
		}
	}

	for _, l := range lines {
		cells := lineCells(l)
		if len(cells) >= 2 {
			cur = append(cur, cells)
			continue
		}
		flush()
	}
	flush()
	return tables
}
