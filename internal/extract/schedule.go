package extract

import (
	"strings"

	"github.com/quantbridge/rpucalc/internal/document"
)

const (
	// headerSearchRows bounds how deep into a table the header row is
	// looked for; BI schedule tables carry at most a few caption rows
	// above the header.
	headerSearchRows = 6

	// headerMergeRows is the maximum number of follow-up rows a split
	// header spans. Long column labels wrap across up to two extra rows
	// without repeating the table header.
	headerMergeRows = 2
)

// ExtractSchedule walks every extracted table and assembles the ordered
// year-by-year benefit schedule. Tables without their own header row reuse
// the last seen header classification, which is how multi-page schedule
// tables print their continuation pages. When policyTerm is known and
// positive, extraction stops once a row reaches that bound so an unrelated
// trailing table cannot be absorbed. Duplicate policy years keep the
// first-seen row.
func ExtractSchedule(doc *document.ParsedDocument, policyTerm int) []ScheduleRow {
	var rows []ScheduleRow
	seen := make(map[int]struct{})
	var roles []Column
	done := false

	for _, tb := range doc.AllTables() {
		if done {
			break
		}
		if len(tb) < 2 {
			continue
		}

		dataRows := tb
		if idx, ok := findHeaderRow(tb); ok {
			merged, consumed := stitchHeader(tb, idx)
			roles = classifyColumns(merged)
			dataRows = tb[idx+1+consumed:]
		} else if roles == nil {
			// No header seen yet anywhere: this table is not a
			// schedule continuation, skip it.
			continue
		}

		for _, raw := range dataRows {
			row, ok := buildRow(raw, roles)
			if !ok {
				continue
			}
			if _, dup := seen[row.PolicyYear]; dup {
				continue
			}
			seen[row.PolicyYear] = struct{}{}
			rows = append(rows, row)

			if policyTerm > 0 && row.PolicyYear >= policyTerm {
				done = true
				break
			}
		}
	}
	return rows
}

// findHeaderRow scans the leading rows of a table for the cell sequence
// whose concatenated text holds both a "policy" and a "year" token.
func findHeaderRow(tb document.Table) (int, bool) {
	limit := len(tb)
	if limit > headerSearchRows {
		limit = headerSearchRows
	}
	for i := 0; i < limit; i++ {
		joined := strings.ToLower(strings.Join(tb[i], " "))
		if strings.Contains(joined, "policy") && strings.Contains(joined, "year") {
			return i, true
		}
	}
	return 0, false
}

// stitchHeader merges the header row's cells word-wise with up to
// headerMergeRows following rows at the same column index. A follow-up row
// whose first cell already parses as a positive integer is a data row, not a
// wrapped header fragment, and ends the merge. Returns the merged header
// cells and how many follow-up rows were consumed.
func stitchHeader(tb document.Table, headerIdx int) ([]string, int) {
	merged := make([]string, len(tb[headerIdx]))
	for i, c := range tb[headerIdx] {
		merged[i] = strings.TrimSpace(c)
	}

	consumed := 0
	for j := headerIdx + 1; j <= headerIdx+headerMergeRows && j < len(tb); j++ {
		if looksLikeDataRow(tb[j]) {
			break
		}
		for col := 0; col < len(merged) && col < len(tb[j]); col++ {
			if next := strings.TrimSpace(tb[j][col]); next != "" {
				merged[col] = strings.TrimSpace(merged[col] + " " + next)
			}
		}
		consumed++
	}
	return merged, consumed
}

// looksLikeDataRow reports whether a row opens with a plain positive
// integer, the shape of a schedule data row's policy-year cell.
func looksLikeDataRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.TrimSpace(row[0])
	if first == "" {
		return false
	}
	for _, r := range first {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, ok := toInt(first)
	return ok && n > 0
}

// classifyColumns resolves each stitched header cell to its column role.
// Unmatched columns get an empty role and are skipped during row building.
func classifyColumns(headers []string) []Column {
	roles := make([]Column, len(headers))
	for i, h := range headers {
		if role, ok := classifyHeader(defaultColumnRules, h); ok {
			roles[i] = role
		}
	}
	return roles
}

// buildRow converts a raw table row into a typed ScheduleRow. The row is
// accepted only when its policy-year column yields a valid positive
// integer; every other column is coerced best-effort with absent-on-failure
// semantics.
func buildRow(raw []string, roles []Column) (ScheduleRow, bool) {
	var row ScheduleRow
	yearSeen := false

	for i, cell := range raw {
		if i >= len(roles) || roles[i] == "" {
			continue
		}
		switch roles[i] {
		case ColumnPolicyYear:
			if n, ok := toInt(cell); ok && n > 0 {
				row.PolicyYear = n
				yearSeen = true
			}
		case ColumnIncome:
			if v, ok := toNumber(cell); ok {
				row.Income = &v
			}
		case ColumnMaturity:
			if v, ok := toNumber(cell); ok {
				row.Maturity = &v
			}
		case ColumnDeath:
			if v, ok := toNumber(cell); ok {
				row.Death = &v
			}
		case ColumnSurrenderGSV:
			if v, ok := toNumber(cell); ok {
				row.SurrenderGSV = &v
			}
		case ColumnSurrenderSSV:
			if v, ok := toNumber(cell); ok {
				row.SurrenderSSV = &v
			}
		}
	}
	return row, yearSeen
}
