package extract

import "strings"

// Column identifies the semantic role of a schedule table column.
type Column string

const (
	ColumnPolicyYear   Column = "policy_year"
	ColumnIncome       Column = "income"
	ColumnMaturity     Column = "maturity"
	ColumnDeath        Column = "death"
	ColumnSurrenderGSV Column = "gsv"
	ColumnSurrenderSSV Column = "ssv"
)

// ColumnRule maps header keywords to a column role. Rules are evaluated in
// order and the first match wins, so more specific phrases must precede the
// generic ones. Keeping the classification as a rule list rather than
// cascading conditionals lets it be tested in isolation and extended per
// product without touching the schedule extraction control flow.
type ColumnRule struct {
	Role     Column
	Keywords []string
}

// defaultColumnRules classifies the columns observed across GIS Benefit
// Illustration revisions. Header labels vary between revisions ("Survival
// Benefit" vs "Income Benefit Pay-out"), hence the keyword alternatives.
var defaultColumnRules = []ColumnRule{
	{Role: ColumnPolicyYear, Keywords: []string{"policy year"}},
	{Role: ColumnSurrenderGSV, Keywords: []string{"guaranteed surrender", "gsv"}},
	{Role: ColumnSurrenderSSV, Keywords: []string{"special surrender", "ssv"}},
	{Role: ColumnIncome, Keywords: []string{"income", "survival"}},
	{Role: ColumnMaturity, Keywords: []string{"maturity", "lump"}},
	{Role: ColumnDeath, Keywords: []string{"death"}},
}

// classifyHeader resolves a stitched header string to a column role using
// the ordered rule list. Unmatched headers return false and the column is
// ignored by schedule extraction.
func classifyHeader(rules []ColumnRule, header string) (Column, bool) {
	h := strings.ToLower(collapseWS(header))
	if h == "" {
		return "", false
	}
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(h, kw) {
				return rule.Role, true
			}
		}
	}
	return "", false
}
