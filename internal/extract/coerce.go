package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	wsRe       = regexp.MustCompile(`\s+`)
	intRe      = regexp.MustCompile(`\d+`)
	numCleanRe = regexp.MustCompile(`[₹,]|Rs\.?`)
)

// Placeholder tokens BI tables print in cells with no value.
var placeholderCells = map[string]struct{}{
	"": {}, "-": {}, "--": {}, "—": {}, "–": {}, "NA": {}, "N.A.": {}, "NIL": {},
}

// collapseWS flattens newlines and runs of whitespace into single spaces.
func collapseWS(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// normalizeKey turns a label cell into a lookup key: whitespace collapsed,
// trailing colon stripped, case folded.
func normalizeKey(s string) string {
	s = collapseWS(s)
	s = strings.ReplaceAll(s, " :", ":")
	s = strings.TrimSuffix(s, ":")
	return strings.ToLower(s)
}

// toInt extracts the first integer embedded in a cell ("20 years" -> 20).
// Returns false for cells holding no digits.
func toInt(s string) (int, bool) {
	m := intRe.FindString(strings.ReplaceAll(s, ",", ""))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// toNumber coerces a currency cell to a float, stripping the rupee symbol,
// "Rs." prefixes and thousands separators. Placeholder cells ("-", em-dash)
// and non-numeric text yield false, never an error.
func toNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if _, ok := placeholderCells[strings.ToUpper(s)]; ok {
		return 0, false
	}
	s = strings.TrimSpace(numCleanRe.ReplaceAllString(s, ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
