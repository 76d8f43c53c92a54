// Package extract builds normalized policy attributes and the year-by-year
// benefit schedule from a parsed Benefit Illustration. All extraction is
// best-effort: a field or column that cannot be located surfaces as an
// absent value, never as an error.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/quantbridge/rpucalc/internal/dates"
	"github.com/quantbridge/rpucalc/internal/document"
)

// ScheduleRow is one policy year's extracted benefit amounts. Absent
// categories stay nil. PolicyYear is 1-based relative to the RCD.
type ScheduleRow struct {
	PolicyYear   int      `json:"policy_year"`
	Income       *float64 `json:"income,omitempty"`
	Maturity     *float64 `json:"maturity,omitempty"`
	Death        *float64 `json:"death,omitempty"`
	SurrenderGSV *float64 `json:"gsv,omitempty"`
	SurrenderSSV *float64 `json:"ssv,omitempty"`
}

// Fields holds the normalized policy attributes extracted from one parsed
// document. Immutable after extraction.
type Fields struct {
	ProductName string `json:"product_name"`
	ProductUIN  string `json:"product_uin,omitempty"`

	BIDate time.Time `json:"bi_generation_date"`

	// ProposerName is transient: it exists in memory for the current
	// request only and is excluded from every serialized form, so it can
	// never reach a durable write.
	ProposerName string `json:"-"`

	Mode            string `json:"mode"`
	PolicyTermYears int    `json:"policy_term_years"`
	PPTYears        int    `json:"ppt_years"`

	AnnualizedPremium *float64 `json:"annualized_premium_excl_tax,omitempty"`

	IncomeDurationYears   *int   `json:"income_duration_years,omitempty"`
	IncomePayoutFrequency string `json:"income_payout_frequency,omitempty"`
	IncomePayoutType      string `json:"income_payout_type,omitempty"`

	SumAssuredOnDeath *float64 `json:"sum_assured_on_death,omitempty"`

	Schedule []ScheduleRow `json:"schedule_rows"`
}

// biDateRe matches the "2 Jan 2006" style date tokens printed on BI page 1.
var biDateRe = regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-z]{3})\s+(\d{4})\b`)

// BIGenerationDate returns the first parseable date token on page 1. The
// quote date is printed in the page header, so it appears early in the
// extracted text. A zero time means no date was found.
func BIGenerationDate(pageOneText string) time.Time {
	for _, m := range biDateRe.FindAllStringSubmatch(pageOneText, -1) {
		mon := strings.ToUpper(m[2][:1]) + strings.ToLower(m[2][1:])
		token := m[1] + " " + mon + " " + m[3]
		if t, err := time.Parse("2 Jan 2006", token); err == nil {
			return t
		}
	}
	return time.Time{}
}

// KeyValues builds the normalized label -> value map from every table row
// with at least two cells, in document order. Later occurrences of the same
// normalized key overwrite earlier ones.
func KeyValues(doc *document.ParsedDocument) map[string]string {
	kv := make(map[string]string)
	for _, tb := range doc.AllTables() {
		for _, row := range tb {
			if len(row) < 2 {
				continue
			}
			k := normalizeKey(row[0])
			if k == "" {
				continue
			}
			kv[k] = collapseWS(row[1])
		}
	}
	return kv
}

// lookup returns the first present key's value from the kv map. BI revisions
// label the same field differently, so callers pass the known variants.
func lookup(kv map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := kv[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// BuildFields assembles the normalized attributes for a GIS-family document.
// defaultProductName is used when the document does not label itself.
func BuildFields(doc *document.ParsedDocument, defaultProductName string) *Fields {
	kv := KeyValues(doc)

	f := &Fields{
		ProductName:  defaultProductName,
		ProductUIN:   lookup(kv, "unique identification no.", "unique identification number", "uin"),
		BIDate:       BIGenerationDate(doc.FirstPageText()),
		ProposerName: lookup(kv, "name of the prospect/policyholder", "name of the prospect / policyholder", "name of the policyholder"),
		Mode:         dates.NormalizeMode(lookup(kv, "mode of payment of premium", "premium payment mode", "mode")),
	}
	if name := lookup(kv, "name of the product", "product name"); name != "" {
		f.ProductName = name
	}

	if pt, ok := toInt(lookup(kv, "policy term (in years)", "policy term")); ok {
		f.PolicyTermYears = pt
	}
	if ppt, ok := toInt(lookup(kv, "premium payment term (in years)", "premium payment term")); ok {
		f.PPTYears = ppt
	}
	if prem, ok := toNumber(lookup(kv,
		"annualized premium (excluding applicable taxes)", "annualized premium", "annualised premium")); ok {
		f.AnnualizedPremium = &prem
	}
	if sa, ok := toNumber(lookup(kv,
		"sum assured on death (at inception of the policy)", "sum assured on death")); ok {
		f.SumAssuredOnDeath = &sa
	}
	if dur, ok := toInt(lookup(kv, "income duration (in years)", "income duration")); ok {
		f.IncomeDurationYears = &dur
	}
	f.IncomePayoutFrequency = lookup(kv, "income frequency", "income payout frequency")
	f.IncomePayoutType = lookup(kv, "income type", "income payout type")

	f.Schedule = ExtractSchedule(doc, f.PolicyTermYears)
	return f
}
