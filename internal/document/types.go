// Package document turns raw Benefit Illustration PDF bytes into
// page-indexed text and page-indexed table grids. The primary extractor is
// layout-aware; a plain-text fallback covers documents the primary extractor
// cannot read. A ParsedDocument is immutable once produced.
package document

import "strings"

// Table is an ordered grid of rows; a row is an ordered sequence of cell
// strings. An empty string marks a cell with no extractable text.
type Table [][]string

// ParsedDocument holds the page-ordered extraction result for one document.
// Index i of TextByPage and TablesByPage refers to page i+1.
type ParsedDocument struct {
	TextByPage   []string
	TablesByPage [][]Table
	PageCount    int

	// Fallback reports whether the plain-text fallback extractor produced
	// the text. Table data is never available on the fallback path.
	Fallback bool
}

// JoinedText returns the concatenated text of all pages, separated by
// newlines. Detection runs case-insensitive matching over this string.
func (d *ParsedDocument) JoinedText() string {
	return strings.Join(d.TextByPage, "\n")
}

// FirstPageText returns the text of page 1, or "" for an empty document.
func (d *ParsedDocument) FirstPageText() string {
	if len(d.TextByPage) == 0 {
		return ""
	}
	return d.TextByPage[0]
}

// AllTables returns every extracted table in document order.
func (d *ParsedDocument) AllTables() []Table {
	var out []Table
	for _, pageTables := range d.TablesByPage {
		out = append(out, pageTables...)
	}
	return out
}

// TotalTextLen returns the total number of non-whitespace-trimmed runes
// across all pages, used to decide whether the primary extraction succeeded.
func (d *ParsedDocument) TotalTextLen() int {
	n := 0
	for _, t := range d.TextByPage {
		n += len([]rune(strings.TrimSpace(t)))
	}
	return n
}
