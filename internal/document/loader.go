package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// DefaultMaxFileSize bounds the accepted upload size.
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB

	// minMeaningfulTextLen is the total extracted-text length below which
	// the primary extraction is considered failed (e.g. a scanned or
	// rotated document) and the fallback extractor takes over.
	minMeaningfulTextLen = 50

	// scheduleMarker triggers table extraction on later pages. The
	// year-by-year schedule table carries a "Policy Year" heading; once it
	// appears, every following page is table-extracted because multi-page
	// schedule tables omit the repeated header.
	scheduleMarker = "policy year"

	// summaryTablePages is the number of leading pages whose tables are
	// always extracted; they hold the key/value summary blocks.
	summaryTablePages = 2
)

// Loader converts raw PDF bytes into a ParsedDocument. It is safe for
// concurrent use; every Load call operates on its own state.
type Loader struct {
	maxFileSize int64
}

// NewLoader creates a loader with the given file size limit. A non-positive
// limit selects DefaultMaxFileSize.
func NewLoader(maxFileSize int64) *Loader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Loader{maxFileSize: maxFileSize}
}

// Load extracts page-indexed text and table grids from PDF bytes. A single
// page's extraction fault yields empty text for that page, never a failed
// load. When the primary extractor recovers almost no text, the whole
// document is re-processed by the plain-text fallback; the fallback recovers
// no table data. Load returns an error only for inputs that are not a PDF at
// all or exceed the size limit.
func (l *Loader) Load(fileBytes []byte) (*ParsedDocument, error) {
	if int64(len(fileBytes)) > l.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", len(fileBytes), l.maxFileSize)
	}
	if !bytes.HasPrefix(fileBytes, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF document")
	}

	doc := l.extractPrimary(fileBytes)
	if doc == nil || doc.TotalTextLen() < minMeaningfulTextLen {
		if fb := extractFallback(fileBytes); fb != nil && fb.TotalTextLen() >= minMeaningfulTextLen {
			return fb, nil
		}
	}
	if doc == nil {
		// Degraded result: the caller rejects downstream on low field
		// coverage rather than the loader aborting the pipeline.
		doc = &ParsedDocument{}
	}
	return doc, nil
}

// extractPrimary runs the layout-aware ledongthuc extraction. Returns nil
// when the document cannot be opened at all.
func (l *Loader) extractPrimary(fileBytes []byte) (doc *ParsedDocument) {
	defer func() {
		if recover() != nil {
			doc = nil
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil
	}

	numPages := reader.NumPage()
	doc = &ParsedDocument{
		TextByPage:   make([]string, numPages),
		TablesByPage: make([][]Table, numPages),
		PageCount:    numPages,
	}

	scheduleSeen := false
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		frags := extractPageFragments(reader, pageNum)
		text := pageText(frags)
		doc.TextByPage[pageNum-1] = text

		if !scheduleSeen && strings.Contains(strings.ToLower(text), scheduleMarker) {
			scheduleSeen = true
		}

		// Table reconstruction is selective for cost control: always on
		// the summary pages, and on every page from the first schedule
		// marker onward.
		if pageNum <= summaryTablePages || scheduleSeen {
			doc.TablesByPage[pageNum-1] = pageTables(frags)
		}
	}
	return doc
}

// extractPageFragments pulls positioned text fragments from one page,
// absorbing per-page parser panics from malformed content streams.
func extractPageFragments(reader *pdf.Reader, pageNum int) (frags []pdf.Text) {
	defer func() {
		if recover() != nil {
			frags = nil
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return nil
	}
	return page.Content().Text
}
