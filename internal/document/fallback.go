package document

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractFallback re-processes the whole document with pdfcpu, scanning
// decoded content streams for text-showing operators. It recovers plain text
// only; layout is lost, so no table grids are produced on this path. Returns
// nil when pdfcpu cannot read the document either.
func extractFallback(fileBytes []byte) *ParsedDocument {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(fileBytes), conf)
	if err != nil {
		return nil
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil
	}

	doc := &ParsedDocument{
		TextByPage:   make([]string, ctx.PageCount),
		TablesByPage: make([][]Table, ctx.PageCount),
		PageCount:    ctx.PageCount,
		Fallback:     true,
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		doc.TextByPage[pageNr-1] = fallbackPageText(ctx, pageNr)
	}
	return doc
}

// fallbackPageText extracts one page's text via its decoded content stream.
func fallbackPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return scanContentStream(data)
}

// pdfStringRe matches PDF literal strings: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// scanContentStream walks a decoded content stream line by line and collects
// the operands of the text-showing operators Tj, TJ and '.
func scanContentStream(data []byte) string {
	var sb strings.Builder

	for _, rawLine := range bytes.Split(data, []byte{'\n'}) {
		ln := bytes.TrimSpace(rawLine)
		if len(ln) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(ln, []byte("Tj")), bytes.HasSuffix(ln, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(ln, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(ln, []byte("'")) && bytes.Contains(ln, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(ln, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(ln, []byte("Td")), bytes.HasSuffix(ln, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(ln, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return normalizeStreamText(sb.String())
}

// decodePDFString resolves the standard PDF string escapes, including octal
// byte escapes such as \040.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(c)
		default:
			if c >= '0' && c <= '7' {
				val := int(c - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

// normalizeStreamText collapses whitespace runs and drops non-printable
// bytes left over from encoded glyph references.
func normalizeStreamText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteRune('\n')
			prevSpace = true
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
