package product

import (
	"strings"
	"time"

	"github.com/quantbridge/rpucalc/internal/benefit"
	"github.com/quantbridge/rpucalc/internal/document"
	"github.com/quantbridge/rpucalc/internal/extract"
)

// GIS detection confidence levels.
const (
	gisNameConfidence  = 0.95
	gisFuzzyConfidence = 0.55
)

// GISHandler recognizes Guaranteed Income STAR benefit illustrations.
type GISHandler struct{}

// NewGISHandler creates the Guaranteed Income STAR handler.
func NewGISHandler() *GISHandler {
	return &GISHandler{}
}

// ProductID returns the GIS family identifier.
func (h *GISHandler) ProductID() string {
	return "guaranteed_income_star"
}

// Detect looks for the product name in the document text. The full name is
// near-certain; the "Guaranteed Income" phrase together with the product's
// UIN prefix is a weaker signal from degraded extractions where the styled
// "STAR" token gets lost.
func (h *GISHandler) Detect(doc *document.ParsedDocument) float64 {
	text := strings.ToLower(doc.JoinedText())
	if strings.Contains(text, "guaranteed income star") {
		return gisNameConfidence
	}
	if strings.Contains(text, "guaranteed income") && strings.Contains(text, "110n") {
		return gisFuzzyConfidence
	}
	return 0
}

// Extract builds the normalized GIS fields from the parsed document.
func (h *GISHandler) Extract(doc *document.ParsedDocument) *extract.Fields {
	return extract.BuildFields(doc, "Guaranteed Income STAR")
}

// Calculate computes the RPU outputs for GIS fields.
func (h *GISHandler) Calculate(fields *extract.Fields, ptd time.Time) (*benefit.Outputs, error) {
	return benefit.Calculate(fields, ptd)
}
