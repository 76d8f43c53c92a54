// Package product routes parsed documents to product-specific handlers.
// Detection scores every registered handler against the document text and
// the best match performs extraction and calculation.
package product

import (
	"errors"
	"fmt"
	"time"

	"github.com/quantbridge/rpucalc/internal/benefit"
	"github.com/quantbridge/rpucalc/internal/document"
	"github.com/quantbridge/rpucalc/internal/extract"
)

// ErrNoHandlers is returned by Detect when the registry is empty.
var ErrNoHandlers = errors.New("product: no handlers registered")

// Handler implements detection, extraction and calculation for one product
// family. Implementations must be stateless and safe for concurrent use.
type Handler interface {
	// ProductID returns the stable identifier for this product family.
	ProductID() string

	// Detect scores how confidently this handler recognizes the parsed
	// document, in [0, 1]. Zero means no recognizable markers.
	Detect(doc *document.ParsedDocument) float64

	// Extract builds normalized fields from a document this handler
	// recognized.
	Extract(doc *document.ParsedDocument) *extract.Fields

	// Calculate computes the RPU outputs for extracted fields and a PTD.
	Calculate(fields *extract.Fields, ptd time.Time) (*benefit.Outputs, error)
}

// Detection is the result of scoring every registered handler.
type Detection struct {
	Handler    Handler
	ProductID  string
	Confidence float64

	// Scores holds every handler's score keyed by product ID, for
	// diagnostics when confidence is low.
	Scores map[string]float64
}

// Registry holds the known product handlers in registration order.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates a registry pre-loaded with the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Register appends a handler. Registration order breaks confidence ties:
// the earliest registered handler wins.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Detect scores all handlers and returns the best match. A strictly higher
// confidence displaces the current best; ties keep the earlier handler. A
// best confidence of zero is still returned so callers can attach the
// per-handler scores to their error reporting.
func (r *Registry) Detect(doc *document.ParsedDocument) (*Detection, error) {
	if len(r.handlers) == 0 {
		return nil, ErrNoHandlers
	}

	det := &Detection{Scores: make(map[string]float64, len(r.handlers))}
	for _, h := range r.handlers {
		score := h.Detect(doc)
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		if _, dup := det.Scores[h.ProductID()]; dup {
			return nil, fmt.Errorf("product: duplicate handler %q", h.ProductID())
		}
		det.Scores[h.ProductID()] = score

		if det.Handler == nil || score > det.Confidence {
			det.Handler = h
			det.ProductID = h.ProductID()
			det.Confidence = score
		}
	}
	return det, nil
}
