// Package pipeline wires the loader, product registry and calculator into
// one parse -> detect -> extract -> compute flow, with content-addressed
// caching of parsed documents.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/quantbridge/rpucalc/internal/benefit"
	"github.com/quantbridge/rpucalc/internal/document"
	"github.com/quantbridge/rpucalc/internal/extract"
	"github.com/quantbridge/rpucalc/internal/product"
)

// Service runs the end-to-end RPU flow. Safe for concurrent use.
type Service struct {
	loader   *document.Loader
	cache    *document.ParseCache
	registry *product.Registry
}

// NewService creates a pipeline service. A nil cache disables parse caching.
func NewService(loader *document.Loader, cache *document.ParseCache, registry *product.Registry) *Service {
	return &Service{
		loader:   loader,
		cache:    cache,
		registry: registry,
	}
}

// Result is the full outcome of processing one document with one PTD.
type Result struct {
	CaseID     string             `json:"case_id"`
	FileHash   string             `json:"file_hash"`
	ProductID  string             `json:"product_id"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"detection_scores,omitempty"`
	Fields     *extract.Fields    `json:"fields"`
	Outputs    *benefit.Outputs   `json:"outputs"`
}

// Parse loads a document through the content-hash-keyed cache. Identical
// bytes parse at most once per cache window.
func (s *Service) Parse(fileBytes []byte) (*document.ParsedDocument, error) {
	if s.cache == nil {
		return s.loader.Load(fileBytes)
	}
	return s.cache.GetOrParse(FileHash(fileBytes), func() (*document.ParsedDocument, error) {
		return s.loader.Load(fileBytes)
	})
}

// ExtractAndDetect scores the registered products against the document and
// extracts fields with the winning handler.
func (s *Service) ExtractAndDetect(doc *document.ParsedDocument) (*extract.Fields, *product.Detection, error) {
	det, err := s.registry.Detect(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting product: %w", err)
	}
	return det.Handler.Extract(doc), det, nil
}

// Compute runs the whole flow for one uploaded file and PTD.
func (s *Service) Compute(fileBytes []byte, ptd time.Time) (*Result, error) {
	doc, err := s.Parse(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	fields, det, err := s.ExtractAndDetect(doc)
	if err != nil {
		return nil, err
	}

	out, err := det.Handler.Calculate(fields, ptd)
	if err != nil {
		return nil, fmt.Errorf("calculating benefits: %w", err)
	}

	return &Result{
		CaseID:     CaseID(det.ProductID, fields, ptd, out.RCD),
		FileHash:   FileHash(fileBytes),
		ProductID:  det.ProductID,
		Confidence: det.Confidence,
		Scores:     det.Scores,
		Fields:     fields,
		Outputs:    out,
	}, nil
}

// FileHash returns the sha256 hex digest of the raw upload.
func FileHash(fileBytes []byte) string {
	sum := sha256.Sum256(fileBytes)
	return hex.EncodeToString(sum[:])
}

// CaseID derives a stable identifier for one policy + PTD combination.
// The same document and PTD always map to the same case, so repeated
// calculations collapse to one stored row. The proposer name participates
// in the hash (normalized) but only its digest ever leaves this function.
func CaseID(productID string, fields *extract.Fields, ptd, rcd time.Time) string {
	parts := []string{
		productID,
		fields.ProductUIN,
		dateKey(fields.BIDate),
		dateKey(ptd),
		dateKey(rcd),
		fields.Mode,
		fmt.Sprintf("%d", fields.PolicyTermYears),
		fmt.Sprintf("%d", fields.PPTYears),
		numKey(fields.AnnualizedPremium),
		strings.ToLower(strings.TrimSpace(fields.ProposerName)),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func numKey(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}
