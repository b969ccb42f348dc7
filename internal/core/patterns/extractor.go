// Package patterns holds the deterministic keyword and regular-expression
// extraction used as a low-confidence fallback next to the model oracle.
package patterns

import (
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const (
	filenameMatchConfidence = 0.8
	noSignalConfidence      = 0.3
	weakContentConfidence   = 0.75
	strongContentBase       = 0.7
	strongContentStep       = 0.05
	strongContentCap        = 0.95
)

// Guess is a pattern-based extraction result.
type Guess struct {
	Fields     domain.Fields
	Confidence float64
}

// ContentScore holds the weighted indicator sums for a piece of text.
type ContentScore struct {
	Bill      int
	Discharge int
}

type Extractor struct {
	tables Tables
}

func New(tables Tables) *Extractor {
	return &Extractor{tables: tables}
}

func NewDefault() *Extractor {
	return New(DefaultTables())
}

// ClassifyFilename applies the filename keyword rules; the first matching rule wins.
func (e *Extractor) ClassifyFilename(filename string) domain.ClassificationResult {
	lower := strings.ToLower(filename)
	for _, rule := range e.tables.FilenameRules {
		for _, keyword := range rule.Keywords {
			if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
				return domain.ClassificationResult{
					DocumentType: rule.Type,
					Confidence:   filenameMatchConfidence,
					Reasoning:    fmt.Sprintf("filename contains keyword %q", keyword),
				}
			}
		}
	}
	return domain.ClassificationResult{
		DocumentType: domain.DocumentUnknown,
		Confidence:   noSignalConfidence,
		Reasoning:    "no filename keyword matched",
	}
}

// ScoreContent sums indicator weights by case-insensitive substring containment.
// Overlapping phrases are each counted.
func (e *Extractor) ScoreContent(text string) ContentScore {
	lower := strings.ToLower(text)
	return ContentScore{
		Bill:      sumIndicators(lower, e.tables.BillIndicators),
		Discharge: sumIndicators(lower, e.tables.DischargeIndicators),
	}
}

func (e *Extractor) ClassifyContent(text string) domain.ClassificationResult {
	score := e.ScoreContent(text)
	reasoning := fmt.Sprintf("content indicators bill=%d discharge=%d", score.Bill, score.Discharge)
	strong, weak := e.tables.StrongScore, e.tables.WeakScore

	switch {
	case score.Bill >= strong && score.Bill > score.Discharge:
		return domain.ClassificationResult{
			DocumentType: domain.DocumentBill,
			Confidence:   strongConfidence(score.Bill),
			Reasoning:    reasoning,
		}
	case score.Discharge >= strong && score.Discharge > score.Bill:
		return domain.ClassificationResult{
			DocumentType: domain.DocumentDischargeSummary,
			Confidence:   strongConfidence(score.Discharge),
			Reasoning:    reasoning,
		}
	case score.Bill >= weak || score.Discharge >= weak:
		docType := domain.DocumentBill
		if score.Discharge > score.Bill {
			docType = domain.DocumentDischargeSummary
		}
		return domain.ClassificationResult{
			DocumentType: docType,
			Confidence:   weakContentConfidence,
			Reasoning:    reasoning,
		}
	default:
		return domain.ClassificationResult{
			DocumentType: domain.DocumentUnknown,
			Confidence:   noSignalConfidence,
			Reasoning:    reasoning,
		}
	}
}

// DetectMixedTypes lists each document type whose indicator set appears in text.
func (e *Extractor) DetectMixedTypes(text string) []domain.DocumentType {
	lower := strings.ToLower(text)
	var types []domain.DocumentType
	if containsAny(lower, e.tables.MixedBillIndicators) {
		types = append(types, domain.DocumentBill)
	}
	if containsAny(lower, e.tables.MixedDischargeIndicators) {
		types = append(types, domain.DocumentDischargeSummary)
	}
	return types
}

func strongConfidence(score int) float64 {
	return math.Min(strongContentBase+float64(score)*strongContentStep, strongContentCap)
}

func sumIndicators(lowerText string, indicators []Indicator) int {
	total := 0
	for _, ind := range indicators {
		if strings.Contains(lowerText, strings.ToLower(ind.Phrase)) {
			total += ind.Weight
		}
	}
	return total
}

func containsAny(lowerText string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lowerText, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func patternConfidence(found int) float64 {
	if found > 2 {
		return 0.7
	}
	return 0.3
}
