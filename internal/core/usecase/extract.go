package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/patterns"
)

const (
	genericConfidence  = 0.3
	dischargeFieldBump = 0.2
)

var (
	billFieldOrder = []string{
		"hospital_name",
		"patient_name",
		"total_amount",
		"date_of_service",
		"doctor_name",
		"diagnosis",
		"registration_no",
		"episode_no",
		"room_charges",
		"medicine_charges",
	}
	dischargeFieldOrder = []string{
		"patient_name",
		"admission_date",
		"discharge_date",
		"diagnosis",
		"secondary_diagnoses",
		"doctor_name",
		"hospital_name",
		"treatment_summary",
		"discharge_condition",
		"follow_up_instructions",
	}
	amountFields = map[string]bool{
		"total_amount":     true,
		"room_charges":     true,
		"medicine_charges": true,
	}
)

// Extraction is the structured output of a type-specific extractor.
type Extraction struct {
	Confidence float64
	Fields     domain.Fields
}

// DocumentExtractor turns raw document text into structured fields.
type DocumentExtractor interface {
	Extract(ctx context.Context, text string) (Extraction, error)
}

var errNoText = errors.New("no text to process")

type BillExtractor struct {
	patterns *patterns.Extractor
	oracle   *OracleGateway
}

func NewBillExtractor(extractor *patterns.Extractor, oracle *OracleGateway) *BillExtractor {
	if extractor == nil {
		extractor = patterns.NewDefault()
	}
	return &BillExtractor{patterns: extractor, oracle: oracle}
}

func (e *BillExtractor) Extract(ctx context.Context, text string) (Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract bill", errNoText)
	}

	oracleResult := e.oracle.invoke(ctx, "extract_bill", buildBillPrompt(text), billSchema)
	guess := e.patterns.ExtractBill(text)

	fields := mergeFields(billFieldOrder, oracleResult, guess.Fields)
	return Extraction{
		Confidence: combineConfidence(oracleResult.Confidence(0), guess.Confidence),
		Fields:     fields,
	}, nil
}

type DischargeExtractor struct {
	patterns *patterns.Extractor
	oracle   *OracleGateway
}

func NewDischargeExtractor(extractor *patterns.Extractor, oracle *OracleGateway) *DischargeExtractor {
	if extractor == nil {
		extractor = patterns.NewDefault()
	}
	return &DischargeExtractor{patterns: extractor, oracle: oracle}
}

func (e *DischargeExtractor) Extract(ctx context.Context, text string) (Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract discharge summary", errNoText)
	}

	oracleResult := e.oracle.invoke(ctx, "extract_discharge", buildDischargePrompt(text), dischargeSchema)
	guess := e.patterns.ExtractDischarge(text)

	fields := mergeFields(dischargeFieldOrder, oracleResult, guess.Fields)
	confidence := combineConfidence(oracleResult.Confidence(0), guess.Confidence)
	if fields.Has("diagnosis") || fields.Has("admission_date") {
		confidence = math.Min(confidence+dischargeFieldBump, 1)
	}
	return Extraction{
		Confidence: domain.ClampConfidence(confidence),
		Fields:     fields,
	}, nil
}

// GenericExtractor handles every type without a specialised extractor.
type GenericExtractor struct{}

func (GenericExtractor) Extract(_ context.Context, text string) (Extraction, error) {
	var fields domain.Fields
	fields.Set("raw_text", text)
	fields.Set("note", "generic processing applied")
	return Extraction{Confidence: genericConfidence, Fields: fields}, nil
}

// combineConfidence lets pattern evidence pull the score toward the average
// but never above what the oracle alone reported.
func combineConfidence(oracleConfidence, patternConfidence float64) float64 {
	g := domain.ClampConfidence(oracleConfidence)
	r := domain.ClampConfidence(patternConfidence)
	return domain.ClampConfidence(math.Max(g, (g+r)/2))
}

// mergeFields takes each known field from the oracle when it is non-null and
// from the pattern guess otherwise. Unknown oracle keys follow in sorted order.
func mergeFields(order []string, oracle OracleResult, guess domain.Fields) domain.Fields {
	var merged domain.Fields
	known := make(map[string]bool, len(order))

	for _, key := range order {
		known[key] = true
		if v, ok := oracleValue(oracle, key); ok {
			merged.Set(key, v)
			continue
		}
		if guess.Has(key) {
			v, _ := guess.Get(key)
			merged.Set(key, v)
		}
	}

	if oracle.OK() {
		extra := make([]string, 0)
		for key := range oracle.Payload {
			if !known[key] && key != "confidence" {
				extra = append(extra, key)
			}
		}
		sort.Strings(extra)
		for _, key := range extra {
			if v := oracle.Payload[key]; !domain.IsBlank(v) {
				merged.Set(key, v)
			}
		}
	}

	for _, key := range guess.Keys() {
		if !known[key] && !merged.Has(key) {
			v, _ := guess.Get(key)
			merged.Set(key, v)
		}
	}
	return merged
}

func oracleValue(oracle OracleResult, key string) (any, bool) {
	if !oracle.OK() {
		return nil, false
	}
	v, ok := oracle.Payload[key]
	if !ok || domain.IsBlank(v) {
		return nil, false
	}
	if amountFields[key] {
		amount, ok := domain.ParseAmount(v)
		if !ok {
			return nil, false
		}
		return amount, true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), true
	}
	return v, true
}
