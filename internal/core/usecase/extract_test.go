package usecase

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

func TestBillExtractorMergesOracleOverPatterns(t *testing.T) {
	oracle := &oracleFake{respond: replyWith(`{
		"hospital_name": "Apollo Hospital",
		"patient_name": null,
		"total_amount": "₹1,200.50",
		"confidence": 0.9,
		"insurer": "Star Health"
	}`)}
	ex := NewBillExtractor(nil, newTestGateway(oracle, time.Second, nil))

	got, err := ex.Extract(context.Background(), sampleBillText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	wantKeys := []string{"hospital_name", "patient_name", "total_amount", "registration_no", "episode_no", "insurer"}
	if keys := got.Fields.Keys(); !reflect.DeepEqual(keys, wantKeys) {
		t.Fatalf("unexpected key order %v", keys)
	}
	if v := got.Fields.String("hospital_name"); v != "Apollo Hospital" {
		t.Fatalf("expected oracle hospital, got %q", v)
	}
	if v := got.Fields.String("patient_name"); v != "JOHN DOE" {
		t.Fatalf("expected pattern patient name for null oracle value, got %q", v)
	}
	if amount, ok := got.Fields.Float("total_amount"); !ok || amount != 1200.5 {
		t.Fatalf("expected normalised amount 1200.5, got %v", amount)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", got.Confidence)
	}
}

func TestBillExtractorIgnoresNonFiniteOracleAmount(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Infinity"} {
		oracle := &oracleFake{respond: replyWith(`{"hospital_name": "Apollo Hospital", "total_amount": "` + raw + `", "confidence": 0.9}`)}
		ex := NewBillExtractor(nil, newTestGateway(oracle, time.Second, nil))

		got, err := ex.Extract(context.Background(), sampleBillText)
		if err != nil {
			t.Fatalf("%s: Extract() error = %v", raw, err)
		}
		if amount, ok := got.Fields.Float("total_amount"); !ok || amount != 451168 {
			t.Fatalf("%s: expected pattern total 451168, got %v", raw, amount)
		}

		doc := domain.NewProcessedDocument(domain.DocumentBill, "bill.pdf", got.Confidence, got.Fields)
		if _, err := json.Marshal(doc); err != nil {
			t.Fatalf("%s: processed document must encode: %v", raw, err)
		}
	}
}

func TestParseAmountRejectsNonFinite(t *testing.T) {
	for _, v := range []any{"NaN", "inf", "+Infinity", math.NaN(), math.Inf(1)} {
		if got, ok := domain.ParseAmount(v); ok {
			t.Fatalf("ParseAmount(%v) = %v, want rejection", v, got)
		}
	}
	if got, ok := domain.ParseAmount("Rs. 1,250.00"); !ok || got != 1250 {
		t.Fatalf("ParseAmount(currency) = %v, %v", got, ok)
	}
}

func TestBillExtractorPatternOnly(t *testing.T) {
	ex := NewBillExtractor(nil, nil)

	got, err := ex.Extract(context.Background(), sampleBillText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if amount, _ := got.Fields.Float("total_amount"); amount != 451168 {
		t.Fatalf("expected last total 451168, got %v", amount)
	}
	if math.Abs(got.Confidence-0.35) > 1e-9 {
		t.Fatalf("expected confidence 0.35, got %v", got.Confidence)
	}
}

func TestBillExtractorRejectsEmptyText(t *testing.T) {
	ex := NewBillExtractor(nil, nil)

	_, err := ex.Extract(context.Background(), "   \n")
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestDischargeExtractorKeyFieldBoost(t *testing.T) {
	ex := NewDischargeExtractor(nil, nil)

	got, err := ex.Extract(context.Background(), sampleDischargeText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if v := got.Fields.String("admission_date"); v != "03/02/2025" {
		t.Fatalf("unexpected admission date %q", v)
	}
	if v := got.Fields.String("discharge_date"); v != "10/02/2025" {
		t.Fatalf("unexpected discharge date %q", v)
	}
	if math.Abs(got.Confidence-0.55) > 1e-9 {
		t.Fatalf("expected 0.35 + 0.2 boost, got %v", got.Confidence)
	}
}

func TestDischargeExtractorOracleFailureKeepsPatterns(t *testing.T) {
	oracle := &oracleFake{respond: replyWith("not json at all")}
	ex := NewDischargeExtractor(nil, newTestGateway(oracle, time.Second, nil))

	got, err := ex.Extract(context.Background(), sampleDischargeText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if v := got.Fields.String("diagnosis"); v != "Bilateral knee osteoarthritis" {
		t.Fatalf("unexpected diagnosis %q", v)
	}
	if oracle.calls() != 1 {
		t.Fatalf("expected one oracle call, got %d", oracle.calls())
	}
}

func TestGenericExtractor(t *testing.T) {
	got, err := GenericExtractor{}.Extract(context.Background(), "Member ID 1234")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3, got %v", got.Confidence)
	}
	if got.Fields.String("note") != "generic processing applied" {
		t.Fatalf("missing note, got %v", got.Fields.Keys())
	}
	if got.Fields.String("raw_text") != "Member ID 1234" {
		t.Fatalf("unexpected raw text %q", got.Fields.String("raw_text"))
	}
}

func TestCombineConfidenceNeverBelowOracle(t *testing.T) {
	tests := []struct {
		oracle, pattern, want float64
	}{
		{oracle: 0, pattern: 0.7, want: 0.35},
		{oracle: 0.9, pattern: 0.1, want: 0.9},
		{oracle: 0.4, pattern: 1, want: 0.7},
		{oracle: math.NaN(), pattern: 0.3, want: 0.15},
	}
	for _, tt := range tests {
		got := combineConfidence(tt.oracle, tt.pattern)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("combineConfidence(%v, %v) = %v, want %v", tt.oracle, tt.pattern, got, tt.want)
		}
	}
}

func TestParseOracleJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "plain", raw: `{"a":1}`},
		{name: "fenced", raw: "```json\n{\"a\":1}\n```"},
		{name: "chatty", raw: "Sure! Here it is: {\"a\":1} hope that helps"},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "no object", raw: "[1,2,3]", wantErr: true},
		{name: "broken", raw: `{"a":}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := parseOracleJSON(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOracleJSON() error = %v", err)
			}
			if payload["a"] != float64(1) {
				t.Fatalf("unexpected payload %v", payload)
			}
		})
	}
}
