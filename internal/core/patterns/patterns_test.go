package patterns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const sampleBill = `YASHODA HOSPITAL
BILL OF SUPPLY
Patient Name: JOHN DOE
Registration No: 4512345
Episode No: IP12345
Room charges 12,000.00
Sub Total: 1,20,000.00
Total: ₹ 4,51,168.00
`

const sampleDischarge = `DISCHARGE SUMMARY
Patient Name: JOHN DOE
Admission Date: 03/02/2025
Discharge Date: 10/02/2025
DIAGNOSIS: Bilateral knee osteoarthritis
`

func TestClassifyFilenameFirstRuleWins(t *testing.T) {
	ex := NewDefault()

	tests := []struct {
		filename string
		want     domain.DocumentType
		conf     float64
	}{
		{filename: "hospital_bill.pdf", want: domain.DocumentBill, conf: 0.8},
		{filename: "Discharge-Summary.PDF", want: domain.DocumentDischargeSummary, conf: 0.8},
		{filename: "rx_march.png", want: domain.DocumentPrescription, conf: 0.8},
		{filename: "scan_0001.jpg", want: domain.DocumentUnknown, conf: 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := ex.ClassifyFilename(tt.filename)
			assert.Equal(t, tt.want, got.DocumentType)
			assert.InDelta(t, tt.conf, got.Confidence, 1e-9)
		})
	}
}

func TestScoreContentCountsOverlappingPhrases(t *testing.T) {
	ex := NewDefault()

	score := ex.ScoreContent("Surgery package includes surgery charges")
	// "surgery package"(3) + "charges"(1) for bill; "surgery"(2) for discharge.
	assert.Equal(t, 4, score.Bill)
	assert.Equal(t, 2, score.Discharge)
}

func TestClassifyContentStrongSignal(t *testing.T) {
	ex := NewDefault()

	got := ex.ClassifyContent(sampleBill)
	assert.Equal(t, domain.DocumentBill, got.DocumentType)
	assert.Greater(t, got.Confidence, 0.7)
	assert.LessOrEqual(t, got.Confidence, 0.95)

	got = ex.ClassifyContent(sampleDischarge)
	assert.Equal(t, domain.DocumentDischargeSummary, got.DocumentType)
	assert.Greater(t, got.Confidence, 0.7)
}

func TestClassifyContentTieDefaultsToBill(t *testing.T) {
	ex := NewDefault()

	// bill: "total amount"(3); discharge: "diagnosis"(3).
	got := ex.ClassifyContent("total amount with diagnosis")
	assert.Equal(t, domain.DocumentBill, got.DocumentType)
	assert.InDelta(t, 0.75, got.Confidence, 1e-9)
}

func TestClassifyContentNoSignal(t *testing.T) {
	got := NewDefault().ClassifyContent("hello world")
	assert.Equal(t, domain.DocumentUnknown, got.DocumentType)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
}

func TestExtractBillTakesLastTotal(t *testing.T) {
	guess := NewDefault().ExtractBill(sampleBill)

	amount, ok := guess.Fields.Float("total_amount")
	require.True(t, ok)
	assert.InDelta(t, 451168.0, amount, 1e-6)
	assert.Equal(t, "4512345", guess.Fields.String("registration_no"))
	assert.Equal(t, "IP12345", guess.Fields.String("episode_no"))
	assert.Equal(t, "JOHN DOE", guess.Fields.String("patient_name"))
	assert.Equal(t, "YASHODA HOSPITAL", guess.Fields.String("hospital_name"))
	assert.InDelta(t, 0.7, guess.Confidence, 1e-9)
}

func TestExtractBillSkipsUnparseableLastTotal(t *testing.T) {
	guess := NewDefault().ExtractBill("Total: 1,200.00\nNet Payable: 999.00\nGrand Total ,\n")

	amount, ok := guess.Fields.Float("total_amount")
	require.True(t, ok)
	assert.InDelta(t, 1200.0, amount, 1e-6)
}

func TestExtractBillFallsBackToBareAmount(t *testing.T) {
	guess := NewDefault().ExtractBill("Amount due 451168.00 only")

	amount, ok := guess.Fields.Float("total_amount")
	require.True(t, ok)
	assert.InDelta(t, 451168.0, amount, 1e-6)
	assert.InDelta(t, 0.3, guess.Confidence, 1e-9)
}

func TestExtractDischargeDatesAndDiagnosis(t *testing.T) {
	guess := NewDefault().ExtractDischarge(sampleDischarge)

	assert.Equal(t, "03/02/2025", guess.Fields.String("admission_date"))
	assert.Equal(t, "10/02/2025", guess.Fields.String("discharge_date"))
	assert.Equal(t, "Bilateral knee osteoarthritis", guess.Fields.String("diagnosis"))
	assert.InDelta(t, 0.7, guess.Confidence, 1e-9)
}

func TestDetectMixedTypes(t *testing.T) {
	ex := NewDefault()

	types := ex.DetectMixedTypes(sampleBill + "\n" + sampleDischarge)
	assert.Equal(t, []domain.DocumentType{domain.DocumentBill, domain.DocumentDischargeSummary}, types)
	assert.Empty(t, ex.DetectMixedTypes("nothing to see"))
}

func TestLoadTablesOverridesSections(t *testing.T) {
	doc := `
filename_keywords:
  - type: lab_report
    keywords: [cbc]
strong_score: 6
`
	tables, err := LoadTables(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tables.FilenameRules, 1)
	assert.Equal(t, domain.DocumentLabReport, tables.FilenameRules[0].Type)
	assert.Equal(t, 6, tables.StrongScore)
	assert.Equal(t, DefaultTables().BillIndicators, tables.BillIndicators)

	got := New(tables).ClassifyFilename("cbc_results.pdf")
	assert.Equal(t, domain.DocumentLabReport, got.DocumentType)
}

func TestLoadTablesRejectsUnknownType(t *testing.T) {
	_, err := LoadTables(strings.NewReader("filename_keywords:\n  - type: xray\n    keywords: [x]\n"))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestLoadTablesEmptyDocumentKeepsDefaults(t *testing.T) {
	tables, err := LoadTables(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), tables)
}
