package xlsx

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

func sampleResponse() *domain.ClaimProcessingResponse {
	var data domain.Fields
	data.Set("patient_name", "JOHN DOE")
	data.Set("total_amount", 451168.0)
	return &domain.ClaimProcessingResponse{
		Documents: []domain.ProcessedDocument{
			domain.NewProcessedDocument(domain.DocumentBill, "bill.pdf", 0.9, data),
		},
		Validation: domain.ValidationResult{
			MissingDocuments: []string{"discharge_summary"},
			DataQualityScore: 1,
		},
		ClaimDecision: domain.ClaimDecision{
			Status:             domain.ClaimPending,
			Reason:             "Requires manual review - mixed confidence indicators",
			Confidence:         0.9,
			RiskFactors:        []domain.RiskFactor{domain.RiskIncompleteDocumentation},
			RecommendedActions: []string{"manual review required", "request missing documents"},
		},
		ProcessingMetadata: domain.ProcessingMetadata{ClaimID: "claim-1"},
	}
}

func TestWriteProducesBothSheets(t *testing.T) {
	data, err := Write(sampleResponse())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	docs, err := f.GetRows(DocumentsSheet)
	if err != nil {
		t.Fatalf("GetRows(documents) error = %v", err)
	}
	if len(docs) != 2 || docs[1][0] != "bill.pdf" || docs[1][1] != "bill" || docs[1][3] != "JOHN DOE" {
		t.Fatalf("unexpected documents sheet %v", docs)
	}
	if docs[1][5] != "451168" {
		t.Fatalf("unexpected amount cell %q", docs[1][5])
	}

	status, err := f.GetCellValue(DecisionSheet, "B2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if status != "pending" {
		t.Fatalf("expected pending, got %q", status)
	}
	risks, _ := f.GetCellValue(DecisionSheet, "B5")
	if risks != "incomplete_documentation" {
		t.Fatalf("unexpected risks %q", risks)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claim.xlsx")
	if err := WriteFile(path, sampleResponse()); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 2 || got[0] != DocumentsSheet || got[1] != DecisionSheet {
		t.Fatalf("unexpected sheets %v", got)
	}
}

func TestWriteNilResponse(t *testing.T) {
	if _, err := Write(nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
