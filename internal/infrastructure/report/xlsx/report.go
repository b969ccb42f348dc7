// Package xlsx exports a processed claim as a two-sheet workbook.
package xlsx

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const (
	DocumentsSheet = "Documents"
	DecisionSheet  = "Decision"
)

var documentHeaders = []string{
	"Filename",
	"Type",
	"Confidence",
	"Patient",
	"Hospital",
	"Total Amount",
	"Admission Date",
	"Discharge Date",
	"Diagnosis",
}

// Write renders resp as XLSX bytes.
func Write(resp *domain.ClaimProcessingResponse) ([]byte, error) {
	if resp == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "write claim report", fmt.Errorf("nil response"))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DocumentsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DecisionSheet); err != nil {
		return nil, fmt.Errorf("create decision sheet: %w", err)
	}

	if err := writeDocuments(f, resp.Documents); err != nil {
		return nil, err
	}
	if err := writeDecision(f, resp); err != nil {
		return nil, err
	}

	index, _ := f.GetSheetIndex(DecisionSheet)
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile saves the report at path.
func WriteFile(path string, resp *domain.ClaimProcessingResponse) error {
	data, err := Write(resp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func writeDocuments(f *excelize.File, documents []domain.ProcessedDocument) error {
	if err := setRow(f, DocumentsSheet, 1, toRow(documentHeaders)); err != nil {
		return err
	}
	for i, doc := range documents {
		var amount any = ""
		if doc.TotalAmount != nil {
			amount = *doc.TotalAmount
		}
		row := []any{
			doc.Filename,
			string(doc.Type),
			doc.Confidence,
			doc.PatientName,
			doc.HospitalName,
			amount,
			doc.AdmissionDate,
			doc.DischargeDate,
			doc.Diagnosis,
		}
		if err := setRow(f, DocumentsSheet, i+2, row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(DocumentsSheet, "A", "A", 32)
	_ = f.SetColWidth(DocumentsSheet, "B", "C", 18)
	_ = f.SetColWidth(DocumentsSheet, "D", "E", 28)
	_ = f.SetColWidth(DocumentsSheet, "F", "H", 16)
	_ = f.SetColWidth(DocumentsSheet, "I", "I", 48)
	return nil
}

func writeDecision(f *excelize.File, resp *domain.ClaimProcessingResponse) error {
	decision := resp.ClaimDecision
	risks := make([]string, len(decision.RiskFactors))
	for i, r := range decision.RiskFactors {
		risks[i] = string(r)
	}

	rows := [][]any{
		{"Claim ID", resp.ProcessingMetadata.ClaimID},
		{"Status", string(decision.Status)},
		{"Confidence", decision.Confidence},
		{"Reason", decision.Reason},
		{"Risk Factors", strings.Join(risks, ", ")},
		{"Recommended Actions", strings.Join(decision.RecommendedActions, "; ")},
		{"Missing Documents", strings.Join(resp.Validation.MissingDocuments, ", ")},
		{"Discrepancies", strings.Join(resp.Validation.Discrepancies, "; ")},
		{"Warnings", strings.Join(resp.Validation.Warnings, "; ")},
		{"Data Quality Score", resp.Validation.DataQualityScore},
	}
	for i, row := range rows {
		if err := setRow(f, DecisionSheet, i+1, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(DecisionSheet, "A", "A", 22)
	_ = f.SetColWidth(DecisionSheet, "B", "B", 80)
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
