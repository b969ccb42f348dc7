package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const lowConfidenceThreshold = 0.5

var (
	requiredDocuments = []domain.DocumentType{domain.DocumentBill, domain.DocumentDischargeSummary}

	hospitalStopWords = map[string]bool{
		"hospital": true,
		"medical":  true,
		"center":   true,
		"clinic":   true,
		"the":      true,
		"of":       true,
		"and":      true,
	}
)

// DateConsistencyCheck inspects service/admission/discharge dates and returns
// a discrepancy message, or "" when the dates are acceptable.
type DateConsistencyCheck func(serviceDate, admissionDate, dischargeDate string) string

// Validator cross-checks the documents of one claim. It is a pure function of its input.
type Validator struct {
	dateCheck DateConsistencyCheck
}

func NewValidator() *Validator {
	return &Validator{dateCheck: acceptAllDates}
}

// WithDateCheck swaps in a stricter date rule. The default accepts every combination.
func (v *Validator) WithDateCheck(check DateConsistencyCheck) *Validator {
	if check == nil {
		check = acceptAllDates
	}
	return &Validator{dateCheck: check}
}

func (v *Validator) Validate(documents []domain.ProcessedDocument) domain.ValidationResult {
	return domain.ValidationResult{
		MissingDocuments: missingDocuments(documents),
		Discrepancies:    v.discrepancies(documents),
		Warnings:         warnings(documents),
		DataQualityScore: dataQualityScore(documents),
	}
}

func missingDocuments(documents []domain.ProcessedDocument) []string {
	present := make(map[domain.DocumentType]bool, len(documents))
	for _, doc := range documents {
		present[doc.Type] = true
	}
	missing := make([]string, 0, len(requiredDocuments))
	for _, required := range requiredDocuments {
		if !present[required] {
			missing = append(missing, string(required))
		}
	}
	return missing
}

func (v *Validator) discrepancies(documents []domain.ProcessedDocument) []string {
	out := make([]string, 0)
	bill, hasBill := firstOfType(documents, domain.DocumentBill)
	discharge, hasDischarge := firstOfType(documents, domain.DocumentDischargeSummary)
	if !hasBill || !hasDischarge {
		return out
	}

	if bill.PatientName != "" && discharge.PatientName != "" && !namesMatch(bill.PatientName, discharge.PatientName) {
		out = append(out, fmt.Sprintf("Patient name mismatch: Bill(%s) vs Discharge(%s)", bill.PatientName, discharge.PatientName))
	}
	if bill.HospitalName != "" && discharge.HospitalName != "" && !hospitalsMatch(bill.HospitalName, discharge.HospitalName) {
		out = append(out, fmt.Sprintf("Hospital mismatch: %s vs %s", bill.HospitalName, discharge.HospitalName))
	}
	if bill.DateOfService != "" && discharge.AdmissionDate != "" && discharge.DischargeDate != "" {
		if issue := v.dateCheck(bill.DateOfService, discharge.AdmissionDate, discharge.DischargeDate); issue != "" {
			out = append(out, issue)
		}
	}
	return out
}

func warnings(documents []domain.ProcessedDocument) []string {
	out := make([]string, 0)

	lowConfidence := 0
	for _, doc := range documents {
		if doc.Confidence < lowConfidenceThreshold {
			lowConfidence++
		}
	}
	if lowConfidence > 0 {
		out = append(out, fmt.Sprintf("%d documents have low confidence", lowConfidence))
	}

	for _, doc := range documents {
		switch doc.Type {
		case domain.DocumentBill:
			if doc.TotalAmount == nil || *doc.TotalAmount == 0 {
				out = append(out, "Bill amount not found")
			}
			if doc.HospitalName == "" {
				out = append(out, "Hospital name missing from bill")
			}
		case domain.DocumentDischargeSummary:
			if doc.Diagnosis == "" {
				out = append(out, "Diagnosis not found in discharge summary")
			}
		}
		if mixed := doc.ExtractedData.String("detected_types"); mixed != "" {
			out = append(out, fmt.Sprintf("%s appears to contain multiple document types: %s", doc.Filename, mixed))
		}
	}
	return out
}

// dataQualityScore averages per-document confidence plus a 0.1 bonus per key
// field present. Documents with zero confidence earn no bonus.
func dataQualityScore(documents []domain.ProcessedDocument) float64 {
	if len(documents) == 0 {
		return 0
	}
	total := 0.0
	for _, doc := range documents {
		score := domain.ClampConfidence(doc.Confidence)
		if score > 0 {
			score += 0.1 * float64(keyFieldCount(doc))
		}
		total += math.Min(score, 1)
	}
	return domain.ClampConfidence(total / float64(len(documents)))
}

func keyFieldCount(doc domain.ProcessedDocument) int {
	n := 0
	switch doc.Type {
	case domain.DocumentBill:
		if doc.TotalAmount != nil && *doc.TotalAmount != 0 {
			n++
		}
		if doc.HospitalName != "" {
			n++
		}
		if doc.PatientName != "" {
			n++
		}
	case domain.DocumentDischargeSummary:
		if doc.Diagnosis != "" {
			n++
		}
		if doc.AdmissionDate != "" {
			n++
		}
	}
	return n
}

// namesMatch compares whitespace-free lowercase forms by containment, then
// falls back to any shared lowercase word.
func namesMatch(a, b string) bool {
	na := strings.Join(strings.Fields(strings.ToLower(a)), "")
	nb := strings.Join(strings.Fields(strings.ToLower(b)), "")
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return len(intersect(wordSet(a, nil), wordSet(b, nil))) > 0
}

func hospitalsMatch(a, b string) bool {
	return len(intersect(wordSet(a, hospitalStopWords), wordSet(b, hospitalStopWords))) > 0
}

func wordSet(s string, stop map[string]bool) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !stop[w] {
			set[w] = true
		}
	}
	return set
}

func intersect(a, b map[string]bool) []string {
	var out []string
	for w := range a {
		if b[w] {
			out = append(out, w)
		}
	}
	return out
}

func firstOfType(documents []domain.ProcessedDocument, docType domain.DocumentType) (domain.ProcessedDocument, bool) {
	for _, doc := range documents {
		if doc.Type == docType {
			return doc, true
		}
	}
	return domain.ProcessedDocument{}, false
}

func acceptAllDates(string, string, string) string {
	return ""
}
