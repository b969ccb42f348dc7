package usecase

import (
	"fmt"
	"strings"
)

const (
	classificationPreviewChars = 800
	billPromptChars            = 3000
	dischargePromptChars       = 4000
)

func buildClassificationPrompt(filename, preview string) string {
	return fmt.Sprintf(`You are a medical document classifier. Classify the document by its filename and content.
The document may contain several kinds of medical paperwork; classify by the PRIMARY content.

Document types:
- bill: medical bills, invoices, billing statements (amounts, charges, totals)
- discharge_summary: hospital discharge or medical summaries (diagnosis, admission/discharge dates)
- id_card: insurance cards, patient ID cards
- prescription: prescription forms, medication lists
- lab_report: laboratory results, diagnostic reports
- unknown: unclear or none of the above

Filename: %s
Content preview: %s

Respond with JSON only:
{"document_type": "bill|discharge_summary|id_card|prescription|lab_report|unknown", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`,
		filename, truncateRunes(preview, classificationPreviewChars))
}

func buildBillPrompt(text string) string {
	return fmt.Sprintf(`You are a medical billing specialist. Extract key information from this medical bill.

Text: %s

Use null for anything not found. Respond with ONLY valid JSON:
{
  "hospital_name": "string or null",
  "patient_name": "string or null",
  "total_amount": number or null,
  "date_of_service": "YYYY-MM-DD or null",
  "doctor_name": "string or null",
  "diagnosis": "string or null",
  "registration_no": "string or null",
  "episode_no": "string or null",
  "room_charges": number or null,
  "medicine_charges": number or null,
  "confidence": 0.0-1.0
}`, truncateRunes(text, billPromptChars))
}

func buildDischargePrompt(text string) string {
	return fmt.Sprintf(`You are a medical records specialist. Extract information from this discharge summary.

Text: %s

Use null for anything not found. Respond with ONLY valid JSON:
{
  "patient_name": "string or null",
  "admission_date": "YYYY-MM-DD or null",
  "discharge_date": "YYYY-MM-DD or null",
  "diagnosis": "string or null",
  "secondary_diagnoses": ["list"],
  "doctor_name": "string or null",
  "hospital_name": "string or null",
  "treatment_summary": "string or null",
  "discharge_condition": "string or null",
  "follow_up_instructions": "string or null",
  "confidence": 0.0-1.0
}`, truncateRunes(text, dischargePromptChars))
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
