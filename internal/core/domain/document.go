package domain

import (
	"math"
	"strings"
)

type DocumentType string

const (
	DocumentBill             DocumentType = "bill"
	DocumentDischargeSummary DocumentType = "discharge_summary"
	DocumentIDCard           DocumentType = "id_card"
	DocumentPrescription     DocumentType = "prescription"
	DocumentLabReport        DocumentType = "lab_report"
	DocumentUnknown          DocumentType = "unknown"
)

// DocumentTypes lists every supported type in declaration order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentBill,
		DocumentDischargeSummary,
		DocumentIDCard,
		DocumentPrescription,
		DocumentLabReport,
		DocumentUnknown,
	}
}

// ParseDocumentType maps a raw value onto the closed set of document types.
func ParseDocumentType(raw string) (DocumentType, bool) {
	candidate := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range DocumentTypes() {
		if t == candidate {
			return t, true
		}
	}
	return DocumentUnknown, false
}

type ClassificationResult struct {
	DocumentType DocumentType `json:"document_type"`
	Confidence   float64      `json:"confidence"`
	Reasoning    string       `json:"reasoning"`
}

// Upload is a single file submitted as part of a claim.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredDocument is the file-save collaborator's view of a persisted upload.
type StoredDocument struct {
	Path           string `json:"path"`
	Filename       string `json:"filename"`
	ContentPreview string `json:"content_preview,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	SHA256         string `json:"sha256"`
	Size           int64  `json:"size"`
}

// ExtractedText is the raw text pulled out of a stored document.
type ExtractedText struct {
	Text       string  `json:"-"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

type ProcessedDocument struct {
	Type          DocumentType `json:"type"`
	Filename      string       `json:"filename"`
	Confidence    float64      `json:"confidence"`
	ExtractedData Fields       `json:"extracted_data"`

	HospitalName     string   `json:"hospital_name,omitempty"`
	PatientName      string   `json:"patient_name,omitempty"`
	TotalAmount      *float64 `json:"total_amount,omitempty"`
	DateOfService    string   `json:"date_of_service,omitempty"`
	AdmissionDate    string   `json:"admission_date,omitempty"`
	DischargeDate    string   `json:"discharge_date,omitempty"`
	Diagnosis        string   `json:"diagnosis,omitempty"`
	DoctorName       string   `json:"doctor_name,omitempty"`
	TreatmentDetails string   `json:"treatment_details,omitempty"`
	RegistrationNo   string   `json:"registration_no,omitempty"`
	EpisodeNo        string   `json:"episode_no,omitempty"`
}

// NewProcessedDocument builds the record and projects the known fields out of data.
func NewProcessedDocument(docType DocumentType, filename string, confidence float64, data Fields) ProcessedDocument {
	if docType == "" {
		docType = DocumentUnknown
	}
	doc := ProcessedDocument{
		Type:          docType,
		Filename:      filename,
		Confidence:    ClampConfidence(confidence),
		ExtractedData: data,
	}
	doc.project()
	return doc
}

// FailedDocument records a document whose processing failed; it still counts as evidence.
func FailedDocument(docType DocumentType, filename string, reason string) ProcessedDocument {
	var data Fields
	data.Set("error", reason)
	return NewProcessedDocument(docType, filename, 0, data)
}

func (d *ProcessedDocument) project() {
	f := &d.ExtractedData
	d.HospitalName = f.String("hospital_name")
	d.PatientName = f.String("patient_name")
	if amount, ok := f.Float("total_amount"); ok {
		d.TotalAmount = &amount
	}
	d.DateOfService = f.String("date_of_service")
	d.AdmissionDate = f.String("admission_date")
	d.DischargeDate = f.String("discharge_date")
	d.Diagnosis = f.String("diagnosis")
	d.DoctorName = f.String("doctor_name")
	d.TreatmentDetails = f.String("treatment_details")
	if d.TreatmentDetails == "" {
		d.TreatmentDetails = f.String("treatment_summary")
	}
	d.RegistrationNo = f.String("registration_no")
	d.EpisodeNo = f.String("episode_no")
}

// ClampConfidence forces a score into [0,1]; NaN collapses to 0.
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
