package domain

import "time"

type ClaimStatus string

const (
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
	ClaimPending  ClaimStatus = "pending"
)

type RiskFactor string

const (
	RiskIncompleteDocumentation RiskFactor = "incomplete_documentation"
	RiskDataInconsistency       RiskFactor = "data_inconsistency"
	RiskLowDataQuality          RiskFactor = "low_data_quality"
	RiskHighClaimAmount         RiskFactor = "high_claim_amount"
	RiskSystemError             RiskFactor = "system_error"
)

type ValidationResult struct {
	MissingDocuments []string `json:"missing_documents"`
	Discrepancies    []string `json:"discrepancies"`
	Warnings         []string `json:"warnings"`
	DataQualityScore float64  `json:"data_quality_score"`
}

type ClaimDecision struct {
	Status             ClaimStatus  `json:"status"`
	Reason             string       `json:"reason"`
	Confidence         float64      `json:"confidence"`
	RiskFactors        []RiskFactor `json:"risk_factors"`
	RecommendedActions []string     `json:"recommended_actions"`
}

func (d ClaimDecision) HasRisk(risk RiskFactor) bool {
	for _, r := range d.RiskFactors {
		if r == risk {
			return true
		}
	}
	return false
}

// FailClosedDecision is the conservative outcome used whenever adjudication itself fails.
func FailClosedDecision(reason string) ClaimDecision {
	return ClaimDecision{
		Status:             ClaimRejected,
		Reason:             reason,
		Confidence:         0,
		RiskFactors:        []RiskFactor{RiskSystemError},
		RecommendedActions: []string{"manual review required"},
	}
}

type ProcessingMetadata struct {
	ClaimID          string    `json:"claim_id"`
	ProcessedAt      time.Time `json:"processed_at"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	AgentVersion     string    `json:"agent_version"`
	FilesProcessed   int       `json:"files_processed"`
	AgentsUsed       []string  `json:"agents_used"`
}

type ClaimProcessingResponse struct {
	Documents          []ProcessedDocument `json:"documents"`
	Validation         ValidationResult    `json:"validation"`
	ClaimDecision      ClaimDecision       `json:"claim_decision"`
	ProcessingMetadata ProcessingMetadata  `json:"processing_metadata"`
}

// ClaimSubmission is the asynchronous hand-off between the API and the worker.
type ClaimSubmission struct {
	ClaimID     string           `json:"claim_id"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Documents   []StoredDocument `json:"documents"`
}
