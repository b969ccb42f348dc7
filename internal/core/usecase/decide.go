package usecase

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const (
	weightQuality      = 0.4
	weightCompleteness = 0.3
	weightConsistency  = 0.2
	weightConfidence   = 0.1

	missingDocumentPenalty = 0.3
	discrepancyPenalty     = 0.2

	highQualityScore = 0.8
	poorQualityScore = 0.3
	lowQualityRisk   = 0.5
)

// DecisionPolicy holds the only gate values of the pipeline.
type DecisionPolicy struct {
	ApproveThreshold float64
	RejectThreshold  float64
	HighClaimAmount  float64
}

func DefaultDecisionPolicy() DecisionPolicy {
	return DecisionPolicy{
		ApproveThreshold: 0.7,
		RejectThreshold:  0.3,
		HighClaimAmount:  500000,
	}
}

func (p DecisionPolicy) normalize() DecisionPolicy {
	out := p
	def := DefaultDecisionPolicy()
	if out.ApproveThreshold <= 0 || out.ApproveThreshold > 1 {
		out.ApproveThreshold = def.ApproveThreshold
	}
	if out.RejectThreshold < 0 || out.RejectThreshold >= out.ApproveThreshold {
		out.RejectThreshold = math.Min(def.RejectThreshold, out.ApproveThreshold/2)
	}
	if out.HighClaimAmount <= 0 {
		out.HighClaimAmount = def.HighClaimAmount
	}
	return out
}

type DecisionEngine struct {
	policy DecisionPolicy
}

func NewDecisionEngine(policy DecisionPolicy) *DecisionEngine {
	return &DecisionEngine{policy: policy.normalize()}
}

// Decide maps validation output to a claim status. Any internal failure fails closed.
func (e *DecisionEngine) Decide(documents []domain.ProcessedDocument, validation domain.ValidationResult) (decision domain.ClaimDecision) {
	defer func() {
		if r := recover(); r != nil {
			decision = domain.FailClosedDecision(fmt.Sprintf("Decision process failed: %v", r))
		}
	}()

	score, err := e.Score(documents, validation)
	if err != nil {
		return domain.FailClosedDecision(fmt.Sprintf("Decision process failed: %v", err))
	}

	var status domain.ClaimStatus
	var reason string
	switch {
	case score >= e.policy.ApproveThreshold && approvable(validation):
		status = domain.ClaimApproved
		reason = approvalReason(validation, score)
	case score <= e.policy.RejectThreshold:
		status = domain.ClaimRejected
		reason = rejectionReason(validation, score)
	default:
		status = domain.ClaimPending
		reason = "Requires manual review - mixed confidence indicators"
	}

	risks := e.riskFactors(documents, validation)
	return domain.ClaimDecision{
		Status:             status,
		Reason:             reason,
		Confidence:         score,
		RiskFactors:        risks,
		RecommendedActions: recommendedActions(status, risks, validation),
	}
}

// approvable blocks approval while required documents are missing or the
// documents disagree, whatever the score.
func approvable(validation domain.ValidationResult) bool {
	return len(validation.MissingDocuments) == 0 && len(validation.Discrepancies) == 0
}

// Score is the weighted decision score in [0,1].
func (e *DecisionEngine) Score(documents []domain.ProcessedDocument, validation domain.ValidationResult) (float64, error) {
	completeness := math.Max(0, 1-missingDocumentPenalty*float64(len(validation.MissingDocuments)))
	consistency := math.Max(0, 1-discrepancyPenalty*float64(len(validation.Discrepancies)))

	score := weightQuality*validation.DataQualityScore +
		weightCompleteness*completeness +
		weightConsistency*consistency +
		weightConfidence*meanConfidence(documents)

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, errors.New("decision score is not a finite number")
	}
	return domain.ClampConfidence(score), nil
}

func (e *DecisionEngine) riskFactors(documents []domain.ProcessedDocument, validation domain.ValidationResult) []domain.RiskFactor {
	risks := make([]domain.RiskFactor, 0, 4)
	if len(validation.MissingDocuments) > 0 {
		risks = append(risks, domain.RiskIncompleteDocumentation)
	}
	if len(validation.Discrepancies) > 0 {
		risks = append(risks, domain.RiskDataInconsistency)
	}
	if validation.DataQualityScore < lowQualityRisk {
		risks = append(risks, domain.RiskLowDataQuality)
	}
	for _, doc := range documents {
		if doc.Type == domain.DocumentBill && doc.TotalAmount != nil && *doc.TotalAmount > e.policy.HighClaimAmount {
			risks = append(risks, domain.RiskHighClaimAmount)
			break
		}
	}
	return risks
}

func approvalReason(validation domain.ValidationResult, score float64) string {
	var clauses []string
	if len(validation.MissingDocuments) == 0 {
		clauses = append(clauses, "All required documents present")
	}
	if len(validation.Discrepancies) == 0 {
		clauses = append(clauses, "Data is consistent across documents")
	}
	if validation.DataQualityScore > highQualityScore {
		clauses = append(clauses, "High data quality score")
	}
	return joinClauses(clauses, score)
}

func rejectionReason(validation domain.ValidationResult, score float64) string {
	var clauses []string
	if len(validation.MissingDocuments) > 0 {
		clauses = append(clauses, "Missing required documents: "+strings.Join(validation.MissingDocuments, ", "))
	}
	if len(validation.Discrepancies) > 0 {
		clauses = append(clauses, fmt.Sprintf("Data discrepancies: %d issues", len(validation.Discrepancies)))
	}
	if validation.DataQualityScore < poorQualityScore {
		clauses = append(clauses, "Poor data quality")
	}
	return joinClauses(clauses, score)
}

func joinClauses(clauses []string, score float64) string {
	if len(clauses) == 0 {
		return fmt.Sprintf("Overall confidence score: %.2f", score)
	}
	return strings.Join(clauses, "; ")
}

func recommendedActions(status domain.ClaimStatus, risks []domain.RiskFactor, validation domain.ValidationResult) []string {
	has := func(r domain.RiskFactor) bool {
		for _, candidate := range risks {
			if candidate == r {
				return true
			}
		}
		return false
	}

	actions := make([]string, 0, 5)
	if status == domain.ClaimPending {
		actions = append(actions, "manual review required")
	}
	if has(domain.RiskIncompleteDocumentation) {
		actions = append(actions, "request missing documents")
	}
	if has(domain.RiskDataInconsistency) {
		actions = append(actions, "verify data discrepancies")
	}
	if has(domain.RiskHighClaimAmount) {
		actions = append(actions, "secondary review for high-value claim")
	}
	if len(validation.Warnings) > 0 {
		actions = append(actions, "address data quality warnings")
	}
	return actions
}

func meanConfidence(documents []domain.ProcessedDocument) float64 {
	if len(documents) == 0 {
		return 0
	}
	total := 0.0
	for _, doc := range documents {
		total += domain.ClampConfidence(doc.Confidence)
	}
	return total / float64(len(documents))
}
