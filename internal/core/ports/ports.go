package ports

import (
	"time"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

type PipelineObserver interface {
	ObserveDocument(docType domain.DocumentType, confidence float64)
	ObserveOracleCall(stage, outcome string)
	ObserveDecision(status domain.ClaimStatus, score float64, duration time.Duration)
}

type NopObserver struct{}

func (NopObserver) ObserveDocument(domain.DocumentType, float64)                {}
func (NopObserver) ObserveOracleCall(string, string)                           {}
func (NopObserver) ObserveDecision(domain.ClaimStatus, float64, time.Duration) {}
