package ports

import (
	"context"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

// ClaimProcessor is the inbound contract for synchronous claim adjudication.
type ClaimProcessor interface {
	ProcessClaim(ctx context.Context, uploads []domain.Upload) (*domain.ClaimProcessingResponse, error)
}

// StoredClaimProcessor adjudicates a claim whose documents were already saved.
type StoredClaimProcessor interface {
	ProcessStored(ctx context.Context, submission domain.ClaimSubmission) (*domain.ClaimProcessingResponse, error)
}

// ClaimSubmitter is the inbound contract for asynchronous claim submission.
type ClaimSubmitter interface {
	Submit(ctx context.Context, uploads []domain.Upload) (*domain.ClaimSubmission, error)
}
