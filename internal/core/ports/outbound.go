package ports

import (
	"context"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

// ModelOracle sends one prompt to a generative model and returns its raw text.
// Responses are untrusted: they may be malformed, late or missing.
type ModelOracle interface {
	InvokeModel(ctx context.Context, prompt string) (string, error)
}

// TextExtractor pulls plain text out of a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc domain.StoredDocument) (domain.ExtractedText, error)
}

// DocumentStore persists an upload and reports where it landed.
type DocumentStore interface {
	Save(ctx context.Context, upload domain.Upload) (domain.StoredDocument, error)
}

// ClaimQueue publishes/consumes asynchronous claim events.
type ClaimQueue interface {
	PublishClaimSubmitted(ctx context.Context, submission domain.ClaimSubmission) error
	SubscribeClaimSubmitted(ctx context.Context, handler func(context.Context, domain.ClaimSubmission) error) error
	PublishClaimDecided(ctx context.Context, response *domain.ClaimProcessingResponse) error
}
