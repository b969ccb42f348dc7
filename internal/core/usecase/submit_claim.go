package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/ports"
)

// SubmitClaimUseCase stores the documents of a claim and hands the claim to
// the worker through the queue.
type SubmitClaimUseCase struct {
	store ports.DocumentStore
	queue ports.ClaimQueue
	now   func() time.Time
}

func NewSubmitClaimUseCase(store ports.DocumentStore, queue ports.ClaimQueue) *SubmitClaimUseCase {
	return &SubmitClaimUseCase{
		store: store,
		queue: queue,
		now:   time.Now,
	}
}

func (uc *SubmitClaimUseCase) Submit(ctx context.Context, uploads []domain.Upload) (*domain.ClaimSubmission, error) {
	if len(uploads) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit claim", errors.New("no documents submitted"))
	}

	submission := &domain.ClaimSubmission{
		ClaimID:     uuid.NewString(),
		SubmittedAt: uc.now().UTC(),
		Documents:   make([]domain.StoredDocument, 0, len(uploads)),
	}
	for _, upload := range uploads {
		stored, err := uc.store.Save(ctx, upload)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", upload.Filename, err)
		}
		submission.Documents = append(submission.Documents, stored)
	}

	if err := uc.queue.PublishClaimSubmitted(ctx, *submission); err != nil {
		return nil, fmt.Errorf("publish claim submitted event: %w", err)
	}
	return submission, nil
}
