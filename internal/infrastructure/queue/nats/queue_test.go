package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

func TestNewClaimMsgCarriesClaimID(t *testing.T) {
	submission := domain.ClaimSubmission{
		ClaimID:   "claim-1",
		Documents: []domain.StoredDocument{{Path: "/data/a.pdf", Filename: "a.pdf"}},
	}

	msg, err := newClaimMsg("claims.submitted", submission.ClaimID, submission)
	if err != nil {
		t.Fatalf("newClaimMsg() error = %v", err)
	}
	if msg.Subject != "claims.submitted" || msg.Header.Get(claimIDHeader) != "claim-1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	decoded, err := decodeSubmission(msg.Data)
	if err != nil {
		t.Fatalf("decodeSubmission() error = %v", err)
	}
	if decoded.ClaimID != "claim-1" || decoded.Documents[0].Path != "/data/a.pdf" {
		t.Fatalf("unexpected submission %+v", decoded)
	}
}

func TestDecodeSubmissionRejectsIncompletePayload(t *testing.T) {
	tests := map[string][]byte{
		"garbage":      []byte("not json"),
		"no documents": mustJSON(t, domain.ClaimSubmission{ClaimID: "claim-1"}),
		"no claim id":  mustJSON(t, domain.ClaimSubmission{Documents: []domain.StoredDocument{{Filename: "a.pdf"}}}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeSubmission(data); !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !class.Retryable {
		t.Fatalf("closed connection should be retryable")
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation should be ignored, got %+v", class)
	}
	if class := classifyNATSError(nats.ErrMaxPayload); class.Retryable {
		t.Fatalf("oversized payload must not be retried")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrNoServers); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	permanent := errors.New("bad subject")
	if err := wrapTemporaryIfNeeded(permanent); err != permanent {
		t.Fatalf("expected error unchanged, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
