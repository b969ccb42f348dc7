package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/claim-processor/internal/config"
	"github.com/kirillkom/claim-processor/internal/core/domain"
)

func TestProcessClaimMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid input", err: domain.WrapError(domain.ErrInvalidInput, "process claim", errors.New("no documents")), want: http.StatusBadRequest},
		{name: "too large", err: domain.WrapError(domain.ErrDocumentTooLarge, "save", errors.New("60MB")), want: http.StatusRequestEntityTooLarge},
		{name: "unsupported", err: domain.WrapError(domain.ErrUnsupportedDocument, "save", errors.New(".exe")), want: http.StatusUnsupportedMediaType},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "publish", errors.New("nats down")), want: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRouter(config.Config{}, processorFake{err: tt.err}, nil, nil).Handler()

			body, contentType := multipartBody(t, "files", testFile{name: "bill.txt", content: "TOTAL 10"})
			req := httptest.NewRequest(http.MethodPost, "/v1/claims/process", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, res.Code)
			}
		})
	}
}

func TestSubmitClaimMapsUnsupportedTo415(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		processorFake{},
		submitterFake{err: domain.WrapError(domain.ErrUnsupportedDocument, "save virus.exe", errors.New("extension .exe"))},
		nil,
	).Handler()

	body, contentType := multipartBody(t, "files", testFile{name: "virus.exe", content: "MZ"})
	req := httptest.NewRequest(http.MethodPost, "/v1/claims", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", res.Code)
	}
}
