package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/kirillkom/claim-processor/internal/config"
	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/ports"
	"github.com/kirillkom/claim-processor/internal/observability/metrics"
)

const (
	serviceName = "claims-api"

	uploadField      = "files"
	maxFilesPerClaim = 20
	multipartMemory  = 32 << 20
)

type Router struct {
	cfg       config.Config
	processor ports.ClaimProcessor
	submitter ports.ClaimSubmitter
	metrics   *metrics.HTTPServerMetrics
}

// NewRouter wires the claim endpoints. A nil submitter disables async
// submission; nil metrics disable /metrics.
func NewRouter(
	cfg config.Config,
	processor ports.ClaimProcessor,
	submitter ports.ClaimSubmitter,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		processor: processor,
		submitter: submitter,
		metrics:   httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	mux.HandleFunc("POST /v1/claims/process", rt.processClaim)
	mux.HandleFunc("POST /v1/claims", rt.submitClaim)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWaitTimeout, rt.rejected)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.rejected)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) processClaim(w http.ResponseWriter, r *http.Request) {
	uploads, err := rt.readUploads(w, r, "process")
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := rt.processor.ProcessClaim(r.Context(), uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) submitClaim(w http.ResponseWriter, r *http.Request) {
	if rt.submitter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":      "async claim submission is disabled",
			"request_id": requestIDFromContext(r.Context()),
		})
		return
	}

	uploads, err := rt.readUploads(w, r, "submit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	submission, err := rt.submitter.Submit(r.Context(), uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submission)
}

func (rt *Router) readUploads(w http.ResponseWriter, r *http.Request, endpoint string) ([]domain.Upload, error) {
	if rt.cfg.UploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes*maxFilesPerClaim)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.WrapError(domain.ErrDocumentTooLarge, "read uploads", err)
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read uploads", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read uploads", fmt.Errorf("multipart field '%s' is required", uploadField))
	}
	if len(headers) > maxFilesPerClaim {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read uploads", fmt.Errorf("at most %d files per claim", maxFilesPerClaim))
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read uploads", fmt.Errorf("%s: %w", fh.Filename, err))
		}
		if rt.metrics != nil {
			rt.metrics.RecordUpload(serviceName, endpoint, len(data))
		}
		uploads = append(uploads, domain.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (rt *Router) rejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("claim_request_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
