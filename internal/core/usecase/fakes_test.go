package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const sampleBillText = `YASHODA HOSPITAL
BILL OF SUPPLY
Patient Name: JOHN DOE
Registration No: 4512345
Episode No: IP12345
Sub Total: 1,20,000.00
Total: ₹ 4,51,168.00
`

const sampleDischargeText = `DISCHARGE SUMMARY
Patient Name: JOHN DOE
Admission Date: 03/02/2025
Discharge Date: 10/02/2025
DIAGNOSIS: Bilateral knee osteoarthritis
`

type oracleFake struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, prompt string) (string, error)
}

func (f *oracleFake) InvokeModel(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.respond == nil {
		return "", errors.New("no response configured")
	}
	return f.respond(ctx, prompt)
}

func (f *oracleFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func replyWith(raw string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return raw, nil }
}

type storeFake struct {
	mu       sync.Mutex
	saved    []string
	failures map[string]error
}

func (f *storeFake) Save(_ context.Context, upload domain.Upload) (domain.StoredDocument, error) {
	if err := f.failures[upload.Filename]; err != nil {
		return domain.StoredDocument{}, err
	}
	f.mu.Lock()
	f.saved = append(f.saved, upload.Filename)
	f.mu.Unlock()
	return domain.StoredDocument{
		Path:     "/data/" + upload.Filename,
		Filename: upload.Filename,
		Size:     int64(len(upload.Data)),
	}, nil
}

type textExtractorFake struct {
	texts  map[string]string
	errs   map[string]error
	delays map[string]time.Duration
	panics map[string]bool
}

func (f *textExtractorFake) Extract(ctx context.Context, doc domain.StoredDocument) (domain.ExtractedText, error) {
	if d := f.delays[doc.Filename]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.ExtractedText{}, ctx.Err()
		}
	}
	if f.panics[doc.Filename] {
		panic("reader exploded")
	}
	if err := f.errs[doc.Filename]; err != nil {
		return domain.ExtractedText{}, err
	}
	return domain.ExtractedText{Text: f.texts[doc.Filename], Confidence: 0.8, Method: "fake"}, nil
}

type queueFake struct {
	published []domain.ClaimSubmission
	decided   []*domain.ClaimProcessingResponse
	err       error
}

func (f *queueFake) PublishClaimSubmitted(_ context.Context, submission domain.ClaimSubmission) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, submission)
	return nil
}

func (f *queueFake) SubscribeClaimSubmitted(context.Context, func(context.Context, domain.ClaimSubmission) error) error {
	return errors.New("not implemented")
}

func (f *queueFake) PublishClaimDecided(_ context.Context, response *domain.ClaimProcessingResponse) error {
	f.decided = append(f.decided, response)
	return nil
}

type observerFake struct {
	mu        sync.Mutex
	documents int
	oracle    map[string]int
	decisions []domain.ClaimStatus
}

func (f *observerFake) ObserveDocument(domain.DocumentType, float64) {
	f.mu.Lock()
	f.documents++
	f.mu.Unlock()
}

func (f *observerFake) ObserveOracleCall(stage, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.oracle == nil {
		f.oracle = make(map[string]int)
	}
	f.oracle[stage+"/"+outcome]++
}

func (f *observerFake) ObserveDecision(status domain.ClaimStatus, _ float64, _ time.Duration) {
	f.mu.Lock()
	f.decisions = append(f.decisions, status)
	f.mu.Unlock()
}

func billDoc(confidence float64, patient, hospital string, amount float64) domain.ProcessedDocument {
	var data domain.Fields
	if hospital != "" {
		data.Set("hospital_name", hospital)
	}
	if patient != "" {
		data.Set("patient_name", patient)
	}
	if amount > 0 {
		data.Set("total_amount", amount)
	}
	return domain.NewProcessedDocument(domain.DocumentBill, "bill.pdf", confidence, data)
}

func dischargeDoc(confidence float64, patient, hospital, diagnosis string) domain.ProcessedDocument {
	var data domain.Fields
	if patient != "" {
		data.Set("patient_name", patient)
	}
	if diagnosis != "" {
		data.Set("diagnosis", diagnosis)
	}
	if hospital != "" {
		data.Set("hospital_name", hospital)
	}
	return domain.NewProcessedDocument(domain.DocumentDischargeSummary, "discharge.pdf", confidence, data)
}

func newTestGateway(oracle *oracleFake, timeout time.Duration, observer *observerFake) *OracleGateway {
	if observer == nil {
		observer = &observerFake{}
	}
	return NewOracleGateway(oracle, timeout, observer, nil)
}
