package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/patterns"
	"github.com/kirillkom/claim-processor/internal/core/ports"
)

const (
	PipelineVersion = "1.0.0-multi-agent"

	defaultOracleTimeout       = 8 * time.Second
	defaultPipelineConcurrency = 4
)

const (
	agentClassifier         = "classifier"
	agentTextExtractor      = "text_extractor"
	agentBillExtractor      = "bill_extractor"
	agentDischargeExtractor = "discharge_extractor"
	agentValidator          = "validator"
	agentDecisionEngine     = "decision_engine"
)

var (
	_ ports.ClaimProcessor       = (*ProcessClaimUseCase)(nil)
	_ ports.StoredClaimProcessor = (*ProcessClaimUseCase)(nil)
)

type PipelineConfig struct {
	Tables        patterns.Tables
	OracleTimeout time.Duration
	Concurrency   int
	Decision      DecisionPolicy
	Observer      ports.PipelineObserver
	Logger        *slog.Logger
}

// ProcessClaimUseCase runs one claim through
// save → classify → extract text → specialise → validate → decide.
// Each stage finishes for every document before the next one starts.
type ProcessClaimUseCase struct {
	store     ports.DocumentStore
	extractor ports.TextExtractor

	patterns   *patterns.Extractor
	classifier *Classifier
	bill       DocumentExtractor
	discharge  DocumentExtractor
	generic    DocumentExtractor
	validator  *Validator
	decider    *DecisionEngine

	concurrency int
	observer    ports.PipelineObserver
	logger      *slog.Logger
	now         func() time.Time
}

func NewProcessClaimUseCase(
	store ports.DocumentStore,
	extractor ports.TextExtractor,
	oracle ports.ModelOracle,
	cfg PipelineConfig,
) *ProcessClaimUseCase {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = ports.NopObserver{}
	}
	tables := cfg.Tables
	if len(tables.FilenameRules) == 0 && len(tables.BillIndicators) == 0 {
		tables = patterns.DefaultTables()
	}
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultPipelineConcurrency
	}

	pat := patterns.New(tables)
	var gateway *OracleGateway
	if oracle != nil {
		gateway = NewOracleGateway(oracle, timeout, observer, logger)
	}

	return &ProcessClaimUseCase{
		store:       store,
		extractor:   extractor,
		patterns:    pat,
		classifier:  NewClassifier(pat, gateway, logger),
		bill:        NewBillExtractor(pat, gateway),
		discharge:   NewDischargeExtractor(pat, gateway),
		generic:     GenericExtractor{},
		validator:   NewValidator(),
		decider:     NewDecisionEngine(cfg.Decision),
		concurrency: concurrency,
		observer:    observer,
		logger:      logger,
		now:         time.Now,
	}
}

// claimDocument carries one document through the stages. Each fan-out task
// writes only to its own claimDocument.
type claimDocument struct {
	filename       string
	stored         domain.StoredDocument
	classification domain.ClassificationResult
	text           domain.ExtractedText
	processed      domain.ProcessedDocument

	failed error
}

func (uc *ProcessClaimUseCase) ProcessClaim(ctx context.Context, uploads []domain.Upload) (*domain.ClaimProcessingResponse, error) {
	if len(uploads) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process claim", errors.New("no documents submitted"))
	}

	start := uc.now()
	claimID := uuid.NewString()
	docs := make([]*claimDocument, len(uploads))
	for i, upload := range uploads {
		docs[i] = &claimDocument{filename: upload.Filename}
	}

	if err := uc.fanOut(ctx, docs, "save", func(ctx context.Context, i int, doc *claimDocument) {
		uc.save(ctx, doc, uploads[i])
	}); err != nil {
		return nil, err
	}

	return uc.run(ctx, claimID, start, docs)
}

// ProcessStored adjudicates documents that were saved earlier, skipping the save stage.
func (uc *ProcessClaimUseCase) ProcessStored(ctx context.Context, submission domain.ClaimSubmission) (*domain.ClaimProcessingResponse, error) {
	if len(submission.Documents) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process stored claim", errors.New("no documents submitted"))
	}
	claimID := submission.ClaimID
	if claimID == "" {
		claimID = uuid.NewString()
	}

	docs := make([]*claimDocument, len(submission.Documents))
	for i, stored := range submission.Documents {
		docs[i] = &claimDocument{filename: stored.Filename, stored: stored}
	}
	return uc.run(ctx, claimID, uc.now(), docs)
}

func (uc *ProcessClaimUseCase) run(ctx context.Context, claimID string, start time.Time, docs []*claimDocument) (*domain.ClaimProcessingResponse, error) {
	logger := uc.logger.With("claim_id", claimID)

	stages := []struct {
		name string
		fn   func(context.Context, int, *claimDocument)
	}{
		{name: "classify", fn: func(ctx context.Context, _ int, doc *claimDocument) { uc.classify(ctx, doc) }},
		{name: "extract_text", fn: func(ctx context.Context, _ int, doc *claimDocument) { uc.extractText(ctx, doc) }},
		{name: "specialise", fn: func(ctx context.Context, _ int, doc *claimDocument) { uc.specialise(ctx, doc) }},
	}
	for _, stage := range stages {
		if err := uc.fanOut(ctx, docs, stage.name, stage.fn); err != nil {
			return nil, err
		}
		logger.Debug("claim.stage_completed", "stage", stage.name, "documents", len(docs))
	}

	processed := make([]domain.ProcessedDocument, len(docs))
	for i, doc := range docs {
		processed[i] = doc.processed
		uc.observer.ObserveDocument(doc.processed.Type, doc.processed.Confidence)
	}

	validation, decision := uc.adjudicate(processed)
	elapsed := uc.now().Sub(start)
	uc.observer.ObserveDecision(decision.Status, decision.Confidence, elapsed)

	logger.Info("claim.decided",
		"status", decision.Status,
		"confidence", decision.Confidence,
		"documents", len(processed),
		"missing", len(validation.MissingDocuments),
		"discrepancies", len(validation.Discrepancies),
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)

	return &domain.ClaimProcessingResponse{
		Documents:     processed,
		Validation:    validation,
		ClaimDecision: decision,
		ProcessingMetadata: domain.ProcessingMetadata{
			ClaimID:          claimID,
			ProcessedAt:      start.UTC(),
			ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000.0,
			AgentVersion:     PipelineVersion,
			FilesProcessed:   len(docs),
			AgentsUsed:       agentsUsed(processed),
		},
	}, nil
}

// fanOut runs fn for every document and waits for all of them. A panicking
// task marks only its own document as failed. The whole claim is abandoned
// only when ctx is cancelled.
func (uc *ProcessClaimUseCase) fanOut(ctx context.Context, docs []*claimDocument, stage string, fn func(context.Context, int, *claimDocument)) error {
	var g errgroup.Group
	g.SetLimit(uc.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					doc.fail(fmt.Errorf("%s panicked: %v", stage, r))
					if doc.processed.Type == "" {
						doc.processed = domain.FailedDocument(doc.documentType(), doc.filename, doc.failed.Error())
					}
					uc.logger.Error("claim.stage_panic", "stage", stage, "filename", doc.filename, "panic", r)
				}
			}()
			fn(ctx, i, doc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	return nil
}

func (uc *ProcessClaimUseCase) save(ctx context.Context, doc *claimDocument, upload domain.Upload) {
	stored, err := uc.store.Save(ctx, upload)
	if err != nil {
		doc.fail(fmt.Errorf("save document: %w", err))
		uc.logger.Warn("claim.save_failed", "filename", upload.Filename, "error", err)
		return
	}
	doc.stored = stored
}

func (uc *ProcessClaimUseCase) classify(ctx context.Context, doc *claimDocument) {
	if doc.failed != nil {
		doc.classification = domain.ClassificationResult{
			DocumentType: domain.DocumentUnknown,
			Confidence:   0,
			Reasoning:    doc.failed.Error(),
		}
		return
	}
	doc.classification = uc.classifier.Classify(ctx, doc.filename, doc.stored.ContentPreview)
	uc.logger.Debug("claim.classified",
		"filename", doc.filename,
		"type", doc.classification.DocumentType,
		"confidence", doc.classification.Confidence,
	)
}

func (uc *ProcessClaimUseCase) extractText(ctx context.Context, doc *claimDocument) {
	if doc.failed != nil {
		return
	}
	text, err := uc.extractor.Extract(ctx, doc.stored)
	if err != nil {
		uc.logger.Warn("claim.text_extraction_failed", "filename", doc.filename, "error", err)
		doc.text = domain.ExtractedText{Method: "failed"}
		doc.fail(fmt.Errorf("extract text: %w", err))
		return
	}
	text.Confidence = domain.ClampConfidence(text.Confidence)
	doc.text = text
}

func (uc *ProcessClaimUseCase) specialise(ctx context.Context, doc *claimDocument) {
	docType := doc.documentType()
	if doc.failed != nil {
		doc.processed = domain.FailedDocument(docType, doc.filename, doc.failed.Error())
		return
	}

	extraction, err := uc.extractorFor(docType).Extract(ctx, doc.text.Text)
	if err != nil {
		doc.processed = domain.FailedDocument(docType, doc.filename, err.Error())
		return
	}

	if mixed := uc.patterns.DetectMixedTypes(doc.text.Text); len(mixed) > 1 {
		names := make([]string, len(mixed))
		for i, t := range mixed {
			names[i] = string(t)
		}
		extraction.Fields.Set("detected_types", strings.Join(names, ", "))
	}
	doc.processed = domain.NewProcessedDocument(docType, doc.filename, extraction.Confidence, extraction.Fields)
}

func (uc *ProcessClaimUseCase) extractorFor(docType domain.DocumentType) DocumentExtractor {
	switch docType {
	case domain.DocumentBill:
		return uc.bill
	case domain.DocumentDischargeSummary:
		return uc.discharge
	default:
		return uc.generic
	}
}

// adjudicate validates and decides; a fault in either step yields a rejected,
// zero-confidence decision instead of an error.
func (uc *ProcessClaimUseCase) adjudicate(documents []domain.ProcessedDocument) (validation domain.ValidationResult, decision domain.ClaimDecision) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("claim.adjudication_failed", "panic", r)
			validation = domain.ValidationResult{
				MissingDocuments: []string{"validation_error"},
				Discrepancies:    []string{fmt.Sprintf("Validation failed: %v", r)},
				Warnings:         []string{},
				DataQualityScore: 0,
			}
			decision = domain.FailClosedDecision(fmt.Sprintf("Decision process failed: %v", r))
		}
	}()

	validation = uc.validator.Validate(documents)
	decision = uc.decider.Decide(documents, validation)
	return validation, decision
}

func (d *claimDocument) documentType() domain.DocumentType {
	if d.classification.DocumentType == "" {
		return domain.DocumentUnknown
	}
	return d.classification.DocumentType
}

func (d *claimDocument) fail(err error) {
	if d.failed == nil {
		d.failed = err
	}
}

func agentsUsed(documents []domain.ProcessedDocument) []string {
	agents := []string{agentClassifier, agentTextExtractor}
	var bill, discharge bool
	for _, doc := range documents {
		bill = bill || doc.Type == domain.DocumentBill
		discharge = discharge || doc.Type == domain.DocumentDischargeSummary
	}
	if bill {
		agents = append(agents, agentBillExtractor)
	}
	if discharge {
		agents = append(agents, agentDischargeExtractor)
	}
	return append(agents, agentValidator, agentDecisionEngine)
}
