package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/patterns"
)

const (
	// Above this confidence the model is not consulted.
	classificationShortCircuit = 0.7
	oracleDefaultConfidence    = 0.5
)

type Classifier struct {
	patterns *patterns.Extractor
	oracle   *OracleGateway
	logger   *slog.Logger
}

func NewClassifier(extractor *patterns.Extractor, oracle *OracleGateway, logger *slog.Logger) *Classifier {
	if extractor == nil {
		extractor = patterns.NewDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		patterns: extractor,
		oracle:   oracle,
		logger:   logger,
	}
}

// Classify assigns a document type from the filename, the content preview and,
// when the heuristics are not decisive, the model oracle. It never fails:
// oracle problems leave the heuristic result in place.
func (c *Classifier) Classify(ctx context.Context, filename, contentPreview string) domain.ClassificationResult {
	best := c.patterns.ClassifyFilename(filename)

	if strings.TrimSpace(contentPreview) != "" {
		byContent := c.patterns.ClassifyContent(contentPreview)
		if byContent.Confidence > best.Confidence {
			best = byContent
		}
	}

	if best.Confidence > classificationShortCircuit || !c.oracle.enabled() {
		return best
	}

	modelResult, ok := c.classifyWithOracle(ctx, filename, contentPreview)
	if ok && modelResult.Confidence > best.Confidence {
		c.logger.Debug("classifier.oracle_override",
			"filename", filename,
			"from", best.DocumentType,
			"to", modelResult.DocumentType,
			"confidence", modelResult.Confidence,
		)
		return modelResult
	}
	return best
}

func (c *Classifier) classifyWithOracle(ctx context.Context, filename, preview string) (domain.ClassificationResult, bool) {
	result := c.oracle.invoke(ctx, "classify", buildClassificationPrompt(filename, preview), classificationSchema)
	if !result.OK() {
		return domain.ClassificationResult{}, false
	}

	raw, _ := result.Payload["document_type"].(string)
	docType, ok := domain.ParseDocumentType(raw)
	if !ok {
		return domain.ClassificationResult{}, false
	}

	reasoning, _ := result.Payload["reasoning"].(string)
	if strings.TrimSpace(reasoning) == "" {
		reasoning = fmt.Sprintf("model classified as %s", docType)
	}
	return domain.ClassificationResult{
		DocumentType: docType,
		Confidence:   result.Confidence(oracleDefaultConfidence),
		Reasoning:    reasoning,
	}, true
}
