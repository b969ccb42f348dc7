// Package doctext pulls plain text out of stored claim documents and scores
// how much usable medical text it found.
package doctext

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

const (
	MethodPDF   = "pdf"
	MethodXLSX  = "xlsx"
	MethodText  = "text"
	MethodImage = "image"

	previewChars = 500
)

var (
	baseConfidence = map[string]float64{
		MethodPDF:  0.8,
		MethodXLSX: 0.8,
		MethodText: 0.7,
	}

	medicalKeywords = []string{
		"patient", "doctor", "hospital", "diagnosis", "treatment",
		"date", "amount", "$", "insurance", "claim",
	}
)

// Extractor implements ports.TextExtractor for pdf, xlsx and plain-text
// documents. Images yield no text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, doc domain.StoredDocument) (domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExtractedText{}, err
	}

	method, err := methodFor(doc.Path)
	if err != nil {
		return domain.ExtractedText{}, err
	}

	var text string
	switch method {
	case MethodImage:
		return domain.ExtractedText{Method: MethodImage}, nil
	case MethodPDF:
		text, err = readPDF(doc.Path, 0)
	case MethodXLSX:
		text, err = readXLSX(doc.Path)
	default:
		text, err = readText(doc.Path)
	}
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrExtractionFailed, "extract "+method, err)
	}

	text = strings.TrimSpace(text)
	return domain.ExtractedText{
		Text:       text,
		Confidence: Score(method, text),
		Method:     method,
	}, nil
}

// Preview returns up to 500 characters of the first page. Unreadable or
// image documents have an empty preview.
func (e *Extractor) Preview(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	method, err := methodFor(path)
	if err != nil {
		return "", err
	}

	var text string
	switch method {
	case MethodImage:
		return "", nil
	case MethodPDF:
		text, err = readPDF(path, 1)
	case MethodXLSX:
		text, err = readXLSX(path)
	default:
		text, err = readText(path)
	}
	if err != nil {
		return "", err
	}
	return truncate(strings.TrimSpace(text), previewChars), nil
}

// Score blends the per-method base confidence with a text quality estimate.
func Score(method, text string) float64 {
	base, ok := baseConfidence[method]
	if !ok || strings.TrimSpace(text) == "" {
		return 0
	}
	lower := strings.ToLower(text)

	lengthScore := math.Min(float64(utf8.RuneCountInString(text))/1000, 1)
	wordScore := math.Min(float64(len(strings.Fields(text)))/100, 1)
	hits := 0
	for _, keyword := range medicalKeywords {
		if strings.Contains(lower, keyword) {
			hits++
		}
	}
	keywordScore := float64(hits) / float64(len(medicalKeywords))

	quality := (lengthScore + wordScore + keywordScore) / 3
	return domain.ClampConfidence((base + quality) / 2)
}

func methodFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return MethodPDF, nil
	case ".xlsx":
		return MethodXLSX, nil
	case ".txt":
		return MethodText, nil
	case ".png", ".jpg", ".jpeg":
		return MethodImage, nil
	default:
		return "", domain.WrapError(domain.ErrUnsupportedDocument, "extract text", fmt.Errorf("extension %q", filepath.Ext(path)))
	}
}

// readPDF concatenates page text; maxPages <= 0 reads every page.
func readPDF(path string, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := reader.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var buf strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		buf.WriteString(content)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// readXLSX renders every sheet as tab-separated rows.
func readXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

func readText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("text document is not valid utf-8")
	}
	return string(raw), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
