package patterns

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

// Indicator is a content phrase and the weight it adds to a document-type score.
type Indicator struct {
	Phrase string `yaml:"phrase"`
	Weight int    `yaml:"weight"`
}

// FilenameRule maps filename keywords onto a document type. Rules are tried in order.
type FilenameRule struct {
	Type     domain.DocumentType `yaml:"type"`
	Keywords []string            `yaml:"keywords"`
}

type Tables struct {
	FilenameRules       []FilenameRule `yaml:"filename_keywords"`
	BillIndicators      []Indicator    `yaml:"bill_indicators"`
	DischargeIndicators []Indicator    `yaml:"discharge_indicators"`

	MixedBillIndicators      []string `yaml:"mixed_bill_indicators"`
	MixedDischargeIndicators []string `yaml:"mixed_discharge_indicators"`

	StrongScore int `yaml:"strong_score"`
	WeakScore   int `yaml:"weak_score"`
}

func DefaultTables() Tables {
	return Tables{
		FilenameRules: []FilenameRule{
			{Type: domain.DocumentBill, Keywords: []string{"bill", "invoice", "receipt", "payment", "billing", "charges", "yashodha", "yashoda"}},
			{Type: domain.DocumentDischargeSummary, Keywords: []string{"discharge", "summary", "hospital", "admission"}},
			{Type: domain.DocumentIDCard, Keywords: []string{"id", "card", "insurance", "member"}},
			{Type: domain.DocumentPrescription, Keywords: []string{"prescription", "rx", "medication", "drugs"}},
			{Type: domain.DocumentLabReport, Keywords: []string{"lab", "test", "report", "results", "pathology"}},
		},
		BillIndicators: []Indicator{
			{Phrase: "total amount", Weight: 3},
			{Phrase: "bill of supply", Weight: 3},
			{Phrase: "invoice", Weight: 2},
			{Phrase: "gst", Weight: 2},
			{Phrase: "net amount", Weight: 2},
			{Phrase: "charges", Weight: 1},
			{Phrase: "₹", Weight: 2},
			{Phrase: "rs.", Weight: 1},
			{Phrase: "patient diet", Weight: 1},
			{Phrase: "doctor fees", Weight: 2},
			{Phrase: "surgery package", Weight: 3},
			{Phrase: "medical appliances", Weight: 2},
			{Phrase: "cost of implants", Weight: 2},
		},
		DischargeIndicators: []Indicator{
			{Phrase: "discharge summary", Weight: 4},
			{Phrase: "admission", Weight: 2},
			{Phrase: "diagnosis", Weight: 3},
			{Phrase: "chief complaint", Weight: 2},
			{Phrase: "history of present illness", Weight: 3},
			{Phrase: "recommendations at discharge", Weight: 3},
			{Phrase: "surgery", Weight: 2},
			{Phrase: "patient was admitted", Weight: 2},
			{Phrase: "bilateral total knee replacement", Weight: 3},
			{Phrase: "chief consultants", Weight: 2},
			{Phrase: "physical examination", Weight: 2},
		},
		MixedBillIndicators:      []string{"total amount", "bill of supply", "net amount", "gst"},
		MixedDischargeIndicators: []string{"discharge summary", "diagnosis", "admission", "chief complaint"},
		StrongScore:              5,
		WeakScore:                3,
	}
}

// LoadTablesFile reads a YAML override file. An empty path yields the defaults.
func LoadTablesFile(path string) (Tables, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTables(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read keyword tables: %w", err)
	}
	return LoadTables(bytes.NewReader(raw))
}

// LoadTables decodes YAML on top of the defaults: sections present in the
// document replace the corresponding default section entirely.
func LoadTables(r io.Reader) (Tables, error) {
	tables := DefaultTables()

	var override Tables
	if err := yaml.NewDecoder(r).Decode(&override); err != nil && !errors.Is(err, io.EOF) {
		return Tables{}, fmt.Errorf("decode keyword tables: %w", err)
	}

	if len(override.FilenameRules) > 0 {
		tables.FilenameRules = override.FilenameRules
	}
	if len(override.BillIndicators) > 0 {
		tables.BillIndicators = override.BillIndicators
	}
	if len(override.DischargeIndicators) > 0 {
		tables.DischargeIndicators = override.DischargeIndicators
	}
	if len(override.MixedBillIndicators) > 0 {
		tables.MixedBillIndicators = override.MixedBillIndicators
	}
	if len(override.MixedDischargeIndicators) > 0 {
		tables.MixedDischargeIndicators = override.MixedDischargeIndicators
	}
	if override.StrongScore > 0 {
		tables.StrongScore = override.StrongScore
	}
	if override.WeakScore > 0 {
		tables.WeakScore = override.WeakScore
	}

	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

func (t Tables) Validate() error {
	for _, rule := range t.FilenameRules {
		if _, ok := domain.ParseDocumentType(string(rule.Type)); !ok || rule.Type == domain.DocumentUnknown {
			return domain.WrapError(domain.ErrInvalidInput, "validate keyword tables", fmt.Errorf("unsupported filename rule type %q", rule.Type))
		}
		if len(rule.Keywords) == 0 {
			return domain.WrapError(domain.ErrInvalidInput, "validate keyword tables", fmt.Errorf("filename rule %q has no keywords", rule.Type))
		}
	}
	for _, set := range [][]Indicator{t.BillIndicators, t.DischargeIndicators} {
		for _, ind := range set {
			if strings.TrimSpace(ind.Phrase) == "" || ind.Weight <= 0 {
				return domain.WrapError(domain.ErrInvalidInput, "validate keyword tables", fmt.Errorf("invalid indicator %q weight %d", ind.Phrase, ind.Weight))
			}
		}
	}
	if t.WeakScore > t.StrongScore {
		return domain.WrapError(domain.ErrInvalidInput, "validate keyword tables", fmt.Errorf("weak score %d exceeds strong score %d", t.WeakScore, t.StrongScore))
	}
	return nil
}
