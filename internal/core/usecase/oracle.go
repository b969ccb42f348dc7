package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/ports"
)

type OracleOutcome string

const (
	OracleOK          OracleOutcome = "ok"
	OracleDisabled    OracleOutcome = "disabled"
	OracleTimeout     OracleOutcome = "timeout"
	OracleCallFailed  OracleOutcome = "call_failed"
	OracleMalformed   OracleOutcome = "malformed"
	OracleSchemaError OracleOutcome = "schema_mismatch"
)

// OracleResult is the explicit outcome of one oracle call. Payload is set only
// when Outcome is OracleOK; otherwise Err carries ErrOracleUnavailable.
type OracleResult struct {
	Outcome OracleOutcome
	Payload map[string]any
	Err     error
}

func (r OracleResult) OK() bool {
	return r.Outcome == OracleOK
}

// Confidence returns the payload confidence clipped to [0,1], or fallback when absent.
func (r OracleResult) Confidence(fallback float64) float64 {
	if !r.OK() {
		return 0
	}
	raw, ok := r.Payload["confidence"]
	if !ok || raw == nil {
		return domain.ClampConfidence(fallback)
	}
	v, ok := domain.ParseAmount(raw)
	if !ok {
		return domain.ClampConfidence(fallback)
	}
	return domain.ClampConfidence(v)
}

// OracleGateway wraps a ModelOracle with a per-call timeout and JSON parsing.
type OracleGateway struct {
	oracle   ports.ModelOracle
	timeout  time.Duration
	observer ports.PipelineObserver
	logger   *slog.Logger
}

func NewOracleGateway(oracle ports.ModelOracle, timeout time.Duration, observer ports.PipelineObserver, logger *slog.Logger) *OracleGateway {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OracleGateway{
		oracle:   oracle,
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}
}

func (g *OracleGateway) enabled() bool {
	return g != nil && g.oracle != nil
}

// invoke calls the oracle under a bounded timeout and parses its answer
// against schema. It never returns a raw error to the caller.
func (g *OracleGateway) invoke(ctx context.Context, stage, prompt string, schema *jsonschema.Schema) OracleResult {
	if !g.enabled() {
		return OracleResult{
			Outcome: OracleDisabled,
			Err:     domain.WrapError(domain.ErrOracleUnavailable, stage, errors.New("oracle not configured")),
		}
	}

	result := g.call(ctx, stage, prompt, schema)
	g.observer.ObserveOracleCall(stage, string(result.Outcome))
	if !result.OK() {
		g.logger.Warn("oracle.call_failed", "stage", stage, "outcome", result.Outcome, "error", result.Err)
	}
	return result
}

func (g *OracleGateway) call(ctx context.Context, stage, prompt string, schema *jsonschema.Schema) OracleResult {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	raw, err := g.safeInvoke(callCtx, prompt)
	if err != nil {
		outcome := OracleCallFailed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = OracleTimeout
		}
		return OracleResult{Outcome: outcome, Err: domain.WrapError(domain.ErrOracleUnavailable, stage, err)}
	}

	payload, err := parseOracleJSON(raw)
	if err != nil {
		return OracleResult{Outcome: OracleMalformed, Err: domain.WrapError(domain.ErrOracleUnavailable, stage, err)}
	}
	normalizeEnumValues(payload)
	if schema != nil {
		if err := schema.Validate(payload); err != nil {
			return OracleResult{
				Outcome: OracleSchemaError,
				Err:     domain.WrapError(domain.ErrOracleUnavailable, stage, fmt.Errorf("json does not match schema: %w", err)),
			}
		}
	}
	return OracleResult{Outcome: OracleOK, Payload: payload}
}

func (g *OracleGateway) safeInvoke(ctx context.Context, prompt string) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("oracle panic: %v", r)
		}
	}()
	return g.oracle.InvokeModel(ctx, prompt)
}

// parseOracleJSON strips optional code fences and decodes the first JSON object in raw.
func parseOracleJSON(raw string) (map[string]any, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, errors.New("empty oracle response")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("oracle response contains no json object")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("parse oracle json: %w", err)
	}
	return payload, nil
}

// enumFields are matched against lowercase schema enums regardless of case.
var enumFields = []string{"document_type"}

func normalizeEnumValues(payload map[string]any) {
	for _, key := range enumFields {
		if s, ok := payload[key].(string); ok {
			payload[key] = strings.ToLower(strings.TrimSpace(s))
		}
	}
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

var (
	classificationSchema = mustCompileSchema("classification.json", map[string]any{
		"type":     "object",
		"required": []any{"document_type"},
		"properties": map[string]any{
			"document_type": map[string]any{"type": "string", "enum": documentTypeEnum()},
			"confidence":    map[string]any{"type": []any{"number", "null"}},
			"reasoning":     map[string]any{"type": []any{"string", "null"}},
		},
	})
	billSchema = mustCompileSchema("bill.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hospital_name":    nullableString(),
			"patient_name":     nullableString(),
			"total_amount":     nullableAmount(),
			"date_of_service":  nullableString(),
			"doctor_name":      nullableString(),
			"diagnosis":        nullableString(),
			"registration_no":  map[string]any{"type": []any{"string", "number", "null"}},
			"episode_no":       map[string]any{"type": []any{"string", "number", "null"}},
			"room_charges":     nullableAmount(),
			"medicine_charges": nullableAmount(),
			"confidence":       map[string]any{"type": []any{"number", "null"}},
		},
	})
	dischargeSchema = mustCompileSchema("discharge.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"patient_name":           nullableString(),
			"admission_date":         nullableString(),
			"discharge_date":         nullableString(),
			"diagnosis":              nullableString(),
			"secondary_diagnoses":    map[string]any{"type": []any{"array", "null"}},
			"doctor_name":            nullableString(),
			"hospital_name":          nullableString(),
			"treatment_summary":      nullableString(),
			"discharge_condition":    nullableString(),
			"follow_up_instructions": nullableString(),
			"confidence":             map[string]any{"type": []any{"number", "null"}},
		},
	})
)

func nullableString() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

func nullableAmount() map[string]any {
	return map[string]any{"type": []any{"number", "string", "null"}}
}

func documentTypeEnum() []any {
	out := make([]any, 0, len(domain.DocumentTypes()))
	for _, t := range domain.DocumentTypes() {
		out = append(out, string(t))
	}
	return out
}

func mustCompileSchema(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}
