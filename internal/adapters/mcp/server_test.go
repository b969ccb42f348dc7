package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

type processorFake struct {
	err      error
	received []domain.Upload
}

func (f *processorFake) ProcessClaim(_ context.Context, uploads []domain.Upload) (*domain.ClaimProcessingResponse, error) {
	f.received = uploads
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ClaimProcessingResponse{
		ClaimDecision:      domain.ClaimDecision{Status: domain.ClaimApproved, Confidence: 0.97},
		ProcessingMetadata: domain.ProcessingMetadata{ClaimID: "claim-7", FilesProcessed: len(uploads)},
	}, nil
}

func callTool(t *testing.T, s *Server, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := s.handleProcessClaim(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProcessClaimToolReturnsResponseJSON(t *testing.T) {
	dir := t.TempDir()
	bill := writeFile(t, dir, "hospital_bill.txt", "TOTAL: 1000")
	discharge := writeFile(t, dir, "discharge_summary.txt", "DIAGNOSIS: fracture")

	processor := &processorFake{}
	s := NewServer(processor, nil, 0, "test", nil)
	result := callTool(t, s, map[string]any{"paths": []any{bill, discharge}})

	assert.False(t, result.IsError)
	require.Len(t, processor.received, 2)
	assert.Equal(t, "hospital_bill.txt", processor.received[0].Filename)
	assert.Equal(t, "DIAGNOSIS: fracture", string(processor.received[1].Data))

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	decision := resp["claim_decision"].(map[string]any)
	assert.Equal(t, "approved", decision["status"])
}

func TestProcessClaimToolValidatesInput(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "bill.txt", "0123456789")

	tests := []struct {
		name     string
		maxBytes int64
		args     map[string]any
	}{
		{name: "missing paths", args: map[string]any{}},
		{name: "empty paths", args: map[string]any{"paths": []any{}}},
		{name: "missing file", args: map[string]any{"paths": []any{filepath.Join(dir, "nope.pdf")}}},
		{name: "directory", args: map[string]any{"paths": []any{dir}}},
		{name: "too large", maxBytes: 4, args: map[string]any{"paths": []any{big}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &processorFake{}
			s := NewServer(processor, nil, tt.maxBytes, "test", nil)
			result := callTool(t, s, tt.args)

			assert.True(t, result.IsError)
			assert.Nil(t, processor.received, "processor must not run on invalid input")
		})
	}
}

func TestProcessClaimToolSurfacesProcessorError(t *testing.T) {
	dir := t.TempDir()
	bill := writeFile(t, dir, "bill.txt", "TOTAL: 1")

	s := NewServer(&processorFake{err: errors.New("store unavailable")}, nil, 0, "test", nil)
	result := callTool(t, s, map[string]any{"paths": []any{bill}})

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "store unavailable")
}

func TestProcessClaimToolWritesReport(t *testing.T) {
	dir := t.TempDir()
	bill := writeFile(t, dir, "bill.txt", "TOTAL: 1")
	reportPath := filepath.Join(dir, "claim.xlsx")

	var written string
	report := func(path string, resp *domain.ClaimProcessingResponse) error {
		written = path
		assert.Equal(t, "claim-7", resp.ProcessingMetadata.ClaimID)
		return nil
	}
	s := NewServer(&processorFake{}, report, 0, "test", nil)
	result := callTool(t, s, map[string]any{"paths": []any{bill}, "report_path": reportPath})

	assert.False(t, result.IsError)
	assert.Equal(t, reportPath, written)
}

func TestMCPServerRegistersTool(t *testing.T) {
	s := NewServer(&processorFake{}, nil, 0, "test", nil)
	tool := s.processClaimTool()

	assert.Equal(t, toolName, tool.Name)
	assert.Contains(t, tool.InputSchema.Required, "paths")
	assert.NotNil(t, s.MCPServer())
}
