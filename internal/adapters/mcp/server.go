package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/core/ports"
	"github.com/kirillkom/claim-processor/internal/infrastructure/storage/localfs"
)

const (
	serverName    = "claim-processor"
	toolName      = "process_claim"
	maxClaimFiles = 20
)

// ReportWriter exports a processed claim to a file.
type ReportWriter func(path string, resp *domain.ClaimProcessingResponse) error

type Server struct {
	processor ports.ClaimProcessor
	report    ReportWriter
	maxBytes  int64
	version   string
	logger    *slog.Logger
}

func NewServer(processor ports.ClaimProcessor, report ReportWriter, maxBytes int64, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		processor: processor,
		report:    report,
		maxBytes:  maxBytes,
		version:   version,
		logger:    logger,
	}
}

// MCPServer builds the stdio-ready server with the process_claim tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, s.version, server.WithToolCapabilities(false))
	srv.AddTool(s.processClaimTool(), s.handleProcessClaim)
	return srv
}

func (s *Server) processClaimTool() mcp.Tool {
	return mcp.NewTool(toolName,
		mcp.WithDescription("Classify, extract, validate and decide a medical insurance claim from local document files. Returns the claim processing response as JSON."),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Local paths of the claim documents (bill, discharge summary, ...)."),
			mcp.WithStringItems(),
		),
		mcp.WithString("report_path",
			mcp.Description("Optional path of an XLSX report to write alongside the JSON result."),
		),
	)
}

func (s *Server) handleProcessClaim(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := req.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("paths must list at least one document"), nil
	}
	if len(paths) > maxClaimFiles {
		return mcp.NewToolResultError(fmt.Sprintf("at most %d documents per claim", maxClaimFiles)), nil
	}

	uploads, err := localfs.ReadUploads(paths, s.maxBytes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.processor.ProcessClaim(ctx, uploads)
	if err != nil {
		s.logger.Warn("mcp.process_claim_failed", "documents", len(uploads), "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("process claim: %v", err)), nil
	}

	if reportPath := req.GetString("report_path", ""); reportPath != "" {
		if s.report == nil {
			return mcp.NewToolResultError("report export is not configured"), nil
		}
		if err := s.report(reportPath, resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("write report: %v", err)), nil
		}
	}

	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode claim response: %w", err)
	}
	s.logger.Info("mcp.process_claim",
		"claim_id", resp.ProcessingMetadata.ClaimID,
		"status", resp.ClaimDecision.Status,
		"documents", len(resp.Documents),
	)
	return mcp.NewToolResultText(string(body)), nil
}
