package main

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/claim-processor/internal/adapters/mcp"
	"github.com/kirillkom/claim-processor/internal/bootstrap"
	"github.com/kirillkom/claim-processor/internal/config"
	"github.com/kirillkom/claim-processor/internal/core/usecase"
	"github.com/kirillkom/claim-processor/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/claim-processor/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the protocol.
	logger := logging.New(os.Stderr, "claims-mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Service: "claims-mcp", Logger: logger})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.Processor, xlsx.WriteFile, cfg.UploadMaxBytes, usecase.PipelineVersion, logger)
	if err := server.ServeStdio(srv.MCPServer()); err != nil {
		logger.Error("mcp.serve_failed", "error", err)
		os.Exit(1)
	}
}
