package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/claim-processor/internal/bootstrap"
	"github.com/kirillkom/claim-processor/internal/config"
	"github.com/kirillkom/claim-processor/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/claim-processor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/claim-processor/internal/observability/logging"
)

type processOptions struct {
	jsonOutput  bool
	reportPath  string
	noOracle    bool
	storagePath string
}

func newProcessCmd(global *globalOptions) *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process FILE...",
		Short: "Classify, extract, validate and decide one claim",
		Example: `  claimctl process hospital_bill.pdf discharge_summary.pdf
  claimctl process --json --no-oracle bill.txt
  claimctl process --report claim.xlsx bill.pdf discharge.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, global, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the full claim response as JSON")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "write an XLSX report to this path")
	cmd.Flags().BoolVar(&opts.noOracle, "no-oracle", false, "skip the model and use pattern extraction only")
	cmd.Flags().StringVar(&opts.storagePath, "storage", "", "directory for stored copies (default: temporary, removed on exit)")
	return cmd
}

func runProcess(cmd *cobra.Command, global *globalOptions, opts *processOptions, paths []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	if opts.noOracle {
		cfg.OracleEnabled = false
	}

	cfg.StoragePath = opts.storagePath
	if cfg.StoragePath == "" {
		dir, err := os.MkdirTemp("", "claimctl-*")
		if err != nil {
			return fmt.Errorf("create temp storage: %w", err)
		}
		defer os.RemoveAll(dir)
		cfg.StoragePath = dir
	}

	logger := logging.New(cmd.ErrOrStderr(), "claimctl", global.logLevel)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "claimctl", Logger: logger})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	uploads, err := localfs.ReadUploads(paths, cfg.UploadMaxBytes)
	if err != nil {
		return err
	}
	resp, err := app.Processor.ProcessClaim(ctx, uploads)
	if err != nil {
		return fmt.Errorf("process claim: %w", err)
	}

	if opts.reportPath != "" {
		if err := xlsx.WriteFile(opts.reportPath, resp); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printSummary(out, resp)
	if opts.reportPath != "" {
		fmt.Fprintf(out, "\nReport written to %s\n", opts.reportPath)
	}
	return nil
}
