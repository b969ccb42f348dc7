package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/claim-processor/internal/config"
	"github.com/kirillkom/claim-processor/internal/core/patterns"
	"github.com/kirillkom/claim-processor/internal/core/ports"
	"github.com/kirillkom/claim-processor/internal/core/usecase"
	"github.com/kirillkom/claim-processor/internal/infrastructure/extractor/doctext"
	"github.com/kirillkom/claim-processor/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/claim-processor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/claim-processor/internal/infrastructure/resilience"
	"github.com/kirillkom/claim-processor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/claim-processor/internal/observability/metrics"
)

type Options struct {
	Service string
	Logger  *slog.Logger

	// Registerer receives the pipeline collectors. Nil disables pipeline metrics.
	Registerer prometheus.Registerer

	// Queue connects NATS and enables async submission.
	Queue bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Processor *usecase.ProcessClaimUseCase
	Submitter ports.ClaimSubmitter
	Queue     ports.ClaimQueue

	closeFn func()
}

func New(_ context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	service := opts.Service
	if service == "" {
		service = "claim-processor"
	}

	tables := patterns.DefaultTables()
	if cfg.KeywordTablesPath != "" {
		loaded, err := patterns.LoadTablesFile(cfg.KeywordTablesPath)
		if err != nil {
			return nil, fmt.Errorf("load keyword tables: %w", err)
		}
		tables = loaded
	}

	var observer ports.PipelineObserver = ports.NopObserver{}
	var pipelineMetrics *metrics.PipelineMetrics
	if opts.Registerer != nil {
		pipelineMetrics = metrics.NewPipelineMetrics(service, opts.Registerer)
		observer = pipelineMetrics
	}

	extractor := doctext.New()
	storage, err := localfs.New(cfg.StoragePath, cfg.UploadMaxBytes, extractor, logger)
	if err != nil {
		return nil, fmt.Errorf("init document storage: %w", err)
	}

	var oracle ports.ModelOracle
	if cfg.OracleEnabled {
		executor := resilience.NewExecutor(
			resilience.OracleConfig(cfg.OracleRetryMaxAttempts, cfg.OracleBreakerEnabled, cfg.OracleTimeout),
		).WithLogger(logger)
		if pipelineMetrics != nil {
			executor.OnStateChange(func(operation string, _, to gobreaker.State) {
				pipelineMetrics.SetBreakerState(operation, int(to))
			})
		}
		oracle = ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, executor)
	} else {
		logger.Warn("oracle.disabled", "reason", "ORACLE_ENABLED=false, running pattern-only")
	}

	processor := usecase.NewProcessClaimUseCase(storage, extractor, oracle, usecase.PipelineConfig{
		Tables:        tables,
		OracleTimeout: cfg.OracleTimeout,
		Concurrency:   cfg.PipelineConcurrency,
		Decision: usecase.DecisionPolicy{
			ApproveThreshold: cfg.DecisionApproveThreshold,
			RejectThreshold:  cfg.DecisionRejectThreshold,
			HighClaimAmount:  cfg.DecisionHighAmount,
		},
		Observer: observer,
		Logger:   logger,
	})

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Processor: processor,
	}
	if !opts.Queue {
		return app, nil
	}

	queue, err := nats.New(cfg.NATSURL, nats.Options{
		SubmitSubject:      cfg.NATSSubmitSubject,
		DecisionSubject:    cfg.NATSDecisionSubject,
		ResilienceExecutor: resilience.NewExecutor(resilience.QueueConfig()).WithLogger(logger),
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init claim queue: %w", err)
	}
	app.Queue = queue
	app.Submitter = usecase.NewSubmitClaimUseCase(storage, queue)
	app.closeFn = queue.Close
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
