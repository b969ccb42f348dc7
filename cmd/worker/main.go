package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/claim-processor/internal/bootstrap"
	"github.com/kirillkom/claim-processor/internal/config"
	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/observability/logging"
	"github.com/kirillkom/claim-processor/internal/observability/metrics"
)

const (
	service      = "claims-worker"
	claimTimeout = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:    service,
		Logger:     logger,
		Registerer: workerMetrics.Registry(),
		Queue:      true,
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker.metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker.subscribed", "subject", cfg.NATSSubmitSubject, "decisions", cfg.NATSDecisionSubject)
	err = app.Queue.SubscribeClaimSubmitted(ctx, func(handlerCtx context.Context, submission domain.ClaimSubmission) error {
		if !submission.SubmittedAt.IsZero() {
			workerMetrics.ObserveQueueLag(service, time.Since(submission.SubmittedAt))
		}
		workerMetrics.StartClaim()
		start := time.Now()

		processCtx, cancel := context.WithTimeout(handlerCtx, claimTimeout)
		defer cancel()

		status := ""
		resp, err := app.Processor.ProcessStored(processCtx, submission)
		if err == nil {
			status = string(resp.ClaimDecision.Status)
			err = app.Queue.PublishClaimDecided(processCtx, resp)
		}
		workerMetrics.FinishClaim(service, time.Since(start), status, err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
