package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graymont/bidpipe/internal/bootstrap"
	"github.com/graymont/bidpipe/internal/config"
	"github.com/graymont/bidpipe/internal/observability/logging"
	"github.com/graymont/bidpipe/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("bidpipe-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("bidpipe-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	sessionTimeout := time.Duration(cfg.WorkerSessionTimeoutMinutes) * time.Minute
	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSessionQueued(ctx, func(handlerCtx context.Context, sessionID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, sessionTimeout)
		defer cancel()

		workerMetrics.StartSession()
		start := time.Now()
		runErr := app.Extractions.Run(runCtx, sessionID)

		status := "completed"
		if runErr != nil {
			status = "failed"
		}
		workerMetrics.FinishSession("bidpipe-worker", status, time.Since(start))

		if results, resultsErr := app.Extractions.GetResults(handlerCtx, sessionID); resultsErr == nil {
			for _, pass := range results.Passes {
				if !pass.Skipped {
					workerMetrics.ObservePass("bidpipe-worker", pass.Name, pass.FinishedAt.Sub(pass.StartedAt))
				}
			}
			for i := 0; i < results.Metrics.DocumentsProcessed; i++ {
				workerMetrics.RecordDocument("bidpipe-worker", false)
			}
			for i := 0; i < results.Metrics.DocumentsFailed; i++ {
				workerMetrics.RecordDocument("bidpipe-worker", true)
			}
			workerMetrics.RecordTokenUsage("bidpipe-worker", cfg.ModelID,
				results.Metrics.InputTokens, results.Metrics.OutputTokens)
			for i := range results.WorkPackages {
				if results.WorkPackages[i].Provenance.RepairedOutput {
					workerMetrics.RecordRepairedResponse("bidpipe-worker")
				}
			}
		}
		return runErr
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
