// Package bootstrap wires infrastructure into the use cases shared by
// the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/graymont/bidpipe/internal/config"
	"github.com/graymont/bidpipe/internal/core/ports"
	"github.com/graymont/bidpipe/internal/core/usecase"
	"github.com/graymont/bidpipe/internal/infrastructure/export/excel"
	"github.com/graymont/bidpipe/internal/infrastructure/extractor/pdftext"
	"github.com/graymont/bidpipe/internal/infrastructure/llm/claude"
	"github.com/graymont/bidpipe/internal/infrastructure/queue/nats"
	"github.com/graymont/bidpipe/internal/infrastructure/repository/postgres"
	"github.com/graymont/bidpipe/internal/infrastructure/resilience"
	"github.com/graymont/bidpipe/internal/infrastructure/storage/localfs"
	"github.com/graymont/bidpipe/internal/infrastructure/taxonomy/csi"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue       ports.MessageQueue
	Store       ports.DocumentStore
	Extractions *usecase.ExtractionUseCase
	Corrections *usecase.CorrectionUseCase
	Exporter    *excel.Exporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	sessions := postgres.NewSessionRepository(db)
	packages := postgres.NewPackageRepository(db)
	observations := postgres.NewObservationRepository(db)
	predictions := postgres.NewPredictionRepository(db)

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init document storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Executor: executor,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var model ports.DocumentModel = claude.New(claude.Config{
		APIKey:         cfg.AnthropicAPIKey,
		Model:          cfg.ModelID,
		MaxTokens:      int64(cfg.ModelMaxTokens),
		CallTimeout:    time.Duration(cfg.ModelTimeoutSeconds) * time.Second,
		CallsPerMinute: cfg.ModelCallsPerMinute,
	})
	if cfg.UseSyntheticModel {
		model = usecase.NewSyntheticModel()
	}

	matcher := usecase.NewCSIMatcher(csi.NewIndex())
	extractions := usecase.NewExtractionUseCase(
		sessions,
		packages,
		observations,
		queue,
		store,
		model,
		usecase.NewSyntheticModel(),
		pdftext.New(store),
		usecase.NewPageClassifier(),
		usecase.NewCombiner(),
		matcher,
		logger,
	)
	corrections := usecase.NewCorrectionUseCase(packages, observations, predictions, logger)
	exporter := excel.NewExporter(sessions, packages, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Queue:       queue,
		Store:       store,
		Extractions: extractions,
		Corrections: corrections,
		Exporter:    exporter,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
