package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventops/os-indexer/internal/config"
	"github.com/eventops/os-indexer/internal/core/usecase"
	"github.com/eventops/os-indexer/internal/infrastructure/export/xlsx"
	"github.com/eventops/os-indexer/internal/infrastructure/extractor/pdftext"
	"github.com/eventops/os-indexer/internal/infrastructure/notifier/nats"
	"github.com/eventops/os-indexer/internal/infrastructure/repository/postgres"
	"github.com/eventops/os-indexer/internal/infrastructure/resilience"
	"github.com/eventops/os-indexer/internal/infrastructure/watch"
	"github.com/eventops/os-indexer/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Repo     *postgres.OrderRepository
	Indexer  *usecase.Indexer
	Exporter *xlsx.Exporter
	Metrics  *metrics.IndexerMetrics
	Watcher  *watch.Watcher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewOrderRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	notifier, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	scoring := usecase.DefaultScoring()
	validator := usecase.NewCrossValidator(
		usecase.NewContentExtractor(scoring),
		usecase.NewFilenameExtractor(scoring),
		logger,
	)

	indexerMetrics := metrics.NewIndexerMetrics("os-indexer")

	indexer := usecase.NewIndexer(repo, validator, pdftext.New(), usecase.IndexerOptions{
		Root:     cfg.RootDir,
		Interval: cfg.ScanInterval(),
		Logger:   logger,
		Notifier: notifier,
		Observer: indexerMetrics,
	})

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Repo:     repo,
		Indexer:  indexer,
		Exporter: xlsx.NewExporter(repo, logger),
		Metrics:  indexerMetrics,
		closeFn: func() {
			notifier.Close()
			_ = db.Close()
		},
	}

	if cfg.WatchEnabled {
		app.Watcher = watch.New(cfg.RootDir, ".pdf", cfg.WatchDebounce(), indexer.Nudge, logger)
	}

	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
