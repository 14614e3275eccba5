package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventops/os-indexer/internal/bootstrap"
	"github.com/eventops/os-indexer/internal/config"
	"github.com/eventops/os-indexer/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("os-indexer", cfg.LogLevel, cfg.VerboseLogging)

	if _, err := os.Stat(cfg.RootDir); err != nil {
		log.Fatalf("root directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if err := app.Indexer.WarmCache(ctx); err != nil {
		logger.Warn("cache warmup failed, continuing cold", "error", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	if app.Watcher != nil {
		go func() {
			if err := app.Watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("directory watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("indexer started",
		"root", cfg.RootDir,
		"interval", cfg.ScanInterval().String(),
		"watch", cfg.WatchEnabled)

	app.Indexer.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("indexer stopped")
}
