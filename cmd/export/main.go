package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventops/os-indexer/internal/config"
	"github.com/eventops/os-indexer/internal/infrastructure/export/xlsx"
	"github.com/eventops/os-indexer/internal/infrastructure/repository/postgres"
	"github.com/eventops/os-indexer/internal/observability/logging"
)

func main() {
	output := flag.String("o", "orders.xlsx", "output workbook path")
	all := flag.Bool("all", false, "include superseded order versions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("os-export", cfg.LogLevel, cfg.VerboseLogging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	exporter := xlsx.NewExporter(postgres.NewOrderRepository(db), logger)
	data, err := exporter.Export(ctx, !*all)
	if err != nil {
		log.Fatalf("export error: %v", err)
	}

	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("write workbook: %v", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *output, len(data))
}
