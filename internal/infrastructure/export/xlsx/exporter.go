package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eventops/os-indexer/internal/core/domain"
	"github.com/eventops/os-indexer/internal/core/ports"
)

const sheetName = "Service Orders"

// Exporter renders the indexed catalog into an XLSX workbook.
type Exporter struct {
	repo   ports.OrderRepository
	logger *slog.Logger
}

func NewExporter(repo ports.OrderRepository, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{repo: repo, logger: logger}
}

// Export returns workbook bytes listing every indexed order. With
// onlyActive set, superseded versions are left out.
func (e *Exporter) Export(ctx context.Context, onlyActive bool) ([]byte, error) {
	start := time.Now()

	orders, err := e.repo.ListOrders(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(sheetName); err == nil {
		f.SetActiveSheet(index)
	}

	headers := []string{
		"Order Number",
		"Version",
		"Client",
		"Event",
		"Event Date",
		"Revision",
		"Active",
		"File",
		"Content Hash",
		"Indexed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	row := 2
	for _, order := range orders {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, order.OrderNumber)
		write(2, order.Version)
		write(3, order.Client)
		write(4, order.Event)
		if order.EventDate != nil {
			write(5, order.EventDate.Format("2006-01-02"))
		} else {
			write(5, domain.MissingText)
		}
		write(6, order.IsRevision)
		write(7, order.IsActive)
		write(8, order.RelativePath)
		write(9, order.ContentHash)
		write(10, order.CreatedAt.Format("2006-01-02 15:04"))

		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "C", "D", 32)
	_ = f.SetColWidth(sheetName, "E", "E", 12)
	_ = f.SetColWidth(sheetName, "H", "H", 60)
	_ = f.SetColWidth(sheetName, "I", "I", 24)
	_ = f.SetColWidth(sheetName, "J", "J", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export_xlsx_ok",
		"rows", len(orders),
		"only_active", onlyActive,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
