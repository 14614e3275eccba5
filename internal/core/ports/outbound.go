package ports

import (
	"context"
	"time"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// OrderRepository persists and reads indexed service orders. Lookup
// methods return (nil, nil) when no record matches.
type OrderRepository interface {
	FindByFilename(ctx context.Context, filename string) (*domain.ServiceOrder, error)
	FindByHash(ctx context.Context, contentHash string) (*domain.ServiceOrder, error)
	FindByPath(ctx context.Context, filePath string) (*domain.ServiceOrder, error)
	// ListVersions returns every record for the normalized order number,
	// newest version first.
	ListVersions(ctx context.Context, orderNumber string) ([]*domain.ServiceOrder, error)
	// ListFilenames returns the filenames of every indexed record, used
	// to warm the scan cache at startup.
	ListFilenames(ctx context.Context) ([]string, error)
	ListOrders(ctx context.Context, onlyActive bool) ([]*domain.ServiceOrder, error)
	Create(ctx context.Context, order *domain.ServiceOrder) error
	// CreateRevision atomically deactivates every prior record of the
	// same order number and inserts the new active record.
	CreateRevision(ctx context.Context, order *domain.ServiceOrder) error
}

// TextExtractor renders a document file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ScanObserver receives pass-level measurements for instrumentation.
type ScanObserver interface {
	PassStarted()
	PassFinished(summary domain.ScanSummary, duration time.Duration, err error)
}

// ScanNotifier receives indexing lifecycle events. Implementations are
// fire-and-forget: a broken notifier must never fail a scan pass.
type ScanNotifier interface {
	ScanStarted(ctx context.Context, total int)
	ScanProgress(ctx context.Context, processed, total int, filename string)
	ScanCompleted(ctx context.Context, summary domain.ScanSummary)
	OrderIndexed(ctx context.Context, order *domain.ServiceOrder)
}
