package ports

import (
	"context"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// Scanner is the inbound contract for the incremental indexer.
type Scanner interface {
	// RunPass walks the root directory once and indexes new files.
	// A second concurrent call is refused and returns immediately.
	RunPass(ctx context.Context) (domain.ScanSummary, error)
	// Start runs passes on the configured interval until ctx is done or
	// Stop is called. The in-flight pass is allowed to finish.
	Start(ctx context.Context)
	Stop()
	// Nudge requests an early pass from the Start loop, used by the
	// filesystem watcher. It never starts a pass by itself.
	Nudge()
}

// DocumentValidator turns one document (content text plus filename)
// into a reconciled record ready for versioning.
type DocumentValidator interface {
	Validate(text, filename string) (*domain.ExtractedRecord, error)
}
