package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/eventops/os-indexer/internal/core/domain"
	"github.com/eventops/os-indexer/internal/core/ports"
)

const documentExt = ".pdf"

// IndexerOptions configures one Indexer instance.
type IndexerOptions struct {
	Root     string
	Interval time.Duration
	Logger   *slog.Logger
	Notifier ports.ScanNotifier
	Observer ports.ScanObserver
}

// Indexer walks the order directory tree, decides which files are new
// work, and persists validated, versioned records. One instance owns
// its filename cache; passes never run concurrently.
type Indexer struct {
	repo      ports.OrderRepository
	validator ports.DocumentValidator
	extractor ports.TextExtractor
	notifier  ports.ScanNotifier
	observer  ports.ScanObserver
	logger    *slog.Logger

	root     string
	interval time.Duration

	mu    sync.Mutex
	cache map[string]struct{}

	running       atomic.Bool
	lastFileCount int

	nudgeCh  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewIndexer(
	repo ports.OrderRepository,
	validator ports.DocumentValidator,
	extractor ports.TextExtractor,
	opts IndexerOptions,
) *Indexer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Indexer{
		repo:      repo,
		validator: validator,
		extractor: extractor,
		notifier:  notifier,
		observer:  opts.Observer,
		logger:    logger,
		root:      opts.Root,
		interval:  interval,
		cache:     make(map[string]struct{}),
		nudgeCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// WarmCache loads the filenames of already-indexed records so repeated
// passes skip them without repository round-trips. The cache is an
// optimization only; the repository stays the source of truth.
func (ix *Indexer) WarmCache(ctx context.Context) error {
	names, err := ix.repo.ListFilenames(ctx)
	if err != nil {
		return fmt.Errorf("warm scan cache: %w", err)
	}
	ix.mu.Lock()
	for _, n := range names {
		ix.cache[n] = struct{}{}
	}
	ix.mu.Unlock()
	ix.logger.Info("scan cache warmed", "known_files", len(names))
	return nil
}

// Start runs a pass immediately, then on every interval tick or nudge,
// until ctx is done or Stop is called.
func (ix *Indexer) Start(ctx context.Context) {
	ticker := time.NewTicker(ix.interval)
	defer ticker.Stop()

	ix.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ix.stopCh:
			return
		case <-ticker.C:
		case <-ix.nudgeCh:
		}
		ix.runLogged(ctx)
	}
}

// Stop ends the Start loop. The in-flight pass finishes on its own.
func (ix *Indexer) Stop() {
	ix.stopOnce.Do(func() { close(ix.stopCh) })
}

// Nudge requests an early pass without blocking. Dropped when a request
// is already pending.
func (ix *Indexer) Nudge() {
	select {
	case ix.nudgeCh <- struct{}{}:
	default:
	}
}

func (ix *Indexer) runLogged(ctx context.Context) {
	summary, err := ix.RunPass(ctx)
	if err != nil {
		ix.logger.Error("scan pass failed", "error", err)
		return
	}
	ix.logger.Info("scan pass done",
		"new_files", summary.NewFiles,
		"already_indexed", summary.AlreadyIndexed,
		"errors", summary.Errors)
}

// RunPass executes one full scan. A concurrent call while a pass is in
// flight is refused and returns an empty summary.
func (ix *Indexer) RunPass(ctx context.Context) (domain.ScanSummary, error) {
	var summary domain.ScanSummary

	if !ix.running.CompareAndSwap(false, true) {
		ix.logger.Debug("scan pass already running, skipping")
		return summary, nil
	}
	defer ix.running.Store(false)

	start := time.Now()
	if ix.observer != nil {
		ix.observer.PassStarted()
	}
	summary, err := ix.pass(ctx)
	if ix.observer != nil {
		ix.observer.PassFinished(summary, time.Since(start), err)
	}
	return summary, err
}

func (ix *Indexer) pass(ctx context.Context) (domain.ScanSummary, error) {
	var summary domain.ScanSummary

	if _, err := os.Stat(ix.root); err != nil {
		ix.notifier.ScanCompleted(ctx, summary)
		return summary, fmt.Errorf("read root directory %q: %w", ix.root, err)
	}

	files, err := ix.enumerate()
	if err != nil {
		ix.notifier.ScanCompleted(ctx, summary)
		return summary, err
	}

	// An unchanged file count means nothing new to do.
	if len(files) == ix.lastFileCount && len(files) > 0 {
		ix.logger.Debug("file count unchanged, skipping pass", "count", len(files))
		return summary, nil
	}
	ix.lastFileCount = len(files)

	ix.notifier.ScanStarted(ctx, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			ix.notifier.ScanCompleted(ctx, summary)
			return summary, err
		}
		name := filepath.Base(path)
		indexed, err := ix.processFile(ctx, path, name)
		switch {
		case err != nil:
			summary.Errors++
			ix.logger.Warn("file not indexed", "file", name, "error", err)
		case indexed:
			summary.NewFiles++
		default:
			summary.AlreadyIndexed++
		}
		ix.notifier.ScanProgress(ctx, i+1, len(files), name)
	}

	ix.notifier.ScanCompleted(ctx, summary)
	return summary, nil
}

// enumerate collects every document file under the root. Per-entry
// access errors skip that entry; they never abort the walk.
func (ix *Indexer) enumerate() ([]string, error) {
	var files []string
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == ix.root {
				return walkErr
			}
			ix.logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), documentExt) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", ix.root, err)
	}
	return files, nil
}

// processFile runs the dedup lookups and, for genuinely new work, the
// full extract-validate-version-persist chain. The boolean reports
// whether a new record was created.
func (ix *Indexer) processFile(ctx context.Context, path, name string) (bool, error) {
	if ix.cacheHas(name) {
		return false, nil
	}
	if existing, err := ix.repo.FindByFilename(ctx, name); err != nil {
		return false, fmt.Errorf("lookup by filename: %w", err)
	} else if existing != nil {
		ix.cacheAdd(name)
		return false, nil
	}

	// Hash only after the name lookups missed.
	hash, err := hashFile(path)
	if err != nil {
		return false, domain.WrapError(domain.ErrCorruptDocument, "hash file", err)
	}
	if existing, err := ix.repo.FindByHash(ctx, hash); err != nil {
		return false, fmt.Errorf("lookup by hash: %w", err)
	} else if existing != nil {
		ix.logger.Info("duplicate content, skipping", "file", name, "existing", existing.FileName)
		ix.cacheAdd(name)
		return false, nil
	}
	if existing, err := ix.repo.FindByPath(ctx, path); err != nil {
		return false, fmt.Errorf("lookup by path: %w", err)
	} else if existing != nil {
		ix.cacheAdd(name)
		return false, nil
	}

	record, err := ix.parse(ctx, path, name)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotAnOrder) {
			ix.logger.Debug("not a service order, skipping", "file", name)
			ix.cacheAdd(name)
			return false, nil
		}
		return false, err
	}

	order, created, err := ix.version(ctx, record, path, name, hash)
	if err != nil {
		return false, err
	}
	ix.cacheAdd(name)
	if !created {
		return false, nil
	}
	ix.notifier.OrderIndexed(ctx, order)
	return true, nil
}

// parse renders the document and cross-validates both extraction paths.
// An unreadable document is not fatal here: the filename path may still
// produce a usable record.
func (ix *Indexer) parse(ctx context.Context, path, name string) (*domain.ExtractedRecord, error) {
	text, err := ix.extractor.Extract(ctx, path)
	if err != nil {
		ix.logger.Warn("content unreadable, relying on filename", "file", name, "error", err)
		text = ""
	}
	return ix.validator.Validate(text, name)
}

// version assigns the version number and persists. For a revision, the
// repository deactivates every sibling atomically with the insert. The
// boolean reports whether a record was actually created.
func (ix *Indexer) version(ctx context.Context, record *domain.ExtractedRecord, path, name, hash string) (*domain.ServiceOrder, bool, error) {
	versions, err := ix.repo.ListVersions(ctx, record.OrderNumber)
	if err != nil {
		return nil, false, fmt.Errorf("list versions: %w", err)
	}
	for _, v := range versions {
		if v.FilePath == path {
			// Path already tracked under this order number.
			return nil, false, nil
		}
	}

	rel, err := filepath.Rel(ix.root, path)
	if err != nil {
		rel = name
	}
	now := time.Now().UTC()
	order := &domain.ServiceOrder{
		ID:           uuid.NewString(),
		OrderNumber:  record.OrderNumber,
		Version:      1,
		Client:       record.Client,
		Event:        record.Event,
		EventDate:    record.EventDate,
		IsRevision:   record.IsRevision,
		FilePath:     path,
		RelativePath: rel,
		FileName:     name,
		ContentHash:  hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if len(versions) == 0 {
		if err := ix.repo.Create(ctx, order); err != nil {
			return nil, false, fmt.Errorf("create order: %w", err)
		}
		return order, true, nil
	}

	newest := versions[0]
	order.Version = newest.Version + 1
	if record.IsRevision {
		order.PreviousVersionID = &newest.ID
		if err := ix.repo.CreateRevision(ctx, order); err != nil {
			return nil, false, fmt.Errorf("create revision: %w", err)
		}
		return order, true, nil
	}

	// Same order number without a revision marker: a distinct document
	// reusing the number. Versions stay unique; siblings stay active.
	if err := ix.repo.Create(ctx, order); err != nil {
		return nil, false, fmt.Errorf("create order: %w", err)
	}
	return order, true, nil
}

func (ix *Indexer) cacheHas(name string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.cache[name]
	return ok
}

func (ix *Indexer) cacheAdd(name string) {
	ix.mu.Lock()
	ix.cache[name] = struct{}{}
	ix.mu.Unlock()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// noopNotifier satisfies ports.ScanNotifier when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) ScanStarted(context.Context, int)                 {}
func (noopNotifier) ScanProgress(context.Context, int, int, string)   {}
func (noopNotifier) ScanCompleted(context.Context, domain.ScanSummary) {}
func (noopNotifier) OrderIndexed(context.Context, *domain.ServiceOrder) {}
