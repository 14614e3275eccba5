package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// orderRepoFake keeps records in memory and mimics the repository
// lookup/versioning contract.
type orderRepoFake struct {
	mu      sync.Mutex
	records []*domain.ServiceOrder

	failCreate error
}

func (f *orderRepoFake) FindByFilename(_ context.Context, name string) (*domain.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.FileName == name {
			return r, nil
		}
	}
	return nil, nil
}

func (f *orderRepoFake) FindByHash(_ context.Context, hash string) (*domain.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ContentHash == hash {
			return r, nil
		}
	}
	return nil, nil
}

func (f *orderRepoFake) FindByPath(_ context.Context, path string) (*domain.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.FilePath == path {
			return r, nil
		}
	}
	return nil, nil
}

func (f *orderRepoFake) ListVersions(_ context.Context, orderNumber string) ([]*domain.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ServiceOrder
	for _, r := range f.records {
		if r.OrderNumber == orderNumber {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (f *orderRepoFake) ListFilenames(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.records))
	for _, r := range f.records {
		names = append(names, r.FileName)
	}
	return names, nil
}

func (f *orderRepoFake) ListOrders(_ context.Context, onlyActive bool) ([]*domain.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ServiceOrder
	for _, r := range f.records {
		if !onlyActive || r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *orderRepoFake) Create(_ context.Context, order *domain.ServiceOrder) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *order
	f.records = append(f.records, &cp)
	return nil
}

func (f *orderRepoFake) CreateRevision(_ context.Context, order *domain.ServiceOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.OrderNumber == order.OrderNumber {
			r.IsActive = false
		}
	}
	cp := *order
	f.records = append(f.records, &cp)
	return nil
}

// textExtractorFake maps filename to canned text.
type textExtractorFake struct {
	texts map[string]string
	err   error
}

func (f *textExtractorFake) Extract(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.texts[filepath.Base(path)], nil
}

type notifierSpy struct {
	started   int
	progress  int
	completed []domain.ScanSummary
	indexed   []*domain.ServiceOrder
}

func (n *notifierSpy) ScanStarted(_ context.Context, total int) { n.started = total }
func (n *notifierSpy) ScanProgress(_ context.Context, _, _ int, _ string) {
	n.progress++
}
func (n *notifierSpy) ScanCompleted(_ context.Context, s domain.ScanSummary) {
	n.completed = append(n.completed, s)
}
func (n *notifierSpy) OrderIndexed(_ context.Context, o *domain.ServiceOrder) {
	n.indexed = append(n.indexed, o)
}

func orderContent(number string) string {
	return "Orçamento: " + number + " Local: salão Cliente: ACME Evento: Gala de Inverno Data: 20/07/2025 Horário: 20:00"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestIndexer(t *testing.T, root string, repo *orderRepoFake, texts map[string]string, notifier *notifierSpy) *Indexer {
	t.Helper()
	content := newContentExtractor()
	filename := newFilenameExtractor()
	validator := NewCrossValidator(content, filename, nil)
	return NewIndexer(repo, validator, &textExtractorFake{texts: texts}, IndexerOptions{
		Root:     root,
		Notifier: notifier,
	})
}

func TestRunPassIndexesNewFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "raw-bytes-1")
	repo := &orderRepoFake{}
	spy := &notifierSpy{}
	ix := newTestIndexer(t, root, repo, map[string]string{
		"100 - ACME - Gala - 20.07.2025.pdf": orderContent("100"),
	}, spy)

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}
	if summary.NewFiles != 1 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(repo.records))
	}
	r := repo.records[0]
	if r.OrderNumber != "100" || r.Version != 1 || !r.IsActive {
		t.Fatalf("record = %+v", r)
	}
	if r.Client != "ACME" {
		t.Fatalf("client = %q, want content value", r.Client)
	}
	if r.ContentHash == "" || r.FileName == "" || r.RelativePath == "" {
		t.Fatalf("identity fields missing: %+v", r)
	}
	if spy.started != 1 || len(spy.indexed) != 1 || len(spy.completed) != 1 {
		t.Fatalf("notifier calls = %+v", spy)
	}
}

func TestRunPassIsIdempotentForUnchangedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "raw-bytes-1")
	repo := &orderRepoFake{}
	texts := map[string]string{"100 - ACME - Gala - 20.07.2025.pdf": orderContent("100")}
	ix := newTestIndexer(t, root, repo, texts, &notifierSpy{})

	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("first RunPass() error = %v", err)
	}
	// Second pass with a changed count so the count heuristic does not
	// short-circuit the dedup lookups.
	writeFile(t, root, "200 - Beta - Feira - 01.09.2025.pdf", "raw-bytes-2")
	texts["200 - Beta - Feira - 01.09.2025.pdf"] = orderContent("200")

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second RunPass() error = %v", err)
	}
	if summary.AlreadyIndexed != 1 || summary.NewFiles != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(repo.records) != 2 {
		t.Fatalf("re-index created duplicate records: %d", len(repo.records))
	}
}

func TestRunPassSkipsWhenFileCountUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "raw-bytes-1")
	repo := &orderRepoFake{}
	spy := &notifierSpy{}
	ix := newTestIndexer(t, root, repo, map[string]string{
		"100 - ACME - Gala - 20.07.2025.pdf": orderContent("100"),
	}, spy)

	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("first RunPass() error = %v", err)
	}
	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second RunPass() error = %v", err)
	}
	if summary.NewFiles != 0 || summary.AlreadyIndexed != 0 {
		t.Fatalf("unchanged count should skip the pass, summary = %+v", summary)
	}
	if spy.started != 1 {
		t.Fatalf("skipped pass should not notify start, started = %d", spy.started)
	}
}

func TestRunPassDuplicateContentSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "same-bytes")
	repo := &orderRepoFake{}
	texts := map[string]string{"100 - ACME - Gala - 20.07.2025.pdf": orderContent("100")}
	ix := newTestIndexer(t, root, repo, texts, &notifierSpy{})
	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("first RunPass() error = %v", err)
	}

	// Same bytes under a new name: the hash lookup must catch it.
	writeFile(t, root, "copy of order.pdf", "same-bytes")
	texts["copy of order.pdf"] = orderContent("100")

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second RunPass() error = %v", err)
	}
	if summary.NewFiles != 0 || summary.AlreadyIndexed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(repo.records) != 1 {
		t.Fatalf("duplicate content created a record: %d", len(repo.records))
	}
}

func TestRunPassRevisionDeactivatesSiblings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "v1-bytes")
	repo := &orderRepoFake{}
	texts := map[string]string{
		"100 - ACME - Gala - 20.07.2025.pdf": orderContent("100"),
	}
	ix := newTestIndexer(t, root, repo, texts, &notifierSpy{})
	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("first RunPass() error = %v", err)
	}

	writeFile(t, root, "100 - OS ATUALIZADA - ACME - Gala - 20.07.2025.pdf", "v2-bytes")
	texts["100 - OS ATUALIZADA - ACME - Gala - 20.07.2025.pdf"] = orderContent("100") + " O.S ATUALIZADA"
	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("second RunPass() error = %v", err)
	}

	versions, _ := repo.ListVersions(context.Background(), "100")
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	newest, oldest := versions[0], versions[1]
	if newest.Version != 2 || !newest.IsActive || !newest.IsRevision {
		t.Fatalf("newest = %+v", newest)
	}
	if oldest.Version != 1 || oldest.IsActive {
		t.Fatalf("oldest still active: %+v", oldest)
	}
	if newest.PreviousVersionID == nil || *newest.PreviousVersionID != oldest.ID {
		t.Fatalf("previous version chain broken: %+v", newest.PreviousVersionID)
	}
}

func TestRunPassNumberReuseKeepsSiblingsActive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "v1-bytes")
	repo := &orderRepoFake{}
	texts := map[string]string{
		"100 - ACME - Gala - 20.07.2025.pdf": orderContent("100"),
	}
	ix := newTestIndexer(t, root, repo, texts, &notifierSpy{})
	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("first RunPass() error = %v", err)
	}

	writeFile(t, root, "100 - Beta - Outro Evento - 01.10.2025.pdf", "other-bytes")
	texts["100 - Beta - Outro Evento - 01.10.2025.pdf"] = "Orçamento: 100 Local: anexo Cliente: Beta Evento: Outro Evento Data: 01/10/2025 Horário: 19:00"
	if _, err := ix.RunPass(context.Background()); err != nil {
		t.Fatalf("second RunPass() error = %v", err)
	}

	versions, _ := repo.ListVersions(context.Background(), "100")
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].Version != 2 || versions[1].Version != 1 {
		t.Fatalf("versions = %d/%d, want 2/1", versions[0].Version, versions[1].Version)
	}
	for _, v := range versions {
		if !v.IsActive {
			t.Fatalf("number reuse must not deactivate: %+v", v)
		}
	}
}

func TestRunPassCountsExtractionErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.pdf", "whatever")
	repo := &orderRepoFake{}
	spy := &notifierSpy{}
	ix := newTestIndexer(t, root, repo, map[string]string{}, spy)

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}
	if summary.Errors != 1 || summary.NewFiles != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(spy.completed) != 1 || spy.completed[0].Errors != 1 {
		t.Fatalf("completion notification = %+v", spy.completed)
	}
}

func TestRunPassIgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "irrelevant")
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.PDF", "upper-ext")
	repo := &orderRepoFake{}
	ix := newTestIndexer(t, root, repo, map[string]string{
		"100 - ACME - Gala - 20.07.2025.PDF": orderContent("100"),
	}, &notifierSpy{})

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}
	if summary.NewFiles != 1 {
		t.Fatalf("summary = %+v, want the .PDF file indexed", summary)
	}
}

func TestRunPassUnreadableRootFails(t *testing.T) {
	repo := &orderRepoFake{}
	spy := &notifierSpy{}
	ix := newTestIndexer(t, "/does/not/exist", repo, nil, spy)

	if _, err := ix.RunPass(context.Background()); err == nil {
		t.Fatalf("expected error for unreadable root")
	}
	if len(spy.completed) != 1 {
		t.Fatalf("expected error-completion notification")
	}
}

func TestWarmCacheSkipsKnownFilenames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "100 - ACME - Gala - 20.07.2025.pdf", "raw")
	repo := &orderRepoFake{records: []*domain.ServiceOrder{{
		ID:          "existing",
		OrderNumber: "100",
		Version:     1,
		FileName:    "100 - ACME - Gala - 20.07.2025.pdf",
		FilePath:    "/old/location.pdf",
		ContentHash: "other-hash",
		IsActive:    true,
	}}}
	ix := newTestIndexer(t, root, repo, nil, &notifierSpy{})
	if err := ix.WarmCache(context.Background()); err != nil {
		t.Fatalf("WarmCache() error = %v", err)
	}

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}
	if summary.AlreadyIndexed != 1 || summary.NewFiles != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(repo.records) != 1 {
		t.Fatalf("cache hit still created a record")
	}
}

func TestFilenameExtensionNotAnOrderText(t *testing.T) {
	// A readable PDF that is not an order is skipped silently, not
	// counted as an error.
	root := t.TempDir()
	writeFile(t, root, "relatorio.pdf", "bytes")
	repo := &orderRepoFake{}
	ix := newTestIndexer(t, root, repo, map[string]string{
		"relatorio.pdf": "ata de reunião ordinária sem qualquer campo estruturado de ordem de serviço",
	}, &notifierSpy{})

	summary, err := ix.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}
	if summary.Errors != 0 || summary.NewFiles != 0 || summary.AlreadyIndexed != 1 {
		t.Fatalf("summary = %+v, want silent skip", summary)
	}
}
