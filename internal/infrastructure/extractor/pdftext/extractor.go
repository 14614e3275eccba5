package pdftext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// minDocumentBytes is below any plausible PDF; smaller files are
// treated as corrupt without attempting to parse them.
const minDocumentBytes = 100

// Extractor renders PDF files into plain text, one call per document.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract concatenates the plain text of every page, separated by
// newlines. Pages that fail to render individually are skipped; a
// document with no readable pages is corrupt.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrCorruptDocument, "open document", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", domain.WrapError(domain.ErrCorruptDocument, "stat document", err)
	}
	if info.Size() < minDocumentBytes {
		return "", domain.WrapError(domain.ErrCorruptDocument, "read document",
			fmt.Errorf("file is %d bytes", info.Size()))
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", domain.WrapError(domain.ErrCorruptDocument, "parse document", err)
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return "", domain.WrapError(domain.ErrCorruptDocument, "parse document",
			fmt.Errorf("document has zero pages"))
	}

	var b strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrCorruptDocument, "extract text",
			fmt.Errorf("no readable text in %d pages", pageCount))
	}
	return text, nil
}
