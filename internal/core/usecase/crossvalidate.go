package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// clientSimilarityFloor is the character-overlap ratio below which the
// two client-name candidates are flagged as diverging. Divergence is a
// warning, never a rejection.
const clientSimilarityFloor = 0.3

// CrossValidator reconciles the content and filename extraction paths
// into one final record, using the order number as the consistency key.
type CrossValidator struct {
	content  *ContentExtractor
	filename *FilenameExtractor
	logger   *slog.Logger
}

func NewCrossValidator(content *ContentExtractor, filename *FilenameExtractor, logger *slog.Logger) *CrossValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossValidator{content: content, filename: filename, logger: logger}
}

// Validate runs both extraction paths over one document and reconciles
// their outcomes.
func (v *CrossValidator) Validate(text, filename string) (*domain.ExtractedRecord, error) {
	contentOut, err := v.content.Extract(text)
	if err != nil {
		return nil, err
	}
	filenameOut := v.filename.Extract(filename)
	return v.reconcile(contentOut, filenameOut, filename)
}

func (v *CrossValidator) reconcile(content, filename domain.ValidationOutcome, name string) (*domain.ExtractedRecord, error) {
	switch {
	case !content.Valid && !filename.Valid:
		diagnostic := combineDiagnostics(content, filename)
		return nil, domain.WrapError(domain.ErrAllValidationFailed, "cross-validate",
			fmt.Errorf("file %q: %s", name, diagnostic))

	case content.Valid && !filename.Valid:
		v.logger.Warn("filename path failed, using content record",
			"file", name, "filename_score", filename.Score)
		v.checkIncompleteAgreement(content.Record, filename.Record, name)
		return finalize(content.Record), nil

	case !content.Valid && filename.Valid:
		v.logger.Warn("content path failed, using filename record",
			"file", name, "content_score", content.Score)
		v.checkIncompleteAgreement(filename.Record, content.Record, name)
		return finalize(filename.Record), nil
	}

	c, f := content.Record, filename.Record
	if NormalizeOrderNumber(c.OrderNumber) != NormalizeOrderNumber(f.OrderNumber) {
		return nil, domain.WrapError(domain.ErrOrderConflict, "cross-validate",
			fmt.Errorf("content says %q, filename says %q", c.OrderNumber, f.OrderNumber))
	}

	merged := domain.ExtractedRecord{
		OrderNumber: c.OrderNumber,
		Client:      preferText(c.Client, f.Client),
		Event:       preferText(c.Event, f.Event),
		IsRevision:  c.IsRevision || f.IsRevision,
	}
	// Date precedence: content wins when it actually found a date;
	// otherwise fall back to the filename date, and failing that keep
	// the content path's "partial" marker.
	switch {
	case c.DateOrigin == domain.DateFromContent:
		merged.EventDate = c.EventDate
		merged.DateOrigin = c.DateOrigin
	case f.DateOrigin == domain.DateFromFilename:
		merged.EventDate = f.EventDate
		merged.DateOrigin = f.DateOrigin
	default:
		merged.EventDate = nil
		merged.DateOrigin = c.DateOrigin
	}

	if c.Client != domain.MissingText && f.Client != domain.MissingText {
		if overlapRatio(c.Client, f.Client) < clientSimilarityFloor {
			v.logger.Warn("client names diverge between sources",
				"file", name, "content_client", c.Client, "filename_client", f.Client)
		}
	}

	return finalize(&merged), nil
}

// checkIncompleteAgreement compares the winning record against the
// losing path's incomplete record, if that path at least recovered an
// order number.
func (v *CrossValidator) checkIncompleteAgreement(winner, loser *domain.ExtractedRecord, name string) {
	if winner == nil || loser == nil {
		return
	}
	if NormalizeOrderNumber(winner.OrderNumber) != NormalizeOrderNumber(loser.OrderNumber) {
		v.logger.Warn("incomplete path disagrees on order number",
			"file", name, "winner", winner.OrderNumber, "loser", loser.OrderNumber)
	}
}

// finalize normalizes the business key on the outgoing record.
func finalize(r *domain.ExtractedRecord) *domain.ExtractedRecord {
	out := *r
	out.OrderNumber = NormalizeOrderNumber(out.OrderNumber)
	return &out
}

func preferText(content, filename string) string {
	if content != domain.MissingText && content != "" {
		return content
	}
	return filename
}

func combineDiagnostics(content, filename domain.ValidationOutcome) string {
	var parts []string
	for _, e := range content.Errors {
		parts = append(parts, "content: "+e)
	}
	for _, w := range content.Warnings {
		parts = append(parts, "content: "+w)
	}
	for _, e := range filename.Errors {
		parts = append(parts, "filename: "+e)
	}
	for _, w := range filename.Warnings {
		parts = append(parts, "filename: "+w)
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	return strings.Join(parts, "; ")
}

// overlapRatio is the share of the shorter name's characters that also
// occur in the longer one, case-folded.
func overlapRatio(a, b string) float64 {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	pool := make(map[rune]int, len(rb))
	for _, r := range rb {
		pool[r]++
	}
	matched := 0
	for _, r := range ra {
		if pool[r] > 0 {
			pool[r]--
			matched++
		}
	}
	return float64(matched) / float64(len(ra))
}
