package usecase

import (
	"fmt"
	"regexp"
	"time"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// Field delimiters of the fixed service order layout. The client field
// has a fallback pair because older templates label it "Contratante".
const (
	clientStartMarker    = "Cliente:"
	clientAltStartMarker = "Contratante:"
	eventStartMarker     = "Evento:"
	dateStartMarker      = "Data:"
	dateEndMarker        = "Horário"

	// Date spans without a trailing time marker are read to at most
	// this many runes past the label.
	openDateSpanCap = 120
)

var revisionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)atualizada`),
	regexp.MustCompile(`(?i)revis[ãa]o`),
	regexp.MustCompile(`(?i)vers[ãa]o\s*\d+`),
	regexp.MustCompile(`(?i)\brev\.?\s*\d+`),
}

// ContentExtractor recovers order fields from rendered document text.
type ContentExtractor struct {
	scoring    Scoring
	classifier Classifier
	now        func() time.Time
}

func NewContentExtractor(scoring Scoring) *ContentExtractor {
	return &ContentExtractor{scoring: scoring, now: time.Now}
}

// Extract scores the content path. A non-nil error means the document
// is excluded outright: a quotation or stray financial document, or
// readable text that simply is not an order. Unreadable or under-scored
// content is reported through the outcome so the filename path can
// still rescue the file.
func (e *ContentExtractor) Extract(text string) (domain.ValidationOutcome, error) {
	var out domain.ValidationOutcome

	normalized := normalizeWhitespace(text)
	if len([]rune(normalized)) < e.scoring.MinContentLength {
		out.Errors = append(out.Errors, "content too short for extraction")
		return out, nil
	}

	if e.classifier.IsQuotation(normalized) {
		return out, domain.WrapError(domain.ErrFinancialDocument, "classify content",
			fmt.Errorf("quotation table markers present"))
	}

	rawNumber, found := e.classifier.FindOrderAnchor(normalized)
	if !found {
		if e.classifier.HasFinancialData(normalized) {
			return out, domain.WrapError(domain.ErrFinancialDocument, "classify content",
				fmt.Errorf("financial data without order anchor"))
		}
		// Readable text without the anchor is some other document, not
		// a failed extraction.
		return out, domain.WrapError(domain.ErrNotAnOrder, "classify content",
			fmt.Errorf("order anchor pattern not found"))
	}
	if !allDigits(rawNumber) || len(rawNumber) > 10 {
		out.Errors = append(out.Errors, fmt.Sprintf("order number %q is not 1-10 digits", rawNumber))
		return out, nil
	}

	record := domain.ExtractedRecord{
		OrderNumber: rawNumber,
		Client:      domain.MissingText,
		Event:       domain.MissingText,
		DateOrigin:  domain.DatePartial,
	}
	score := e.scoring.ContentOrderPoints
	secondary := 0

	if client, ok := e.extractClient(normalized, &out); ok {
		record.Client = client
		score += e.scoring.ContentClientPoints
		secondary++
	}
	if event, ok := e.extractEvent(normalized, &out); ok {
		record.Event = event
		score += e.scoring.ContentEventPoints
		secondary++
	}
	if date, ok := e.extractDate(normalized, &out); ok {
		record.EventDate = &date
		record.DateOrigin = domain.DateFromContent
		score += e.scoring.ContentDatePoints
		secondary++
	}
	record.IsRevision = hasRevisionMarker(normalized)

	out.Score = score
	if score >= e.scoring.ContentThreshold {
		out.Valid = true
		out.Record = &record
		return out, nil
	}

	// Below the gate. When only the order number was found, hand an
	// incomplete record to the cross-validator anyway.
	if secondary == 0 {
		out.Warnings = append(out.Warnings, "content incomplete: order number only")
		out.Record = &domain.ExtractedRecord{
			OrderNumber: record.OrderNumber,
			Client:      domain.MissingText,
			Event:       domain.MissingText,
			DateOrigin:  domain.DatePartial,
			IsRevision:  record.IsRevision,
		}
		return out, nil
	}
	out.Errors = append(out.Errors, fmt.Sprintf("content score %d below threshold %d", score, e.scoring.ContentThreshold))
	return out, nil
}

func (e *ContentExtractor) extractClient(text string, out *domain.ValidationOutcome) (string, bool) {
	span, ok := textSpan(text, clientStartMarker, eventStartMarker, spanOptions{caseInsensitive: true})
	if !ok {
		span, ok = textSpan(text, clientAltStartMarker, eventStartMarker, spanOptions{caseInsensitive: true})
	}
	if !ok {
		out.Warnings = append(out.Warnings, "client field not found in content")
		return "", false
	}
	if !hasLetterPair(span) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("client candidate %q has no letters", span))
		return "", false
	}
	if capped, cut := truncateRunes(span, e.scoring.MaxClientLength); cut {
		out.Warnings = append(out.Warnings, "client name truncated")
		return capped, true
	}
	return span, true
}

func (e *ContentExtractor) extractEvent(text string, out *domain.ValidationOutcome) (string, bool) {
	span, ok := textSpan(text, eventStartMarker, dateStartMarker, spanOptions{caseInsensitive: true})
	if !ok {
		out.Warnings = append(out.Warnings, "event field not found in content")
		return "", false
	}
	if !hasLetterPair(span) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("event candidate %q has no letters", span))
		return "", false
	}
	if capped, cut := truncateRunes(span, e.scoring.MaxEventLength); cut {
		out.Warnings = append(out.Warnings, "event name truncated")
		return capped, true
	}
	return span, true
}

func (e *ContentExtractor) extractDate(text string, out *domain.ValidationOutcome) (time.Time, bool) {
	span, ok := textSpan(text, dateStartMarker, dateEndMarker, spanOptions{
		caseInsensitive: true,
		openEnd:         true,
		openEndCap:      openDateSpanCap,
	})
	if !ok {
		out.Warnings = append(out.Warnings, "date field not found in content")
		return time.Time{}, false
	}
	date, ok := findContentDate(span)
	if !ok {
		out.Warnings = append(out.Warnings, fmt.Sprintf("no DD/MM/YYYY token in date span %q", span))
		return time.Time{}, false
	}
	if !e.scoring.dateInRange(date, e.now()) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("event date %s out of range", date.Format("2006-01-02")))
		return time.Time{}, false
	}
	return date, true
}

func hasRevisionMarker(text string) bool {
	for _, re := range revisionRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
