package usecase

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// Filenames follow "NNN - [marker -] Client - Event... - DD.MM.YYYY".
const segmentDelimiter = " - "

var (
	digitRunRe = regexp.MustCompile(`\d+`)

	// Revision markers as they appear in filenames, uppercase.
	filenameRevisionMarkers = []string{"O.S ATUALIZADA", "OS ATUALIZADA", "ATUALIZADA"}
	// Bare order markers occupying their own segment.
	bareOrderMarkers = map[string]struct{}{"O.S": {}, "OS": {}, "OS.": {}}
)

// FilenameExtractor recovers order fields from the document filename.
type FilenameExtractor struct {
	scoring Scoring
	now     func() time.Time
}

func NewFilenameExtractor(scoring Scoring) *FilenameExtractor {
	return &FilenameExtractor{scoring: scoring, now: time.Now}
}

// Extract scores the filename path. Filenames never reject a document
// outright; everything is reported through the outcome.
func (e *FilenameExtractor) Extract(filename string) domain.ValidationOutcome {
	var out domain.ValidationOutcome

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	segments := strings.Split(base, segmentDelimiter)
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}
	if len(segments) < 2 {
		out.Errors = append(out.Errors, "filename has no segment structure")
		return out
	}

	number := digitRunRe.FindString(segments[0])
	if number == "" {
		out.Errors = append(out.Errors, "no order number in filename")
		return out
	}
	if len(number) > 10 {
		out.Errors = append(out.Errors, fmt.Sprintf("digit run %q exceeds 10 digits", number))
		return out
	}

	record := domain.ExtractedRecord{
		OrderNumber: number,
		Client:      domain.MissingText,
		Event:       domain.MissingText,
		DateOrigin:  domain.DateMissing,
	}
	score := e.scoring.FilenameOrderPoints

	layout := e.resolveLayout(base, segments)
	record.IsRevision = layout.revision
	if layout.revision {
		score += e.scoring.FilenameRevisionBonus
	}

	secondary := 0
	if layout.client != "" {
		if client, ok := e.validText(layout.client, e.scoring.MaxClientLength, "client", &out); ok {
			record.Client = client
			score += e.scoring.FilenameClientPoints
			secondary++
		}
	}
	if layout.event != "" {
		if event, ok := e.validText(layout.event, e.scoring.MaxEventLength, "event", &out); ok {
			record.Event = event
			score += e.scoring.FilenameEventPoints
			secondary++
		}
	}

	now := e.now()
	if layout.dateSegment != "" {
		if date, ok := findFilenameDate(layout.dateSegment, now); ok {
			if e.scoring.dateInRange(date, now) {
				record.EventDate = &date
				record.DateOrigin = domain.DateFromFilename
				score += e.scoring.FilenameDatePoints
				secondary++
			} else {
				out.Warnings = append(out.Warnings, fmt.Sprintf("filename date %s out of range", date.Format("2006-01-02")))
			}
		} else {
			out.Warnings = append(out.Warnings, fmt.Sprintf("date segment %q unparseable", layout.dateSegment))
		}
	} else {
		// No dedicated date segment in this layout; a date-looking token
		// elsewhere still counts, at reduced confidence.
		if date, ok := findFilenameDate(base, now); ok && e.scoring.dateInRange(date, now) {
			record.EventDate = &date
			record.DateOrigin = domain.DateFromFilename
			score += e.scoring.FilenameAltDatePoints
			secondary++
		}
	}

	out.Score = score
	if score >= e.scoring.FilenameThreshold {
		out.Valid = true
		out.Record = &record
		return out
	}

	if secondary == 0 {
		out.Warnings = append(out.Warnings, "filename incomplete: order number only")
		out.Record = &domain.ExtractedRecord{
			OrderNumber: record.OrderNumber,
			Client:      domain.MissingText,
			Event:       domain.MissingText,
			DateOrigin:  domain.DateMissing,
			IsRevision:  record.IsRevision,
		}
		return out
	}
	out.Errors = append(out.Errors, fmt.Sprintf("filename score %d below threshold %d", score, e.scoring.FilenameThreshold))
	return out
}

type filenameLayout struct {
	revision    bool
	client      string
	event       string
	dateSegment string
}

// resolveLayout maps segments to fields positionally, depending on
// whether a revision or bare order marker is present.
func (e *FilenameExtractor) resolveLayout(base string, segments []string) filenameLayout {
	var l filenameLayout

	upper := strings.ToUpper(base)
	for _, marker := range filenameRevisionMarkers {
		if strings.Contains(upper, marker) {
			l.revision = true
			break
		}
	}

	marked := l.revision
	if !marked && len(segments) > 1 {
		_, marked = bareOrderMarkers[strings.ToUpper(segments[1])]
	}

	if marked {
		switch {
		case len(segments) >= 5:
			l.client = segments[2]
			l.event = strings.Join(segments[3:len(segments)-1], segmentDelimiter)
			l.dateSegment = segments[len(segments)-1]
		case len(segments) == 4:
			l.client = segments[2]
			l.event = segments[3]
		case len(segments) == 3:
			l.client = segments[2]
		}
		return l
	}

	switch {
	case len(segments) >= 4:
		l.client = segments[1]
		l.event = strings.Join(segments[2:len(segments)-1], segmentDelimiter)
		l.dateSegment = segments[len(segments)-1]
	case len(segments) == 3:
		l.client = segments[1]
		l.event = segments[2]
	default:
		l.client = segments[1]
	}
	return l
}

func (e *FilenameExtractor) validText(candidate string, max int, field string, out *domain.ValidationOutcome) (string, bool) {
	if !hasLetterPair(candidate) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s candidate %q has no letters", field, candidate))
		return "", false
	}
	if capped, cut := truncateRunes(candidate, max); cut {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s name truncated", field))
		return capped, true
	}
	return candidate, true
}
