package usecase

import (
	"regexp"
	"time"
)

// Event dates appear as DD/MM/YYYY in document content and DD.MM.YYYY
// (or DD.MM with an implied current year) in filenames. Ranges join two
// dates with the connector "a", in any case or accent variant, and only
// the start date is kept.
var (
	slashDateRe  = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	slashRangeRe = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\s*[aàAÀ]\s*(\d{2}/\d{2}/\d{4})\b`)
	dotDateRe    = regexp.MustCompile(`\b(\d{2})\.(\d{2})(?:\.(\d{4}))?\b`)
	dotRangeRe   = regexp.MustCompile(`\b(\d{2}\.\d{2}(?:\.\d{4})?)\s*[aàAÀ]\s*(\d{2}\.\d{2}(?:\.\d{4})?)\b`)
)

func parseSlashDate(token string) (time.Time, error) {
	return time.Parse("02/01/2006", token)
}

func parseDotDate(token string, now time.Time) (time.Time, error) {
	m := dotDateRe.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, errNoDate
	}
	if m[3] == "" {
		// DD.MM shorthand: assume the current year.
		padded := m[1] + "." + m[2] + "." + now.Format("2006")
		return time.Parse("02.01.2006", padded)
	}
	return time.Parse("02.01.2006", m[0])
}

var errNoDate = timeParseError("no date token")

type timeParseError string

func (e timeParseError) Error() string { return string(e) }

// findContentDate locates a single DD/MM/YYYY token inside span. When
// the span encodes a range, the start date is returned.
func findContentDate(span string) (time.Time, bool) {
	if m := slashRangeRe.FindStringSubmatch(span); m != nil {
		t, err := parseSlashDate(m[1])
		if err == nil {
			return t, true
		}
	}
	if m := slashDateRe.FindStringSubmatch(span); m != nil {
		t, err := parseSlashDate(m[1])
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// findFilenameDate parses a DD.MM.YYYY or DD.MM token from a filename
// segment, keeping only the start of a range.
func findFilenameDate(segment string, now time.Time) (time.Time, bool) {
	if m := dotRangeRe.FindStringSubmatch(segment); m != nil {
		t, err := parseDotDate(m[1], now)
		if err == nil {
			return t, true
		}
	}
	if dotDateRe.MatchString(segment) {
		t, err := parseDotDate(segment, now)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
