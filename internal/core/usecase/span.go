package usecase

import (
	"strings"
	"unicode"
)

// spanOptions controls the delimiter-pair span primitive shared by all
// field extractions.
type spanOptions struct {
	caseInsensitive bool
	// openEnd takes the remainder of the text (capped at openEndCap
	// runes) when the end marker is absent.
	openEnd    bool
	openEndCap int
}

// textSpan returns the text between the first occurrence of start and
// the next occurrence of end. The second return reports whether a span
// was found at all.
func textSpan(text, start, end string, opts spanOptions) (string, bool) {
	haystack := text
	needleStart, needleEnd := start, end
	if opts.caseInsensitive {
		haystack = strings.ToLower(text)
		needleStart = strings.ToLower(start)
		needleEnd = strings.ToLower(end)
	}

	i := strings.Index(haystack, needleStart)
	if i < 0 {
		return "", false
	}
	from := i + len(needleStart)

	j := strings.Index(haystack[from:], needleEnd)
	if j < 0 {
		if !opts.openEnd {
			return "", false
		}
		span := text[from:]
		if opts.openEndCap > 0 {
			r := []rune(span)
			if len(r) > opts.openEndCap {
				span = string(r[:opts.openEndCap])
			}
		}
		return strings.TrimSpace(span), true
	}
	return strings.TrimSpace(text[from : from+j]), true
}

// normalizeWhitespace collapses every whitespace run to a single space.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// hasLetterPair reports whether s contains at least two consecutive
// letters, the minimum for a field to count as real text.
func hasLetterPair(s string) bool {
	prev := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prev {
				return true
			}
			prev = true
			continue
		}
		prev = false
	}
	return false
}

// truncateRunes caps s at max runes, reporting whether it was cut.
func truncateRunes(s string, max int) (string, bool) {
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]), true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeOrderNumber strips leading zeros so "0012" and "12" index
// the same order. All-zero input collapses to "0".
func NormalizeOrderNumber(n string) string {
	trimmed := strings.TrimLeft(n, "0")
	if trimmed == "" && n != "" {
		return "0"
	}
	return trimmed
}
