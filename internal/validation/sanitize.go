package validation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var htmlTag = regexp.MustCompile(`(?s)<[^>]*>`)

// SanitizeMessage normalizes free text for outbound messages: NFKC, HTML
// tags removed, control and format characters dropped, whitespace runs
// collapsed to a single space, then trimmed.
func SanitizeMessage(s string) string {
	s = norm.NFKC.String(s)
	s = htmlTag.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePhone keeps digits only. It is idempotent.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether s normalizes to 10..15 digits.
func ValidPhone(s string) bool {
	n := len(NormalizePhone(s))
	return n >= 10 && n <= 15
}

// CleanText trims and collapses whitespace on single-line fields.
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
