package lexicon

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	clockTimePattern     = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	formalAddressPattern = regexp.MustCompile(`\b(Sie|Ihnen)\b`)
)

// HasConcretenessMarker reports whether text carries a digit, a currency
// symbol or an HH:MM clock time.
func HasConcretenessMarker(text string) bool {
	if clockTimePattern.MatchString(text) {
		return true
	}
	for _, r := range text {
		if unicode.IsDigit(r) || unicode.Is(unicode.Sc, r) {
			return true
		}
	}
	return false
}

// HasFormalAddress reports whether text uses the formal "Sie" or "Ihnen".
func HasFormalAddress(text string) bool {
	return formalAddressPattern.MatchString(text)
}

// Words splits text into words of letters, digits and hyphens, keeping case.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-')
	})
}
