// Stateless text predicates used by the content rules.
//
// All matching is simple substring containment over normalized (NFC, lower-cased) text: no word boundaries, no stemming.
package keyword

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var linkSchemes = []string{"http://", "https://"}

// Lower-cases and NFC-normalizes text for matching.
func Normalize(text string) string {
	// a Caser holds state, so a fresh one is needed per call to be safe for concurrent use
	lower := cases.Lower(language.Und)
	return lower.String(norm.NFC.String(text))
}

// Returns the first term contained in text, or empty string if none match. Both text and terms are normalized.
func ContainsAny(text string, terms []string) string {
	body := Normalize(text)
	for _, t := range terms {
		nt := Normalize(t)
		if nt == "" {
			continue
		}
		if strings.Contains(body, nt) {
			return t
		}
	}
	return ""
}

// Checks whether text contains an http or https URL scheme marker.
func HasLink(text string) bool {
	body := Normalize(text)
	for _, s := range linkSchemes {
		if strings.Contains(body, s) {
			return true
		}
	}
	return false
}

// Returns the matched scam keyword if text contains both a link and at least one keyword; otherwise empty string. A bare link or bare keyword never matches.
func ScamLink(text string, keywords []string) string {
	if !HasLink(text) {
		return ""
	}
	return ContainsAny(text, keywords)
}
