// Package textmatch provides accent-insensitive text normalization and
// keyword matching for Slovak listing text.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder decomposes with NFKD and strips combining marks, so "á" matches
// "a" and compatibility forms like "²" collapse to "2".
var folder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Normalize lowercases text, folds diacritics to their base letters and
// collapses whitespace runs to single spaces. It is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded, _, err := transform.String(folder, text)
	if err != nil {
		// Fold failure leaves the original bytes; matching degrades to
		// accent-sensitive rather than failing the caller.
		folded = text
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// ContainsAny reports whether at least one keyword occurs in text.
// An empty keyword set or empty text never matches.
func ContainsAny(text string, keywords []string) bool {
	if text == "" || len(keywords) == 0 {
		return false
	}
	normalized := Normalize(text)
	for _, kw := range keywords {
		if k := Normalize(kw); k != "" && strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every keyword occurs in text. An empty
// keyword set passes vacuously.
func ContainsAll(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	if text == "" {
		return false
	}
	normalized := Normalize(text)
	for _, kw := range keywords {
		if !strings.Contains(normalized, Normalize(kw)) {
			return false
		}
	}
	return true
}

// ExcludesAll reports whether none of the keywords occur in text.
func ExcludesAll(text string, keywords []string) bool {
	if len(keywords) == 0 || text == "" {
		return true
	}
	normalized := Normalize(text)
	for _, kw := range keywords {
		if k := Normalize(kw); k != "" && strings.Contains(normalized, k) {
			return false
		}
	}
	return true
}
