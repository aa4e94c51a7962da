// Package indexer derives the searchable_text/tokens representation of an
// OCRText used by keyword, phrase, and fuzzy search (spec §4.7).
package indexer

import (
	"regexp"
	"strings"

	"github.com/openrecords/docindex/internal/store"
)

// acronymDots matches dotted acronyms like "U.S." or "U.S.A." so they
// collapse to "US"/"USA" before punctuation is stripped to whitespace;
// otherwise "U.S." and "US" would tokenize to different token counts
// ([]string{"u","s"} vs []string{"us"}) and never match as equal under
// keyword/phrase search, contradicting the intent that they denote the
// same term.
var acronymDots = regexp.MustCompile(`\b(?:[A-Za-z]\.){2,}`)

// BuildSearchIndex lowercases normalizedText, collapses dotted acronyms,
// replaces any run of non-alphanumeric, non-whitespace characters with a
// single space, and tokenizes on whitespace, preserving order and
// duplicates.
func BuildSearchIndex(ocrID string, normalizedText string) *store.SearchIndex {
	searchable := searchableText(normalizedText)
	return &store.SearchIndex{
		OCRID:          ocrID,
		SearchableText: searchable,
		Tokens:         strings.Fields(searchable),
	}
}

func searchableText(normalizedText string) string {
	collapsed := acronymDots.ReplaceAllStringFunc(normalizedText, func(s string) string {
		return strings.ReplaceAll(s, ".", "")
	})

	var b strings.Builder
	b.Grow(len(collapsed))
	inRun := false
	for _, r := range strings.ToLower(collapsed) {
		if isAlphanumericOrSpace(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteRune(' ')
		}
		inRun = true
	}
	return b.String()
}

func isAlphanumericOrSpace(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '\t' || r == '\n':
		return true
	}
	return false
}
