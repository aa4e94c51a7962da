// Package normalizer turns raw OCR text into normalized_text: Unicode-NFKC,
// whitespace collapsed, soft-hyphenated line breaks joined, common ligatures
// expanded, control characters stripped (spec §4.5).
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "st",
	"ﬆ", "st",
)

// Normalize produces normalized_text from raw OCR text. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	text := ligatures.Replace(raw)
	text = joinHyphenatedLineBreaks(text)
	text = norm.NFKC.String(text)
	text = stripControlCharacters(text)
	text = collapseWhitespace(text)
	return text
}

// joinHyphenatedLineBreaks turns "flow-\nchart" into "flowchart": a hyphen
// (regular or soft) immediately followed by a newline, with no intervening
// whitespace, is removed along with the newline.
func joinHyphenatedLineBreaks(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '-' || r == '­') && i+1 < len(runes) && runes[i+1] == '\n' {
			i++ // drop the hyphen and the newline, rejoining the word
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripControlCharacters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' || r == ' ' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
