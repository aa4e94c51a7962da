// Package entity detects email, phone, date, and name entities within
// normalized OCR text (spec §4.6), attaching bounding boxes recovered from
// the page's word boxes on a best-effort basis.
package entity

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/openrecords/docindex/internal/store"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	phoneParens   = regexp.MustCompile(`\(\d{3}\)\s?\d{3}-\d{4}`)
	phoneDashed   = regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`)
	phoneDotted   = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{4}\b`)
	phonePlusOne  = regexp.MustCompile(`\+1\s?\d{3}\s?\d{3}\s?\d{4}`)
	phoneTenDigit = regexp.MustCompile(`\b\d{10}\b`)

	dateISO       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateSlashLong = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dateSlashShort = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2})\b`)
	dateMonthFirst = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`)
	dateDayFirst   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)

	nameTokenRe = regexp.MustCompile(`^[A-Z][a-zA-Z'.\-]*$`)
)

var monthIndex = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

// match is an intermediate detection before bbox attachment and dedup.
type match struct {
	kind       store.EntityKind
	value      string
	normalized *string
	start, end int
}

// Extract detects entities in normalizedText and attaches bounding boxes
// recovered from wordBoxes where a contiguous run of word boxes reproduces
// the matched text. Duplicates (same kind + normalized_value) within the
// page collapse to the first occurrence, per spec §4.6.
func Extract(normalizedText string, wordBoxes []store.WordBox) []*store.Entity {
	var matches []match
	matches = append(matches, extractEmails(normalizedText)...)
	matches = append(matches, extractPhones(normalizedText)...)
	matches = append(matches, extractDates(normalizedText)...)
	matches = append(matches, extractNames(normalizedText)...)

	seen := make(map[string]bool)
	var entities []*store.Entity
	for _, m := range matches {
		key := dedupKey(m)
		if seen[key] {
			continue
		}
		seen[key] = true

		entities = append(entities, &store.Entity{
			EntityType:      m.kind,
			EntityValue:     m.value,
			NormalizedValue: m.normalized,
			BBox:            findBBox(m.value, wordBoxes),
			Confidence:      1.0,
		})
	}
	return entities
}

func dedupKey(m match) string {
	norm := ""
	if m.normalized != nil {
		norm = *m.normalized
	}
	return fmt.Sprintf("%s|%s", m.kind, norm)
}

func extractEmails(text string) []match {
	var out []match
	for _, loc := range emailRe.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		normalized := strings.ToLower(value)
		out = append(out, match{kind: store.EntityEmail, value: value, normalized: &normalized, start: loc[0], end: loc[1]})
	}
	return out
}

func extractPhones(text string) []match {
	var locs [][]int
	for _, re := range []*regexp.Regexp{phoneParens, phonePlusOne, phoneDashed, phoneDotted, phoneTenDigit} {
		locs = append(locs, re.FindAllStringIndex(text, -1)...)
	}
	locs = nonOverlapping(locs)

	var out []match
	for _, loc := range locs {
		value := text[loc[0]:loc[1]]
		digits := digitsOnly(value)
		if len(digits) < 10 {
			continue
		}
		last10 := digits[len(digits)-10:]
		out = append(out, match{kind: store.EntityPhone, value: value, normalized: &last10, start: loc[0], end: loc[1]})
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractDates(text string) []match {
	var out []match

	for _, loc := range dateISO.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		year, _ := strconv.Atoi(text[loc[2]:loc[3]])
		month, _ := strconv.Atoi(text[loc[4]:loc[5]])
		day, _ := strconv.Atoi(text[loc[6]:loc[7]])
		out = append(out, dateMatch(value, year, month, day, loc[0], loc[1]))
	}
	for _, loc := range dateSlashLong.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		month, _ := strconv.Atoi(text[loc[2]:loc[3]])
		day, _ := strconv.Atoi(text[loc[4]:loc[5]])
		year, _ := strconv.Atoi(text[loc[6]:loc[7]])
		out = append(out, dateMatch(value, year, month, day, loc[0], loc[1]))
	}
	for _, loc := range dateSlashShort.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		month, _ := strconv.Atoi(text[loc[2]:loc[3]])
		day, _ := strconv.Atoi(text[loc[4]:loc[5]])
		yy, _ := strconv.Atoi(text[loc[6]:loc[7]])
		year := 2000 + yy
		if yy >= 70 {
			year = 1900 + yy
		}
		out = append(out, dateMatch(value, year, month, day, loc[0], loc[1]))
	}
	for _, loc := range dateMonthFirst.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		month := monthIndex[strings.ToLower(text[loc[2]:loc[3]])]
		day, _ := strconv.Atoi(text[loc[4]:loc[5]])
		year, _ := strconv.Atoi(text[loc[6]:loc[7]])
		out = append(out, dateMatch(value, year, month, day, loc[0], loc[1]))
	}
	for _, loc := range dateDayFirst.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		day, _ := strconv.Atoi(text[loc[2]:loc[3]])
		month := monthIndex[strings.ToLower(text[loc[4]:loc[5]])]
		year, _ := strconv.Atoi(text[loc[6]:loc[7]])
		out = append(out, dateMatch(value, year, month, day, loc[0], loc[1]))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func dateMatch(value string, year, month, day, start, end int) match {
	currentYear := time.Now().Year()
	var normalized *string
	if year >= 1900 && year <= currentYear+1 && month >= 1 && month <= 12 && day >= 1 && day <= 31 {
		iso := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		normalized = &iso
	}
	return match{kind: store.EntityDate, value: value, normalized: normalized, start: start, end: end}
}

// extractNames scans whitespace-delimited tokens for contiguous runs of
// 2-4 capitalized, non-stop-listed words.
func extractNames(text string) []match {
	type tok struct {
		text       string
		start, end int
	}
	var tokens []tok
	i := 0
	for i < len(text) {
		for i < len(text) && text[i] == ' ' {
			i++
		}
		start := i
		for i < len(text) && text[i] != ' ' {
			i++
		}
		if i > start {
			tokens = append(tokens, tok{text: text[start:i], start: start, end: i})
		}
	}

	var out []match
	idx := 0
	for idx < len(tokens) {
		if !isNameToken(tokens[idx].text) {
			idx++
			continue
		}
		runStart := idx
		for idx < len(tokens) && idx-runStart < 4 && isNameToken(tokens[idx].text) {
			idx++
		}
		runLen := idx - runStart
		if runLen >= 2 {
			raw := text[tokens[runStart].start:tokens[idx-1].end]
			lead := len(raw) - len(strings.TrimLeft(raw, ".,;:\"'"))
			value := strings.Trim(raw, ".,;:\"'")
			start := tokens[runStart].start + lead
			out = append(out, match{kind: store.EntityName, value: value, normalized: &value, start: start, end: start + len(value)})
		}
	}
	return out
}

func isNameToken(tok string) bool {
	trimmed := strings.Trim(tok, ".,;:\"'")
	if len(trimmed) < 2 || isStopWord(trimmed) {
		return false
	}
	if !nameTokenRe.MatchString(trimmed) {
		return false
	}
	// An ALL-CAPS run reads as a heading or acronym (e.g. "UNITED STATES
	// DISTRICT COURT"), not a person name; require at least one lowercase
	// letter after the initial capital.
	if strings.ToUpper(trimmed) == trimmed {
		return false
	}
	return true
}

// nonOverlapping keeps the earliest-starting, then-longest match among
// overlapping location ranges, preserving precedence order for ties.
func nonOverlapping(locs [][]int) [][]int {
	if len(locs) == 0 {
		return nil
	}
	sorted := append([][]int(nil), locs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && (sorted[j][0] < sorted[j-1][0] || (sorted[j][0] == sorted[j-1][0] && sorted[j][1] > sorted[j-1][1])); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var out [][]int
	lastEnd := -1
	for _, loc := range sorted {
		if loc[0] >= lastEnd {
			out = append(out, loc)
			lastEnd = loc[1]
		}
	}
	return out
}

// findBBox attempts to locate a contiguous run of word boxes whose joined
// text case-insensitively matches value, returning the minimum enclosing
// bounding box. Returns nil when no such run is found.
func findBBox(value string, wordBoxes []store.WordBox) *store.BBox {
	target := normalizeForMatch(value)
	if target == "" || len(wordBoxes) == 0 {
		return nil
	}

	for start := range wordBoxes {
		var joined strings.Builder
		minX, minY := int(^uint(0)>>1), int(^uint(0)>>1)
		maxX, maxY := 0, 0
		for end := start; end < len(wordBoxes) && end < start+8; end++ {
			if joined.Len() > 0 {
				joined.WriteByte(' ')
			}
			joined.WriteString(wordBoxes[end].Text)

			b := wordBoxes[end]
			if b.X < minX {
				minX = b.X
			}
			if b.Y < minY {
				minY = b.Y
			}
			if b.X+b.Width > maxX {
				maxX = b.X + b.Width
			}
			if b.Y+b.Height > maxY {
				maxY = b.Y + b.Height
			}

			if normalizeForMatch(joined.String()) == target {
				return &store.BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
			}
		}
	}
	return nil
}

func normalizeForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
