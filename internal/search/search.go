// Package search implements the five query modes over indexed pages:
// keyword, phrase, fuzzy, entity, and optional semantic search (spec §4.8).
package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/openrecords/docindex/internal/config"
	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/indexer"
	"github.com/openrecords/docindex/internal/store"
)

// Mode selects one of the five query strategies.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModePhrase   Mode = "phrase"
	ModeFuzzy    Mode = "fuzzy"
	ModeEntity   Mode = "entity"
	ModeSemantic Mode = "semantic"
)

const maxLimit = 1000

// Hit is one search result, per spec §4.8's result shape.
type Hit struct {
	OCRID          string
	DocumentID     string
	PageNumber     int
	Snippet        string
	FullText       string
	PageConfidence float64
	ImagePath      string
	PageBBox       store.BBox
	WordBoxes      []store.WordBox
	Score          float64
	CreatedAt      time.Time
}

// Options configures a single search call.
type Options struct {
	Limit          int
	FuzzyThreshold float64
	EntityType     store.EntityKind
}

// rowStore is the subset of *store.Store the engine depends on, so tests
// can substitute an in-memory fake.
type rowStore interface {
	ListSearchRows(ctx context.Context) ([]*store.SearchRow, error)
	FindEntities(ctx context.Context, entityType store.EntityKind, value string) ([]*store.EntityHit, error)
}

// Embedder produces a query embedding for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex resolves nearest neighbors by cosine similarity.
type VectorIndex interface {
	SearchVectors(ctx context.Context, queryVector []float32, limit int) ([]VectorMatch, error)
}

// VectorMatch is one semantic search result keyed by ocr_id.
type VectorMatch struct {
	OCRID string
	Score float64
}

// Engine answers search queries across all five modes.
type Engine struct {
	store       rowStore
	embedder    Embedder
	vectorIndex VectorIndex
	cfg         *config.Config
}

// NewEngine builds a search engine. embedder and vectorIndex may be nil,
// in which case semantic search returns capability_disabled.
func NewEngine(s rowStore, embedder Embedder, vectorIndex VectorIndex, cfg *config.Config) *Engine {
	return &Engine{store: s, embedder: embedder, vectorIndex: vectorIndex, cfg: cfg}
}

// Search dispatches to the mode-specific implementation. query length 0
// returns invalid_argument; limit 0 returns an empty result without error.
func (e *Engine) Search(ctx context.Context, mode Mode, query string, opts Options) ([]*Hit, error) {
	if len(query) == 0 {
		return nil, errors.InvalidArgument("query must not be empty")
	}

	limit := opts.Limit
	if limit <= 0 {
		if limit < 0 {
			limit = e.defaultLimit()
		} else {
			return nil, nil
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	switch mode {
	case ModeKeyword:
		return e.keywordSearch(ctx, query, limit)
	case ModePhrase:
		return e.phraseSearch(ctx, query, limit)
	case ModeFuzzy:
		threshold := opts.FuzzyThreshold
		if threshold <= 0 {
			threshold = e.defaultFuzzyThreshold()
		}
		return e.fuzzySearch(ctx, query, threshold, limit)
	case ModeEntity:
		return e.entitySearch(ctx, opts.EntityType, query, limit)
	case ModeSemantic:
		return e.semanticSearch(ctx, query, limit)
	default:
		return nil, errors.InvalidArgument("unknown search mode: " + string(mode))
	}
}

func (e *Engine) defaultLimit() int {
	if e.cfg != nil && e.cfg.SearchDefaultLimit > 0 {
		return e.cfg.SearchDefaultLimit
	}
	return 50
}

func (e *Engine) defaultFuzzyThreshold() float64 {
	if e.cfg != nil && e.cfg.SearchFuzzyThreshold > 0 {
		return e.cfg.SearchFuzzyThreshold
	}
	return 0.6
}

func queryTokens(query string) []string {
	idx := indexer.BuildSearchIndex("", query)
	return idx.Tokens
}

func (e *Engine) keywordSearch(ctx context.Context, query string, limit int) ([]*Hit, error) {
	qTokens := queryTokens(query)
	if len(qTokens) == 0 {
		return nil, nil
	}
	rows, err := e.store.ListSearchRows(ctx)
	if err != nil {
		return nil, err
	}

	var hits []*Hit
	for _, row := range rows {
		score, ok := keywordScore(qTokens, row.Tokens)
		if !ok {
			continue
		}
		hits = append(hits, rowToHit(row, score, qTokens))
	}
	sortHits(hits)
	return truncate(hits, limit), nil
}

// keywordScore requires every query token to appear in the page's tokens
// (AND semantics), scoring Σ count_in_page / (1 + distance_to_nearest_other_query_token).
func keywordScore(qTokens, pageTokens []string) (float64, bool) {
	positions := make(map[string][]int)
	for i, t := range pageTokens {
		positions[t] = append(positions[t], i)
	}

	for _, qt := range qTokens {
		if len(positions[qt]) == 0 {
			return 0, false
		}
	}

	var score float64
	for _, qt := range qTokens {
		occurrences := positions[qt]
		count := float64(len(occurrences))
		minDist := math.MaxInt32
		for _, pos := range occurrences {
			for _, otherQt := range qTokens {
				if otherQt == qt {
					continue
				}
				for _, otherPos := range positions[otherQt] {
					d := pos - otherPos
					if d < 0 {
						d = -d
					}
					if d < minDist {
						minDist = d
					}
				}
			}
		}
		if minDist == math.MaxInt32 {
			minDist = 0
		}
		score += count / (1 + float64(minDist))
	}
	return score, true
}

func (e *Engine) phraseSearch(ctx context.Context, query string, limit int) ([]*Hit, error) {
	qTokens := queryTokens(query)
	if len(qTokens) == 0 {
		return nil, nil
	}
	rows, err := e.store.ListSearchRows(ctx)
	if err != nil {
		return nil, err
	}

	var hits []*Hit
	for _, row := range rows {
		occurrences := countPhraseOccurrences(qTokens, row.Tokens)
		if occurrences == 0 {
			continue
		}
		hits = append(hits, rowToHit(row, float64(occurrences), qTokens))
	}
	sortHits(hits)
	return truncate(hits, limit), nil
}

func countPhraseOccurrences(qTokens, pageTokens []string) int {
	if len(qTokens) > len(pageTokens) {
		return 0
	}
	count := 0
	for i := 0; i+len(qTokens) <= len(pageTokens); i++ {
		match := true
		for j, qt := range qTokens {
			if pageTokens[i+j] != qt {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

func (e *Engine) fuzzySearch(ctx context.Context, query string, threshold float64, limit int) ([]*Hit, error) {
	qTokens := queryTokens(query)
	if len(qTokens) == 0 {
		return nil, nil
	}
	rows, err := e.store.ListSearchRows(ctx)
	if err != nil {
		return nil, err
	}

	var hits []*Hit
	for _, row := range rows {
		matched := 0
		var total float64
		for _, qt := range qTokens {
			best := 0.0
			for _, pt := range row.Tokens {
				sim := trigramJaccard(qt, pt)
				if sim > best {
					best = sim
				}
			}
			if best >= threshold {
				matched++
			}
			total += best
		}
		if matched*2 < len(qTokens) {
			continue
		}
		hits = append(hits, rowToHit(row, total/float64(len(qTokens)), qTokens))
	}
	sortHits(hits)
	return truncate(hits, limit), nil
}

func trigrams(s string) map[string]bool {
	s = "  " + s + "  "
	set := make(map[string]bool)
	runes := []rune(s)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}

func trigramJaccard(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for t := range ta {
		if tb[t] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func (e *Engine) entitySearch(ctx context.Context, entityType store.EntityKind, value string, limit int) ([]*Hit, error) {
	entityHits, err := e.store.FindEntities(ctx, entityType, value)
	if err != nil {
		return nil, err
	}
	var hits []*Hit
	for _, h := range entityHits {
		hits = append(hits, &Hit{
			OCRID:      h.OCRID,
			DocumentID: h.DocumentID,
			PageNumber: h.PageNumber,
			Snippet:    h.EntityValue,
			FullText:   h.EntityValue,
			PageBBox:   store.BBox{},
			WordBoxes:  nil,
			Score:      1,
		})
		if h.BBox != nil {
			hits[len(hits)-1].PageBBox = *h.BBox
		}
	}
	return truncate(hits, limit), nil
}

func (e *Engine) semanticSearch(ctx context.Context, query string, limit int) ([]*Hit, error) {
	if e.embedder == nil || e.vectorIndex == nil {
		return nil, errors.CapabilityDisabled("semantic_search")
	}
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := e.vectorIndex.SearchVectors(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.ListSearchRows(ctx)
	if err != nil {
		return nil, err
	}
	byOCRID := make(map[string]*store.SearchRow, len(rows))
	for _, r := range rows {
		byOCRID[r.OCRID] = r
	}

	var hits []*Hit
	for _, m := range matches {
		row, ok := byOCRID[m.OCRID]
		if !ok {
			continue
		}
		hits = append(hits, rowToHit(row, m.Score, queryTokens(query)))
	}
	return truncate(hits, limit), nil
}

func rowToHit(row *store.SearchRow, score float64, qTokens []string) *Hit {
	return &Hit{
		OCRID:          row.OCRID,
		DocumentID:     row.DocumentID,
		PageNumber:     row.PageNumber,
		Snippet:        snippet(row.NormalizedText, qTokens),
		FullText:       row.NormalizedText,
		PageConfidence: row.PageConfidence,
		ImagePath:      row.ImagePath,
		PageBBox:       row.PageBBox,
		WordBoxes:      row.WordBoxes,
		Score:          score,
		CreatedAt:      row.CreatedAt,
	}
}

// snippet returns normalizedText entirely when under 160 characters;
// otherwise locates the first match position of any query token (searched
// case-insensitively, longest token first so a longer token anchors before
// a shorter one that may be its substring) and returns up to 80 characters
// before and after it, trimmed inward to whole words; the match itself is
// always kept. Falls back to the start of the text when no query token
// appears verbatim (e.g. a fuzzy or semantic hit).
func snippet(normalizedText string, qTokens []string) string {
	if len(normalizedText) < 160 {
		return normalizedText
	}

	lower := strings.ToLower(normalizedText)
	pos := -1
	matchLen := 0
	sortedTokens := append([]string(nil), qTokens...)
	sort.Slice(sortedTokens, func(i, j int) bool { return len(sortedTokens[i]) > len(sortedTokens[j]) })
	for _, t := range sortedTokens {
		if t == "" {
			continue
		}
		if i := strings.Index(lower, strings.ToLower(t)); i >= 0 {
			pos = i
			matchLen = len(t)
			break
		}
	}
	if pos < 0 {
		pos, matchLen = 0, 0
	}

	start := pos - 80
	if start < 0 {
		start = 0
	}
	end := pos + matchLen + 80
	if end > len(normalizedText) {
		end = len(normalizedText)
	}
	start = trimToWordBoundaryStart(normalizedText, start)
	end = trimToWordBoundaryEnd(normalizedText, end)
	if start > pos {
		start = pos
	}
	if end < pos+matchLen {
		end = pos + matchLen
	}
	return normalizedText[start:end]
}

// trimToWordBoundaryStart moves i forward past a partial word and any
// spaces, so the snippet starts on a whole word.
func trimToWordBoundaryStart(s string, i int) int {
	if i > 0 && s[i-1] != ' ' {
		for i < len(s) && s[i] != ' ' {
			i++
		}
	}
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// trimToWordBoundaryEnd moves i back before a partial word and any
// spaces, so the snippet ends on a whole word.
func trimToWordBoundaryEnd(s string, i int) int {
	if i < len(s) && s[i] != ' ' {
		for i > 0 && s[i-1] != ' ' {
			i--
		}
	}
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return i
}

func sortHits(hits []*Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].PageConfidence != hits[j].PageConfidence {
			return hits[i].PageConfidence > hits[j].PageConfidence
		}
		return hits[i].CreatedAt.Before(hits[j].CreatedAt)
	})
}

func truncate(hits []*Hit, limit int) []*Hit {
	if len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
