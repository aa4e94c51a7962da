package ocr

import (
	"context"
	"strings"

	"github.com/openrecords/docindex/internal/store"
)

// EnsembleBackend runs every configured backend over the same image and
// merges at the word level (spec §4.4 "Ensemble backend"): boxes with
// IOU >= 0.5 whose text matches within edit distance 1 (case-insensitive)
// collapse into one box carrying the higher confidence and the longer
// text; unmatched boxes pass through. A global minimum confidence prunes
// the survivors.
type EnsembleBackend struct {
	backends   []Backend
	minConfidence float64
}

// NewEnsembleBackend builds an EnsembleBackend over backends, pruning
// survivors below minConfidence (spec §6.6 ocr.drop_confidence, default
// 0.3).
func NewEnsembleBackend(backends []Backend, minConfidence float64) *EnsembleBackend {
	return &EnsembleBackend{backends: backends, minConfidence: minConfidence}
}

func (e *EnsembleBackend) ID() string { return "ensemble" }

func (e *EnsembleBackend) Extract(ctx context.Context, image []byte, languages []string) (*PageResult, error) {
	var all []store.WordBox
	for _, b := range e.backends {
		result, err := b.Extract(ctx, image, languages)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Words...)
	}

	merged := mergeEnsemble(all)

	survivors := make([]store.WordBox, 0, len(merged))
	for _, w := range merged {
		if w.Confidence >= e.minConfidence {
			survivors = append(survivors, w)
		}
	}
	return &PageResult{Words: survivors, Engine: e.ID()}, nil
}

func mergeEnsemble(boxes []store.WordBox) []store.WordBox {
	merged := make([]store.WordBox, 0, len(boxes))
	used := make([]bool, len(boxes))

	for i, a := range boxes {
		if used[i] {
			continue
		}
		best := a
		used[i] = true
		for j := i + 1; j < len(boxes); j++ {
			if used[j] {
				continue
			}
			b := boxes[j]
			if boxIOU(a, b) < 0.5 {
				continue
			}
			if !textMatches(best.Text, b.Text) {
				continue
			}
			used[j] = true
			if len(b.Text) > len(best.Text) {
				best.Text = b.Text
			}
			if b.Confidence > best.Confidence {
				best.Confidence = b.Confidence
				best.X, best.Y, best.Width, best.Height = b.X, b.Y, b.Width, b.Height
			}
		}
		merged = append(merged, best)
	}
	return merged
}

// textMatches reports whether two word strings match case-insensitively
// within an edit distance of 1, per spec §4.4's ensemble merge rule.
func textMatches(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return true
	}
	return editDistance(la, lb) <= 1
}

// editDistance is a minimal Levenshtein distance; no third-party
// edit-distance library appears anywhere in the retrieval pack, and the
// only use here is a single distance<=1 threshold check, not general
// fuzzy ranking (that already exists as trigram Jaccard in
// internal/search).
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(minInt(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
