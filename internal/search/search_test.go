package search

import (
	"strings"
	"testing"
	"time"
)

func TestKeywordScoreRequiresAllTokens(t *testing.T) {
	pageTokens := []string{"the", "quick", "brown", "fox"}
	if _, ok := keywordScore([]string{"quick", "missing"}, pageTokens); ok {
		t.Error("expected keywordScore to reject a query token absent from the page")
	}
	score, ok := keywordScore([]string{"quick", "fox"}, pageTokens)
	if !ok {
		t.Fatal("expected keywordScore to match when all query tokens are present")
	}
	if score <= 0 {
		t.Errorf("expected a positive score, got %f", score)
	}
}

func TestKeywordScoreRewardsProximity(t *testing.T) {
	near := []string{"alpha", "beta", "filler", "filler", "filler", "filler"}
	far := []string{"alpha", "filler", "filler", "filler", "filler", "beta"}

	scoreNear, _ := keywordScore([]string{"alpha", "beta"}, near)
	scoreFar, _ := keywordScore([]string{"alpha", "beta"}, far)
	if scoreNear <= scoreFar {
		t.Errorf("expected closer tokens to score higher: near=%f far=%f", scoreNear, scoreFar)
	}
}

func TestCountPhraseOccurrences(t *testing.T) {
	page := []string{"see", "spot", "run", "see", "spot", "jump"}
	if got := countPhraseOccurrences([]string{"see", "spot"}, page); got != 2 {
		t.Errorf("countPhraseOccurrences() = %d, want 2", got)
	}
	if got := countPhraseOccurrences([]string{"spot", "see"}, page); got != 0 {
		t.Errorf("countPhraseOccurrences() reversed order = %d, want 0", got)
	}
	if got := countPhraseOccurrences([]string{"a", "b", "c", "d", "e", "f", "g"}, page); got != 0 {
		t.Errorf("countPhraseOccurrences() with a longer query than the page = %d, want 0", got)
	}
}

func TestTrigramJaccard(t *testing.T) {
	if got := trigramJaccard("hello", "hello"); got != 1 {
		t.Errorf("identical strings: trigramJaccard() = %f, want 1", got)
	}
	if got := trigramJaccard("hello", "xyz"); got != 0 {
		t.Errorf("disjoint strings: trigramJaccard() = %f, want 0", got)
	}
	similar := trigramJaccard("hello", "helo")
	if similar <= 0 || similar >= 1 {
		t.Errorf("near-miss strings: trigramJaccard() = %f, want in (0, 1)", similar)
	}
}

func TestSnippetReturnsFullTextWhenShort(t *testing.T) {
	text := "a short page of normalized text"
	if got := snippet(text, []string{"page"}); got != text {
		t.Errorf("snippet() of a short string should return it unchanged, got %q", got)
	}
}

func TestSnippetTrimsToWordBoundariesAroundMatch(t *testing.T) {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, "word")
	}
	words[45] = "needle"
	text := ""
	for i, w := range words {
		if i > 0 {
			text += " "
		}
		text += w
	}

	got := snippet(text, []string{"needle"})
	if len(got) == 0 {
		t.Fatal("expected a non-empty snippet")
	}
	if got[0] == ' ' || got[len(got)-1] == ' ' {
		t.Errorf("snippet() should not start or end on a space boundary artifact, got %q", got)
	}
	if !strings.Contains(got, "needle") {
		t.Errorf("snippet() should contain the matched token, got %q", got)
	}
}

func TestSortHitsOrdersByScoreThenConfidenceThenAge(t *testing.T) {
	now := time.Unix(1700000000, 0)
	hits := []*Hit{
		{OCRID: "low-score", Score: 1, PageConfidence: 0.9, CreatedAt: now},
		{OCRID: "high-score", Score: 5, PageConfidence: 0.1, CreatedAt: now},
		{OCRID: "tie-lower-confidence", Score: 5, PageConfidence: 0.1, CreatedAt: now.Add(time.Hour)},
		{OCRID: "tie-higher-confidence", Score: 5, PageConfidence: 0.5, CreatedAt: now},
	}
	sortHits(hits)

	want := []string{"tie-higher-confidence", "high-score", "tie-lower-confidence", "low-score"}
	for i, id := range want {
		if hits[i].OCRID != id {
			t.Fatalf("position %d: got %q, want %q (order: %v)", i, hits[i].OCRID, id, hitIDs(hits))
		}
	}
}

func hitIDs(hits []*Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.OCRID
	}
	return ids
}

func TestTruncate(t *testing.T) {
	hits := []*Hit{{OCRID: "a"}, {OCRID: "b"}, {OCRID: "c"}}
	if got := truncate(hits, 2); len(got) != 2 {
		t.Errorf("truncate() = %d hits, want 2", len(got))
	}
	if got := truncate(hits, 10); len(got) != 3 {
		t.Errorf("truncate() with a limit above length = %d hits, want 3", len(got))
	}
}
