package ocr

import (
	"context"
	"testing"

	"github.com/openrecords/docindex/internal/store"
)

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"cat", "cat", 0},
		{"", "cat", 3},
		{"cat", "", 3},
		{"cat", "cats", 1},
		{"cat", "cut", 1},
		{"kitten", "sitting", 3},
	}
	for _, tc := range cases {
		if got := editDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestTextMatches(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Invoice", "invoice", true},
		{"Invoice", "lnvoice", true},
		{"Invoice", "Invoices", true},
		{"Invoice", "Invoicing", false},
		{"cat", "dog", false},
	}
	for _, tc := range cases {
		if got := textMatches(tc.a, tc.b); got != tc.want {
			t.Errorf("textMatches(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMergeEnsembleCollapsesMatchingOverlap(t *testing.T) {
	boxes := []store.WordBox{
		{Text: "Invoice", X: 0, Y: 0, Width: 40, Height: 10, Confidence: 0.6},
		{Text: "lnvoice", X: 1, Y: 1, Width: 40, Height: 10, Confidence: 0.95},
	}
	merged := mergeEnsemble(boxes)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged box, got %d: %+v", len(merged), merged)
	}
	if merged[0].Confidence != 0.95 {
		t.Errorf("merged confidence = %f, want the higher candidate's 0.95", merged[0].Confidence)
	}
}

func TestMergeEnsemblePassesThroughUnmatched(t *testing.T) {
	boxes := []store.WordBox{
		{Text: "Invoice", X: 0, Y: 0, Width: 40, Height: 10, Confidence: 0.9},
		{Text: "Total", X: 500, Y: 500, Width: 30, Height: 10, Confidence: 0.9},
	}
	merged := mergeEnsemble(boxes)
	if len(merged) != 2 {
		t.Fatalf("expected both boxes to pass through unmerged, got %d", len(merged))
	}
}

func TestEnsembleExtractPrunesLowConfidence(t *testing.T) {
	b1 := stubBackend{id: "b1", words: []store.WordBox{
		{Text: "keep", X: 0, Y: 0, Width: 10, Height: 10, Confidence: 0.9},
		{Text: "drop", X: 100, Y: 100, Width: 10, Height: 10, Confidence: 0.1},
	}}
	ensemble := NewEnsembleBackend([]Backend{b1}, 0.3)
	result, err := ensemble.Extract(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Words) != 1 || result.Words[0].Text != "keep" {
		t.Errorf("expected only the high-confidence word to survive, got %+v", result.Words)
	}
}

type stubBackend struct {
	id    string
	words []store.WordBox
}

func (s stubBackend) ID() string { return s.id }

func (s stubBackend) Extract(ctx context.Context, image []byte, languages []string) (*PageResult, error) {
	return &PageResult{Words: s.words, Engine: s.id}, nil
}
