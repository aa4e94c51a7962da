package ocr

import (
	"testing"

	"github.com/openrecords/docindex/internal/store"
)

func TestBoxIOU(t *testing.T) {
	a := store.WordBox{X: 0, Y: 0, Width: 10, Height: 10}
	b := store.WordBox{X: 5, Y: 5, Width: 10, Height: 10}
	iou := boxIOU(a, b)
	if iou <= 0 || iou >= 1 {
		t.Fatalf("expected partial overlap IOU in (0,1), got %f", iou)
	}

	disjoint := store.WordBox{X: 100, Y: 100, Width: 5, Height: 5}
	if got := boxIOU(a, disjoint); got != 0 {
		t.Errorf("disjoint boxes: IOU = %f, want 0", got)
	}

	identical := boxIOU(a, a)
	if identical != 1 {
		t.Errorf("identical boxes: IOU = %f, want 1", identical)
	}
}

func TestMergeScalesKeepsHigherConfidenceOnOverlap(t *testing.T) {
	scale1 := []store.WordBox{{Text: "hello", X: 0, Y: 0, Width: 20, Height: 10, Confidence: 0.5}}
	scale2 := []store.WordBox{{Text: "hello", X: 1, Y: 1, Width: 20, Height: 10, Confidence: 0.9}}

	merged := mergeScales([][]store.WordBox{scale1, scale2})
	if len(merged) != 1 {
		t.Fatalf("expected overlapping detections to merge into 1, got %d", len(merged))
	}
	if merged[0].Confidence != 0.9 {
		t.Errorf("merged confidence = %f, want 0.9 (higher of the two)", merged[0].Confidence)
	}
}

func TestMergeScalesKeepsNonOverlappingBoxes(t *testing.T) {
	scale1 := []store.WordBox{{Text: "a", X: 0, Y: 0, Width: 10, Height: 10, Confidence: 0.8}}
	scale2 := []store.WordBox{{Text: "b", X: 500, Y: 500, Width: 10, Height: 10, Confidence: 0.8}}

	merged := mergeScales([][]store.WordBox{scale1, scale2})
	if len(merged) != 2 {
		t.Fatalf("expected disjoint detections to remain separate, got %d", len(merged))
	}
}

func TestWeightedConfidence(t *testing.T) {
	words := []store.WordBox{
		{Text: "hi", Confidence: 1.0},    // weight 2
		{Text: "there", Confidence: 0.0}, // weight 5
	}
	got := weightedConfidence(words)
	want := 2.0 / 7.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("weightedConfidence() = %f, want %f", got, want)
	}

	if got := weightedConfidence(nil); got != 0 {
		t.Errorf("weightedConfidence(nil) = %f, want 0", got)
	}
}

func TestEnclosingBBox(t *testing.T) {
	words := []store.WordBox{
		{X: 10, Y: 20, Width: 5, Height: 5},
		{X: 100, Y: 50, Width: 10, Height: 10},
	}
	bbox := enclosingBBox(words, 1000, 1000)
	if bbox.X != 10 || bbox.Y != 20 || bbox.Width != 100 || bbox.Height != 40 {
		t.Errorf("enclosingBBox() = %+v, unexpected", bbox)
	}

	if empty := enclosingBBox(nil, 100, 100); empty != (store.BBox{}) {
		t.Errorf("enclosingBBox(nil) = %+v, want zero value", empty)
	}
}
