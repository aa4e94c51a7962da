package indexer

import (
	"reflect"
	"testing"
)

func TestBuildSearchIndexLowercasesAndTokenizes(t *testing.T) {
	idx := BuildSearchIndex("ocr-1", "Hello, World! Order #42.")
	want := []string{"hello", "world", "order", "42"}
	if !reflect.DeepEqual(idx.Tokens, want) {
		t.Fatalf("got tokens %v, want %v", idx.Tokens, want)
	}
	if idx.OCRID != "ocr-1" {
		t.Fatalf("unexpected ocr id %q", idx.OCRID)
	}
}

func TestBuildSearchIndexPreservesDuplicatesAndOrder(t *testing.T) {
	idx := BuildSearchIndex("ocr-2", "the cat sat on the mat")
	want := []string{"the", "cat", "sat", "on", "the", "mat"}
	if !reflect.DeepEqual(idx.Tokens, want) {
		t.Fatalf("got tokens %v, want %v", idx.Tokens, want)
	}
}

func TestBuildSearchIndexCollapsesPunctuationRuns(t *testing.T) {
	idx := BuildSearchIndex("ocr-3", "a---b")
	want := []string{"a", "b"}
	if !reflect.DeepEqual(idx.Tokens, want) {
		t.Fatalf("got tokens %v, want %v", idx.Tokens, want)
	}
}

func TestBuildSearchIndexCollapsesDottedAcronyms(t *testing.T) {
	idx := BuildSearchIndex("ocr-4", "The U.S. government and the U.S.A. embassy")
	want := []string{"the", "us", "government", "and", "the", "usa", "embassy"}
	if !reflect.DeepEqual(idx.Tokens, want) {
		t.Fatalf("got tokens %v, want %v", idx.Tokens, want)
	}
}

func TestBuildSearchIndexDottedAndUndottedAcronymsMatch(t *testing.T) {
	dotted := BuildSearchIndex("ocr-5", "U.S. policy")
	plain := BuildSearchIndex("ocr-6", "US policy")
	if dotted.Tokens[0] != plain.Tokens[0] {
		t.Fatalf("expected %q and %q to tokenize identically, got %q vs %q",
			"U.S.", "US", dotted.Tokens[0], plain.Tokens[0])
	}
}
