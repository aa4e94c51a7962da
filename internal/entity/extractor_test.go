package entity

import (
	"testing"

	"github.com/openrecords/docindex/internal/store"
)

func findKind(entities []*store.Entity, kind store.EntityKind) []*store.Entity {
	var out []*store.Entity
	for _, e := range entities {
		if e.EntityType == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestExtractEmail(t *testing.T) {
	entities := Extract("Contact Jane.Doe+Sales@Example.com for details.", nil)
	emails := findKind(entities, store.EntityEmail)
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}
	if *emails[0].NormalizedValue != "jane.doe+sales@example.com" {
		t.Fatalf("unexpected normalized email: %q", *emails[0].NormalizedValue)
	}
}

func TestExtractPhoneVariants(t *testing.T) {
	text := "Call (555) 123-4567 or 555-123-4568 or +1 555 123 4569."
	entities := Extract(text, nil)
	phones := findKind(entities, store.EntityPhone)
	if len(phones) != 3 {
		t.Fatalf("expected 3 phones, got %d: %+v", len(phones), phones)
	}
	want := map[string]bool{"5551234567": true, "5551234568": true, "5551234569": true}
	for _, p := range phones {
		if !want[*p.NormalizedValue] {
			t.Fatalf("unexpected normalized phone %q", *p.NormalizedValue)
		}
	}
}

func TestExtractDateFormats(t *testing.T) {
	text := "Filed 2024-03-05, due 03/06/2024, signed 6/7/24, issued March 8, 2024, dated 9 March 2024."
	entities := Extract(text, nil)
	dates := findKind(entities, store.EntityDate)
	if len(dates) != 5 {
		t.Fatalf("expected 5 dates, got %d: %+v", len(dates), dates)
	}
	for _, d := range dates {
		if d.NormalizedValue == nil {
			t.Fatalf("expected normalized date for %q", d.EntityValue)
		}
	}
}

func TestExtractNameSkipsStopWords(t *testing.T) {
	text := "Dear John Smith, please see United States Department for details."
	entities := Extract(text, nil)
	names := findKind(entities, store.EntityName)
	var values []string
	for _, n := range names {
		values = append(values, n.EntityValue)
	}
	foundJohnSmith := false
	for _, v := range values {
		if v == "John Smith" {
			foundJohnSmith = true
		}
		if v == "United States Department" {
			t.Fatalf("expected stop words to break up name run, got %q", v)
		}
	}
	if !foundJohnSmith {
		t.Fatalf("expected to find John Smith among %v", values)
	}
}

func TestExtractDeduplicatesByNormalizedValue(t *testing.T) {
	text := "Email a@b.com then again a@B.com."
	entities := Extract(text, nil)
	emails := findKind(entities, store.EntityEmail)
	if len(emails) != 1 {
		t.Fatalf("expected dedup to 1 email, got %d", len(emails))
	}
}

func TestExtractAttachesBBoxFromWordBoxes(t *testing.T) {
	wordBoxes := []store.WordBox{
		{Text: "Contact", X: 0, Y: 0, Width: 50, Height: 10},
		{Text: "a@b.com", X: 55, Y: 0, Width: 60, Height: 10},
		{Text: "today", X: 120, Y: 0, Width: 40, Height: 10},
	}
	entities := Extract("Contact a@b.com today", wordBoxes)
	emails := findKind(entities, store.EntityEmail)
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}
	if emails[0].BBox == nil {
		t.Fatalf("expected bbox to be attached")
	}
	if emails[0].BBox.X != 55 || emails[0].BBox.Width != 60 {
		t.Fatalf("unexpected bbox: %+v", emails[0].BBox)
	}
}

func TestExtractNoMatches(t *testing.T) {
	entities := Extract("the quick brown fox jumps over the lazy dog", nil)
	if len(entities) != 0 {
		t.Fatalf("expected no entities, got %d: %+v", len(entities), entities)
	}
}
