package store

import (
	"context"
	"os"
	"testing"
	"time"
)

// newTestStore connects to a live Postgres instance for integration-style
// coverage of claim/reaper/completion semantics. Skipped unless
// DOCINDEX_TEST_DATABASE_URL is set, matching the reference's pattern of
// skipping tests that need external fixtures.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("DOCINDEX_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DOCINDEX_TEST_DATABASE_URL not set, skipping store integration test")
	}
	s, err := New(url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return s
}

func TestUpsertDocumentIdempotent(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	doc := &Document{
		DocumentID: "testdoc-idempotent",
		SourceURL:  "https://example.test/a.pdf",
		FileName:   "a.pdf",
		FileType:   "pdf",
		FileSize:   1024,
		PageCount:  3,
		Metadata:   map[string]interface{}{"section": "test"},
	}

	first, inserted, err := s.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first upsert to insert")
	}

	second, inserted, err := s.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if inserted {
		t.Fatalf("expected second upsert to be a no-op")
	}
	if second.DocumentID != first.DocumentID {
		t.Fatalf("expected same document_id on collision")
	}
}

func TestClaimPendingPagesSkipsLocked(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	doc := &Document{DocumentID: "testdoc-claim", FileName: "b.pdf", FileType: "pdf", PageCount: 2, Metadata: map[string]interface{}{}}
	if _, _, err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("upsert document: %v", err)
	}

	pages := []*ImagePage{
		{PageID: "testdoc-claim_page_0001", DocumentID: doc.DocumentID, PageNumber: 1, ImagePath: "images/testdoc-claim_page_0001.png"},
		{PageID: "testdoc-claim_page_0002", DocumentID: doc.DocumentID, PageNumber: 2, ImagePath: "images/testdoc-claim_page_0002.png"},
	}
	if err := s.InsertImagePages(ctx, pages); err != nil {
		t.Fatalf("insert pages: %v", err)
	}

	claimed, err := s.ClaimPendingPages(ctx, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) < 2 {
		t.Fatalf("expected at least 2 claimed pages, got %d", len(claimed))
	}

	again, err := s.ClaimPendingPages(ctx, 10)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	for _, p := range again {
		if p.DocumentID == doc.DocumentID {
			t.Fatalf("page %s claimed twice while still in_progress", p.PageID)
		}
	}
}

func TestReapStuckClaims(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	n, err := s.ReapStuckClaims(ctx, 0)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n < 0 {
		t.Fatalf("expected non-negative reap count")
	}
}
