package blob

import (
	"context"
	"testing"

	"github.com/openrecords/docindex/internal/errors"
)

func TestFilesystemStorePutGetExists(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}
	ctx := context.Background()

	key := "files/deadbeef.pdf"
	ok, err := s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatalf("expected key to not exist yet")
	}

	if err := s.Put(ctx, key, []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err = s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected key to exist after Put, err=%v ok=%v", err, ok)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	u, err := s.URL(ctx, key)
	if err != nil || u == "" {
		t.Fatalf("URL: %v %q", err, u)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = s.Exists(ctx, key)
	if ok {
		t.Fatalf("expected key removed after Delete")
	}
}

func TestFilesystemStoreGetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}
	_, err = s.Get(context.Background(), "files/missing.pdf")
	if err == nil {
		t.Fatalf("expected error for missing key")
	}
	if errors.KindOf(err) != errors.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", errors.KindOf(err))
	}
}

func TestFilesystemStoreRejectsOverlongKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}
	longKey := make([]byte, MaxKeyLength+1)
	for i := range longKey {
		longKey[i] = 'a'
	}
	err = s.Put(context.Background(), string(longKey), []byte("x"))
	if errors.KindOf(err) != errors.KindInvalidArgument {
		t.Fatalf("expected KindInvalidArgument, got %v", errors.KindOf(err))
	}
}
