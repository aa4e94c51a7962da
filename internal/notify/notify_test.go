package notify

import (
	"context"
	"testing"
)

func TestNewWithEmptyURLIsDisabled(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Enabled() {
		t.Error("Enabled() = true, want false for an empty REDIS_URL")
	}
}

func TestDisabledPublisherPublishIsNoop(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Publish(context.Background(), PageCompletedEvent{PageID: "p1", Success: true}); err != nil {
		t.Errorf("Publish() on a disabled publisher returned an error: %v", err)
	}
}

func TestDisabledPublisherCloseIsNoop(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() on a disabled publisher returned an error: %v", err)
	}
}

func TestNewWithInvalidURLErrors(t *testing.T) {
	if _, err := New("not a valid redis url \x00"); err == nil {
		t.Error("expected an error parsing an invalid redis url, got nil")
	}
}
