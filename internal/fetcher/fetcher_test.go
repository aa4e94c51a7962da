package fetcher

import (
	"testing"
	"time"
)

func TestHostOf(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.gov/files/a.pdf", "example.gov"},
		{"http://example.gov:8080/a.pdf", "example.gov:8080"},
		{"https://example.gov", "example.gov"},
		{"not-a-url", "not-a-url"},
	}
	for _, tc := range cases {
		if got := hostOf(tc.url); got != tc.want {
			t.Errorf("hostOf(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestAwaitHostDelayEnforcesMinimumGap(t *testing.T) {
	f := &Fetcher{
		hostDelay:  50 * time.Millisecond,
		lastByHost: make(map[string]time.Time),
	}

	start := time.Now()
	f.awaitHostDelay("https://example.gov/a.pdf")
	first := time.Since(start)
	if first > 10*time.Millisecond {
		t.Errorf("first call to a fresh host should not wait, took %v", first)
	}

	start = time.Now()
	f.awaitHostDelay("https://example.gov/b.pdf")
	second := time.Since(start)
	if second < 40*time.Millisecond {
		t.Errorf("second call to the same host within the delay window should block, took %v", second)
	}
}

func TestAwaitHostDelayDoesNotBlockDifferentHosts(t *testing.T) {
	f := &Fetcher{
		hostDelay:  time.Hour,
		lastByHost: make(map[string]time.Time),
	}
	f.awaitHostDelay("https://a.example.gov/x.pdf")

	start := time.Now()
	f.awaitHostDelay("https://b.example.gov/x.pdf")
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("distinct hosts should not share the delay window, took %v", elapsed)
	}
}
