// Package crawler discovers candidate files from remote endpoints, with
// policy-driven inclusion/exclusion (spec §4.1). Two flavors are provided:
// a generic JSON-listing crawler and a site-specific HTML crawler grounded
// on the reference pack's TheSnook/polyester link-walking crawler.
package crawler

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

// AllowedExtensions is the set of file extensions crawlers are permitted
// to yield (spec §4.1).
var AllowedExtensions = map[string]bool{
	"pdf": true, "jpg": true, "jpeg": true, "png": true,
	"tiff": true, "tif": true, "bmp": true, "gif": true,
}

// Descriptor is a single candidate file discovered by a crawler.
type Descriptor struct {
	URL             string
	Filename        string
	ContentTypeHint string
	SectionLabel    string
	ExcludeReason   string // empty when not excluded
}

// Result is the outcome of a single crawl invocation: the full set of
// descriptors discovered (including excluded ones, for preview) plus any
// discovery error (spec §4.1 failure semantics).
type Result struct {
	Descriptors []Descriptor
	Err         error
}

// Included returns only the non-excluded descriptors, the set the fetcher
// should actually download.
func (r Result) Included() []Descriptor {
	var out []Descriptor
	for _, d := range r.Descriptors {
		if d.ExcludeReason == "" {
			out = append(out, d)
		}
	}
	return out
}

// Crawler discovers descriptors from a single configured source.
type Crawler interface {
	Discover(ctx context.Context) Result
}

// httpDoer is the subset of *http.Client crawlers depend on, so tests can
// substitute a fake transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// retryConfig is the exponential backoff policy shared by both crawler
// flavors (spec §4.1: base 1s, factor 2, max 30s, up to 5 tries).
type retryConfig struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxAttempts int
}

var defaultRetry = retryConfig{baseDelay: time.Second, maxDelay: 30 * time.Second, maxAttempts: 5}

// getWithRetry issues a GET request, retrying transient failures (network
// errors, 5xx) with exponential backoff. A 4xx response is returned
// immediately as a non-retryable result.
func getWithRetry(ctx context.Context, client httpDoer, url string, accept string, log *logging.Logger, retry retryConfig) (*http.Response, error) {
	var lastErr error
	delay := retry.baseDelay

	for attempt := 1; attempt <= retry.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.Internal("failed to build request", err)
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err != nil {
			lastErr = err
			log.Warn("request failed, will retry", "url", url, "attempt", attempt, "error", err)
		} else {
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			resp.Body.Close()
			log.Warn("server error, will retry", "url", url, "attempt", attempt, "status", resp.StatusCode)
		}

		if attempt == retry.maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errors.Cancelled("crawl request cancelled during backoff")
		}
		delay = time.Duration(math.Min(float64(delay)*2, float64(retry.maxDelay)))
	}
	return nil, errors.TransientUpstream(fmt.Sprintf("exhausted retries for %s", url), lastErr)
}

// extensionOf returns the lowercase extension of filename, without the dot.
func extensionOf(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func isAllowedFile(filename string) bool {
	return AllowedExtensions[extensionOf(filename)]
}
