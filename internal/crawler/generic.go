package crawler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

// candidateListingPaths is the ordered list of listing URLs tried under a
// base endpoint (spec §6.3).
var candidateListingPaths = []string{
	"api/all-files", "files.json", "list.json", "api/files", "/",
}

// GenericCrawler tries an ordered list of candidate listing URLs under a
// base endpoint, stopping at the first response whose body parses as JSON
// (spec §4.1).
type GenericCrawler struct {
	baseURL    string
	httpClient httpDoer
	log        *logging.Logger
}

// NewGenericCrawler builds a GenericCrawler against baseURL.
func NewGenericCrawler(baseURL string) *GenericCrawler {
	return &GenericCrawler{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.NewLogger("crawler"),
	}
}

func (c *GenericCrawler) Discover(ctx context.Context) Result {
	var lastErr error

	for _, candidate := range candidateListingPaths {
		url := c.baseURL + "/" + strings.TrimLeft(candidate, "/")
		resp, err := getWithRetry(ctx, c.httpClient, url, "application/json", c.log, defaultRetry)
		if err != nil {
			lastErr = err
			c.log.Warn("candidate listing failed, trying next", "url", url, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		var parsed interface{}
		if err := json.Unmarshal(body, &parsed); err != nil {
			// Not JSON; this candidate listing is not viable. Try the next one.
			continue
		}

		descriptors := extractDescriptors(parsed)
		c.log.Info("discovered descriptors", "url", url, "count", len(descriptors))
		return Result{Descriptors: descriptors}
	}

	return Result{Err: errors.Internal("discovery_failed: exhausted all candidate listing URLs", lastErr)}
}

// extractDescriptors walks arrays and object fields files|items|data|results
// looking for file entries (spec §4.1). A string element is a filename; an
// object element with any of key|url|href|path plus filename|name (or
// derived from the path tail) is a descriptor.
func extractDescriptors(v interface{}) []Descriptor {
	var out []Descriptor
	walk(v, &out)
	return out
}

func walk(v interface{}, out *[]Descriptor) {
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			switch e := item.(type) {
			case string:
				if isAllowedFile(e) {
					*out = append(*out, Descriptor{URL: e, Filename: path.Base(e)})
				}
			case map[string]interface{}:
				if d, ok := descriptorFromObject(e); ok {
					*out = append(*out, d)
				} else {
					walk(e, out)
				}
			}
		}
	case map[string]interface{}:
		for _, key := range []string{"files", "items", "data", "results"} {
			if nested, ok := t[key]; ok {
				walk(nested, out)
			}
		}
	}
}

func descriptorFromObject(obj map[string]interface{}) (Descriptor, bool) {
	var url string
	for _, key := range []string{"key", "url", "href", "path"} {
		if s, ok := obj[key].(string); ok && s != "" {
			url = s
			break
		}
	}
	if url == "" {
		return Descriptor{}, false
	}

	filename := ""
	for _, key := range []string{"filename", "name"} {
		if s, ok := obj[key].(string); ok && s != "" {
			filename = s
			break
		}
	}
	if filename == "" {
		filename = path.Base(url)
	}

	if !isAllowedFile(filename) {
		return Descriptor{}, false
	}

	d := Descriptor{URL: url, Filename: filename}
	if ct, ok := obj["content_type"].(string); ok {
		d.ContentTypeHint = ct
	}
	if section, ok := obj["section"].(string); ok {
		d.SectionLabel = section
	}
	return d, true
}
