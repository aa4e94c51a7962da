// Package fetcher downloads crawler-discovered descriptors into the blob
// store and registers each as a Document, deriving a content-hash document
// ID so re-running ingestion over the same content is idempotent (spec
// §4.2 "Fetcher").
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openrecords/docindex/internal/blob"
	"github.com/openrecords/docindex/internal/config"
	"github.com/openrecords/docindex/internal/crawler"
	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
	"github.com/openrecords/docindex/internal/store"
)

// Fetcher downloads a set of crawler descriptors, computing a content hash
// of each body to derive a deterministic document_id, storing original
// bytes in the blob store under files/{document_id}.{ext}, and upserting a
// Document row (spec §4.2 steps 1-4).
type Fetcher struct {
	blobStore  blob.Store
	docStore   *store.Store
	httpClient *http.Client
	limiter    *rate.Limiter
	hostDelay  time.Duration
	tempDir    string
	log        *logging.Logger

	mu         sync.Mutex
	lastByHost map[string]time.Time
}

// New builds a Fetcher from cfg: max concurrent downloads becomes a
// limiter burst/rate pair, and CrawlerRateLimitPerHostMs becomes the
// minimum delay between requests to the same host (spec §6.6).
func New(cfg *config.Config, blobStore blob.Store, docStore *store.Store) *Fetcher {
	maxConcurrent := cfg.CrawlerMaxConcurrentDownloads
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Fetcher{
		blobStore:  blobStore,
		docStore:   docStore,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(maxConcurrent), maxConcurrent),
		hostDelay:  time.Duration(cfg.CrawlerRateLimitPerHostMs) * time.Millisecond,
		tempDir:    cfg.TempDir,
		log:        logging.NewLogger("fetcher"),
		lastByHost: make(map[string]time.Time),
	}
}

// Outcome is the result of fetching a single descriptor.
type Outcome struct {
	Descriptor crawler.Descriptor
	DocumentID string
	Created    bool // false when the document already existed (skip_existing)
	Err        error
}

// FetchAll downloads every included descriptor, honoring skipExisting by
// checking the blob store for an already-stored key once the body has been
// downloaded and hashed, before storing it (spec §4.2 "skip_existing").
func (f *Fetcher) FetchAll(ctx context.Context, descriptors []crawler.Descriptor, skipExisting bool) []Outcome {
	out := make([]Outcome, 0, len(descriptors))
	for _, d := range descriptors {
		if err := f.limiter.Wait(ctx); err != nil {
			out = append(out, Outcome{Descriptor: d, Err: errors.Cancelled("fetch cancelled waiting for rate limiter")})
			continue
		}
		f.awaitHostDelay(d.URL)
		outcome := f.fetchOne(ctx, d, skipExisting)
		out = append(out, outcome)
	}
	return out
}

func (f *Fetcher) awaitHostDelay(rawURL string) {
	host := hostOf(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	if last, ok := f.lastByHost[host]; ok {
		if wait := f.hostDelay - time.Since(last); wait > 0 {
			time.Sleep(wait)
		}
	}
	f.lastByHost[host] = time.Now()
}

func (f *Fetcher) fetchOne(ctx context.Context, d crawler.Descriptor, skipExisting bool) Outcome {
	tmpFile, err := os.CreateTemp(f.tempDir, "fetch-*")
	if err != nil {
		return Outcome{Descriptor: d, Err: errors.Internal("failed to create temp file", err)}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	defer tmpFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return Outcome{Descriptor: d, Err: errors.Internal("failed to build download request", err)}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Outcome{Descriptor: d, Err: errors.TransientUpstream("download failed", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Outcome{Descriptor: d, Err: errors.TransientUpstream(fmt.Sprintf("download returned %d", resp.StatusCode), nil)}
	}
	if resp.StatusCode != http.StatusOK {
		return Outcome{Descriptor: d, Err: errors.PermanentUpstream(fmt.Sprintf("download returned %d", resp.StatusCode), nil)}
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body)
	if err != nil {
		return Outcome{Descriptor: d, Err: errors.TransientUpstream("failed streaming download to disk", err)}
	}

	documentID := hex.EncodeToString(hasher.Sum(nil))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Filename), "."))
	key := fmt.Sprintf("%s%s.%s", blob.FilesPrefix, documentID, ext)

	if skipExisting {
		if exists, err := f.blobStore.Exists(ctx, key); err == nil && exists {
			f.log.Info("skipping existing document", "document_id", documentID)
			return Outcome{Descriptor: d, DocumentID: documentID, Created: false}
		}
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return Outcome{Descriptor: d, Err: errors.Internal("failed to rewind temp file", err)}
	}
	data, err := io.ReadAll(tmpFile)
	if err != nil {
		return Outcome{Descriptor: d, Err: errors.Internal("failed to read temp file", err)}
	}

	if err := f.blobStore.Put(ctx, key, data); err != nil {
		return Outcome{Descriptor: d, Err: errors.Internal("failed to store blob", err)}
	}

	doc := &store.Document{
		DocumentID: documentID,
		SourceURL:  d.URL,
		FileName:   d.Filename,
		FileType:   ext,
		FileSize:   size,
		Metadata: map[string]interface{}{
			"section_label":  d.SectionLabel,
			"exclude_reason": d.ExcludeReason,
		},
	}
	_, created, err := f.docStore.UpsertDocument(ctx, doc)
	if err != nil {
		return Outcome{Descriptor: d, Err: errors.Internal("failed to upsert document row", err)}
	}

	f.log.Info("fetched document", "document_id", documentID, "url", d.URL, "bytes", size, "created", created)
	return Outcome{Descriptor: d, DocumentID: documentID, Created: created}
}

func hostOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}
