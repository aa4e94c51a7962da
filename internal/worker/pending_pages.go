// Package worker runs the two long-lived loops of the ingestion pipeline
// (spec §5): claiming and OCR-processing pending pages, and periodically
// crawling configured sources for new documents.
package worker

import (
	"context"
	"time"

	"github.com/openrecords/docindex/internal/blob"
	"github.com/openrecords/docindex/internal/config"
	"github.com/openrecords/docindex/internal/entity"
	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/indexer"
	"github.com/openrecords/docindex/internal/logging"
	"github.com/openrecords/docindex/internal/normalizer"
	"github.com/openrecords/docindex/internal/notify"
	"github.com/openrecords/docindex/internal/ocr"
	"github.com/openrecords/docindex/internal/search"
	"github.com/openrecords/docindex/internal/store"
)

// PendingPages runs the claim -> OCR -> normalize -> extract -> index ->
// complete cycle over ImagePage rows in state pending, which includes pages
// returned to pending after a retryable failure (spec §5.1).
type PendingPages struct {
	docStore    *store.Store
	blobStore   blob.Store
	coordinator *ocr.Coordinator
	publisher   *notify.Publisher
	embedder    search.Embedder
	vectorIndex *search.QdrantIndex
	batchSize   int
	pollPeriod  time.Duration
	claimTTL    time.Duration
	log         *logging.Logger
}

// NewPendingPages builds a PendingPages loop. embedder and vectorIndex may
// both be nil (a concrete *search.QdrantIndex nil, not a wrapped
// interface, so the nil checks in indexVector hold), in which case pages
// are indexed for keyword/phrase/fuzzy/entity search only, matching the
// engine's own semantic-search capability gating.
func NewPendingPages(cfg *config.Config, docStore *store.Store, blobStore blob.Store, coordinator *ocr.Coordinator, publisher *notify.Publisher, embedder search.Embedder, vectorIndex *search.QdrantIndex) *PendingPages {
	return &PendingPages{
		docStore:    docStore,
		blobStore:   blobStore,
		coordinator: coordinator,
		publisher:   publisher,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		batchSize:   cfg.WorkerBatchSize,
		pollPeriod:  time.Duration(cfg.WorkerPollSeconds) * time.Second,
		claimTTL:    time.Duration(cfg.WorkerClaimTTLSeconds) * time.Second,
		log:         logging.NewLogger("worker.pending_pages"),
	}
}

// Run polls until ctx is cancelled, processing up to batchSize claimed
// pages per tick and reaping claims that outlived claimTTL (spec §5.1
// steps 1-6, §3 ImagePage.claimed_at reap semantics).
func (w *PendingPages) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("pending pages loop stopping")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PendingPages) tick(ctx context.Context) {
	if reaped, err := w.docStore.ReapStuckClaims(ctx, w.claimTTL); err != nil {
		w.log.Warn("reap stuck claims failed", "error", err)
	} else if reaped > 0 {
		w.log.Info("reaped stuck claims", "count", reaped)
	}

	pages, err := w.docStore.ClaimPendingPages(ctx, w.batchSize)
	if err != nil {
		w.log.Error("claim pending pages failed", "error", err)
		return
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			w.docStore.ReleasePage(context.Background(), page.PageID)
			return
		}
		w.processPage(ctx, page)
	}
}

func (w *PendingPages) processPage(ctx context.Context, page *store.ImagePage) {
	log := w.log
	imageData, err := w.blobStore.Get(ctx, page.ImagePath)
	if err != nil {
		w.fail(ctx, page, errors.Internal("failed to read page image", err))
		return
	}

	ocrText, err := w.coordinator.Process(ctx, imageData, page.Width, page.Height)
	if err != nil {
		w.fail(ctx, page, err)
		return
	}

	ocrText.PageID = page.PageID
	ocrText.DocumentID = page.DocumentID
	ocrText.NormalizedText = normalizer.Normalize(ocrText.RawText)

	entities := entity.Extract(ocrText.NormalizedText, ocrText.WordBoxes)
	for _, e := range entities {
		e.DocumentID = page.DocumentID
	}

	searchIndex := indexer.BuildSearchIndex("", ocrText.NormalizedText)

	if err := w.docStore.CompletePageOCR(ctx, page, ocrText, entities, searchIndex); err != nil {
		log.Error("failed to complete page ocr", "page_id", page.PageID, "error", err)
		w.fail(ctx, page, errors.Internal("failed to persist ocr result", err))
		return
	}

	log.Info("completed page ocr", "page_id", page.PageID, "confidence", ocrText.PageConfidence, "words", len(ocrText.WordBoxes))
	w.indexVector(ctx, ocrText)
	w.notify(ctx, page, true, "")
}

// indexVector embeds and upserts the page's normalized text into the
// semantic index, when configured. Failures here are logged but never
// fail the page: semantic search is an additive capability, not a
// required one (spec §6.6 SemanticSearchEnabled).
func (w *PendingPages) indexVector(ctx context.Context, ocrText *store.OCRText) {
	if w.embedder == nil || w.vectorIndex == nil || ocrText.NormalizedText == "" {
		return
	}
	vector, err := w.embedder.Embed(ctx, ocrText.NormalizedText)
	if err != nil {
		w.log.Warn("failed to embed page text", "ocr_id", ocrText.OCRID, "error", err)
		return
	}
	if err := w.vectorIndex.UpsertPageVector(ctx, ocrText.OCRID, vector); err != nil {
		w.log.Warn("failed to upsert page vector", "ocr_id", ocrText.OCRID, "error", err)
	}
}

func (w *PendingPages) fail(ctx context.Context, page *store.ImagePage, err error) {
	reason := map[string]interface{}{"error": err.Error()}
	if e, ok := err.(*errors.Error); ok {
		reason = e.ToMap()
	}

	if errors.Retryable(err) {
		if rerr := w.docStore.RetryOrFailPage(ctx, page.PageID, reason); rerr != nil {
			w.log.Error("retry_or_fail_page failed", "page_id", page.PageID, "error", rerr)
		}
	} else {
		if rerr := w.docStore.FailPageImmediately(ctx, page.PageID, reason); rerr != nil {
			w.log.Error("fail_page_immediately failed", "page_id", page.PageID, "error", rerr)
		}
	}
	w.log.Warn("page processing failed", "page_id", page.PageID, "error", err)
	w.notify(ctx, page, false, err.Error())
}

func (w *PendingPages) notify(ctx context.Context, page *store.ImagePage, success bool, errMsg string) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, notify.PageCompletedEvent{
		PageID:     page.PageID,
		DocumentID: page.DocumentID,
		Success:    success,
		Error:      errMsg,
	}); err != nil {
		w.log.Warn("failed to publish page completion event", "page_id", page.PageID, "error", err)
	}
}
