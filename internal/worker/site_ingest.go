package worker

import (
	"context"
	"time"

	"github.com/openrecords/docindex/internal/config"
	"github.com/openrecords/docindex/internal/crawler"
	"github.com/openrecords/docindex/internal/fetcher"
	"github.com/openrecords/docindex/internal/logging"
	"github.com/openrecords/docindex/internal/splitter"
	"github.com/openrecords/docindex/internal/store"
)

// SiteIngest periodically crawls the configured sources, fetches newly
// discovered descriptors, and splits each fetched document into pages
// (spec §5.2 "periodic site crawl+ingest").
type SiteIngest struct {
	crawlers     []crawler.Crawler
	fetcher      *fetcher.Fetcher
	splitter     *splitter.Splitter
	docStore     *store.Store
	interval     time.Duration
	skipExisting bool
	log          *logging.Logger
}

func NewSiteIngest(cfg *config.Config, crawlers []crawler.Crawler, fetch *fetcher.Fetcher, split *splitter.Splitter, docStore *store.Store) *SiteIngest {
	return &SiteIngest{
		crawlers:     crawlers,
		fetcher:      fetch,
		splitter:     split,
		docStore:     docStore,
		interval:     time.Duration(cfg.SiteIngestRunIntervalSeconds) * time.Second,
		skipExisting: cfg.SiteIngestSkipExisting,
		log:          logging.NewLogger("worker.site_ingest"),
	}
}

// Run fires an ingest pass immediately, then every interval, until ctx is
// cancelled. Sleeping happens in short polls so shutdown is responsive
// even with a long interval configured.
func (w *SiteIngest) Run(ctx context.Context) {
	w.runOnce(ctx)

	const pollStep = 5 * time.Second
	elapsed := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("site ingest loop stopping")
			return
		case <-time.After(pollStep):
			elapsed += pollStep
			if elapsed >= w.interval {
				elapsed = 0
				w.runOnce(ctx)
			}
		}
	}
}

func (w *SiteIngest) runOnce(ctx context.Context) {
	for _, c := range w.crawlers {
		if err := ctx.Err(); err != nil {
			return
		}
		result := c.Discover(ctx)
		if result.Err != nil {
			w.log.Error("crawl failed", "error", result.Err)
			continue
		}

		included := result.Included()
		w.log.Info("crawl complete", "total", len(result.Descriptors), "included", len(included), "excluded", len(result.Descriptors)-len(included))

		outcomes := w.fetcher.FetchAll(ctx, included, w.skipExisting)
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				w.log.Error("fetch failed", "url", outcome.Descriptor.URL, "error", outcome.Err)
				continue
			}
			if !outcome.Created {
				continue
			}
			doc, err := w.docStore.GetDocument(ctx, outcome.DocumentID)
			if err != nil {
				w.log.Error("failed to load fetched document", "document_id", outcome.DocumentID, "error", err)
				continue
			}
			if err := w.splitter.Split(ctx, doc); err != nil {
				w.log.Error("split failed", "document_id", outcome.DocumentID, "error", err)
			}
		}
	}
}
