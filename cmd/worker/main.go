// Command worker runs the docindex ingestion pipeline: it migrates the
// database schema, wires the crawler/fetcher/splitter/OCR/search stack,
// and runs the two long-lived worker loops until a shutdown signal
// arrives.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openrecords/docindex/internal/blob"
	"github.com/openrecords/docindex/internal/config"
	"github.com/openrecords/docindex/internal/crawler"
	"github.com/openrecords/docindex/internal/fetcher"
	"github.com/openrecords/docindex/internal/notify"
	"github.com/openrecords/docindex/internal/ocr"
	"github.com/openrecords/docindex/internal/search"
	"github.com/openrecords/docindex/internal/splitter"
	"github.com/openrecords/docindex/internal/store"
	"github.com/openrecords/docindex/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Printf("docindex worker starting (ocr_engine=%s, blob_backend=%s)", cfg.OCREngine, cfg.BlobBackend)

	docStore, err := store.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer docStore.Close()

	ctx, cancel := context.WithCancel(context.Background())

	if err := docStore.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	log.Printf("schema migrated")

	blobStore, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("failed to initialize blob store: %v", err)
	}

	backend, err := ocr.NewBackend(cfg)
	if err != nil {
		log.Fatalf("failed to initialize ocr backend: %v", err)
	}
	coordinator := ocr.NewCoordinator(backend, cfg)
	log.Printf("ocr backend initialized: %s", backend.ID())

	publisher, err := notify.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to initialize notifications: %v", err)
	}
	defer publisher.Close()
	if publisher.Enabled() {
		log.Printf("page-completion notifications enabled")
	}

	embedder, vectorIndex := newSemanticSearch(ctx, cfg)

	// vectorIndex is a concrete *search.QdrantIndex; only box it into the
	// search.VectorIndex interface when non-nil, otherwise the interface
	// value itself is non-nil (typed nil) and the engine's capability
	// check never trips.
	var vectorIndexIface search.VectorIndex
	if vectorIndex != nil {
		vectorIndexIface = vectorIndex
		defer vectorIndex.Close()
		log.Printf("semantic search enabled")
	}

	searchEngine := search.NewEngine(docStore, embedder, vectorIndexIface, cfg)
	_ = searchEngine // consumed by a query-surface process outside this worker binary

	crawlers := newCrawlers(cfg)
	fetch := fetcher.New(cfg, blobStore, docStore)
	split := splitter.New(cfg, blobStore, docStore)

	pendingPages := worker.NewPendingPages(cfg, docStore, blobStore, coordinator, publisher, embedder, vectorIndex)
	siteIngest := worker.NewSiteIngest(cfg, crawlers, fetch, split, docStore)

	go pendingPages.Run(ctx)
	go siteIngest.Run(ctx)

	log.Printf("worker loops running (poll=%ds, crawl_interval=%ds)", cfg.WorkerPollSeconds, cfg.SiteIngestRunIntervalSeconds)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	log.Printf("received signal %v, shutting down", sig)

	cancel()
	log.Printf("shutdown complete")
}

func newBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "remote":
		return blob.NewRemoteStore(cfg.BlobRemoteURL), nil
	default:
		return blob.NewFilesystemStore(cfg.BlobRoot)
	}
}

// newSemanticSearch wires Qdrant and VoyageAI when both are configured;
// either returned value is nil otherwise, matching search.NewEngine's and
// worker.NewPendingPages's nil-is-disabled contract (spec §6.6
// SemanticSearchEnabled).
func newSemanticSearch(ctx context.Context, cfg *config.Config) (search.Embedder, *search.QdrantIndex) {
	if !cfg.SemanticSearchEnabled() {
		log.Printf("semantic search disabled (QDRANT_ADDRESS or VOYAGE_API_KEY unset)")
		return nil, nil
	}

	embedder, err := search.NewVoyageEmbedder(cfg.VoyageAPIKey)
	if err != nil {
		log.Printf("failed to initialize voyage embedder, semantic search disabled: %v", err)
		return nil, nil
	}

	vectorIndex, err := search.NewQdrantIndex(ctx, cfg.QdrantAddress, cfg.QdrantCollection)
	if err != nil {
		log.Printf("failed to connect to qdrant, semantic search disabled: %v", err)
		return nil, nil
	}

	return embedder, vectorIndex
}

// newCrawlers builds the configured crawler set: the generic JSON-listing
// crawler when CRAWLER_GENERIC_BASE_URL is set, and the justice.gov
// site-specific HTML crawler when SITE_INGEST_ROOT_URL is set. Neither is
// required; an empty set makes the site-ingest loop a no-op pass.
func newCrawlers(cfg *config.Config) []crawler.Crawler {
	var crawlers []crawler.Crawler
	if cfg.CrawlerGenericBaseURL != "" {
		crawlers = append(crawlers, crawler.NewGenericCrawler(cfg.CrawlerGenericBaseURL))
	}
	if cfg.SiteIngestRootURL != "" {
		crawlers = append(crawlers, crawler.NewSiteCrawler(cfg.SiteIngestRootURL, crawler.DefaultExclusionRules))
	}
	return crawlers
}
