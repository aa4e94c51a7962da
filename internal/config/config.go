// Package config loads worker configuration from environment variables,
// matching a .env file loaded via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds configuration for every component of the ingestion pipeline.
type Config struct {
	// Storage
	DatabaseURL    string
	BlobBackend    string // "filesystem" or "remote"
	BlobRoot       string // filesystem backend root directory
	BlobRemoteURL  string // remote backend base URL (artifact API style upload)
	QdrantAddress  string // empty disables semantic search
	QdrantCollection string
	VoyageAPIKey   string // empty disables semantic search alongside Qdrant

	// Notifications
	RedisURL       string // empty disables page-completion pub/sub

	// Crawler sources
	CrawlerGenericBaseURL string
	SiteIngestRootURL     string

	// OCR
	OCREngine          string // tesseract|easyocr|paddle|textract|ensemble
	OCRLanguages       []string
	OCRPreprocess      bool
	OCRDeskew          bool
	OCRScales          []float64
	OCRDropConfidence  float64
	OCREnsembleBackends []string
	TesseractPath      string
	TextractURL        string
	EasyOCRURL         string
	PaddleOCRURL       string

	// Splitter
	SplitDPI int

	// Crawler / fetcher
	CrawlerRateLimitPerHostMs int
	CrawlerMaxConcurrentDownloads int

	// Worker loops
	WorkerBatchSize       int
	WorkerPollSeconds      int
	WorkerClaimTTLSeconds  int
	SiteIngestSkipExisting bool
	SiteIngestRunIntervalSeconds int

	// Search
	SearchFuzzyThreshold float64
	SearchDefaultLimit   int

	TempDir string
	NodeEnv string
}

// LoadConfig loads configuration from environment variables, optionally
// preceded by a .env file in the working directory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      getEnvOrThrow("DATABASE_URL"),
		BlobBackend:      getEnvOrDefault("BLOB_BACKEND", "filesystem"),
		BlobRoot:         getEnvOrDefault("BLOB_ROOT", "/tmp/docindex/blobs"),
		BlobRemoteURL:    getEnvOrDefault("BLOB_REMOTE_URL", ""),
		QdrantAddress:    getEnvOrDefault("QDRANT_ADDRESS", ""),
		QdrantCollection: getEnvOrDefault("QDRANT_COLLECTION", "docindex_pages"),
		VoyageAPIKey:     getEnvOrDefault("VOYAGE_API_KEY", ""),

		RedisURL: getEnvOrDefault("REDIS_URL", ""),

		CrawlerGenericBaseURL: getEnvOrDefault("CRAWLER_GENERIC_BASE_URL", ""),
		SiteIngestRootURL:     getEnvOrDefault("SITE_INGEST_ROOT_URL", ""),

		OCREngine:           getEnvOrDefault("OCR_ENGINE", "tesseract"),
		OCRLanguages:        getEnvAsListOrDefault("OCR_LANGUAGES", []string{"en"}),
		OCRPreprocess:       getEnvAsBoolOrDefault("OCR_PREPROCESS", true),
		OCRDeskew:           getEnvAsBoolOrDefault("OCR_DESKEW", true),
		OCRScales:           getEnvAsFloatListOrDefault("OCR_SCALES", []float64{1.0}),
		OCRDropConfidence:   getEnvAsFloatOrDefault("OCR_DROP_CONFIDENCE", 0.3),
		OCREnsembleBackends: getEnvAsListOrDefault("OCR_ENSEMBLE_BACKENDS", []string{"tesseract"}),
		TesseractPath:       getEnvOrDefault("TESSERACT_PATH", "/usr/bin/tesseract"),
		TextractURL:         getEnvOrDefault("TEXTRACT_URL", ""),
		EasyOCRURL:          getEnvOrDefault("EASYOCR_URL", ""),
		PaddleOCRURL:        getEnvOrDefault("PADDLEOCR_URL", ""),

		SplitDPI: getEnvAsIntOrDefault("SPLIT_DPI", 200),

		CrawlerRateLimitPerHostMs:     getEnvAsIntOrDefault("CRAWLER_RATE_LIMIT_PER_HOST_MS", 250),
		CrawlerMaxConcurrentDownloads: getEnvAsIntOrDefault("CRAWLER_MAX_CONCURRENT_DOWNLOADS", 4),

		WorkerBatchSize:              getEnvAsIntOrDefault("WORKER_BATCH_SIZE", 1),
		WorkerPollSeconds:            getEnvAsIntOrDefault("WORKER_POLL_SECONDS", 10),
		WorkerClaimTTLSeconds:        getEnvAsIntOrDefault("WORKER_CLAIM_TTL_SECONDS", 900),
		SiteIngestSkipExisting:       getEnvAsBoolOrDefault("SITE_INGEST_SKIP_EXISTING", true),
		SiteIngestRunIntervalSeconds: getEnvAsIntOrDefault("SITE_INGEST_RUN_INTERVAL_SECONDS", 600),

		SearchFuzzyThreshold: getEnvAsFloatOrDefault("SEARCH_FUZZY_THRESHOLD", 0.6),
		SearchDefaultLimit:   getEnvAsIntOrDefault("SEARCH_DEFAULT_LIMIT", 50),

		TempDir: getEnvOrDefault("TEMP_DIR", "/tmp/docindex"),
		NodeEnv: getEnvOrDefault("NODE_ENV", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values fall within supported bounds.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.BlobBackend {
	case "filesystem", "remote":
	default:
		return fmt.Errorf("BLOB_BACKEND must be 'filesystem' or 'remote', got %q", c.BlobBackend)
	}
	if c.BlobBackend == "remote" && c.BlobRemoteURL == "" {
		return fmt.Errorf("BLOB_REMOTE_URL is required when BLOB_BACKEND=remote")
	}

	switch c.OCREngine {
	case "tesseract", "easyocr", "paddle", "textract", "ensemble":
	default:
		return fmt.Errorf("OCR_ENGINE must be one of tesseract|easyocr|paddle|textract|ensemble, got %q", c.OCREngine)
	}

	if c.OCRDropConfidence < 0 || c.OCRDropConfidence > 1 {
		return fmt.Errorf("OCR_DROP_CONFIDENCE must be in [0,1], got %f", c.OCRDropConfidence)
	}

	if c.CrawlerMaxConcurrentDownloads < 1 || c.CrawlerMaxConcurrentDownloads > 100 {
		return fmt.Errorf("CRAWLER_MAX_CONCURRENT_DOWNLOADS must be between 1 and 100, got %d", c.CrawlerMaxConcurrentDownloads)
	}

	if c.WorkerBatchSize < 1 || c.WorkerBatchSize > 1000 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be between 1 and 1000, got %d", c.WorkerBatchSize)
	}

	if c.WorkerPollSeconds < 1 {
		return fmt.Errorf("WORKER_POLL_SECONDS must be positive, got %d", c.WorkerPollSeconds)
	}

	if c.WorkerClaimTTLSeconds < c.WorkerPollSeconds {
		return fmt.Errorf("WORKER_CLAIM_TTL_SECONDS must be >= WORKER_POLL_SECONDS")
	}

	if c.SearchFuzzyThreshold < 0 || c.SearchFuzzyThreshold > 1 {
		return fmt.Errorf("SEARCH_FUZZY_THRESHOLD must be in [0,1], got %f", c.SearchFuzzyThreshold)
	}

	if c.SearchDefaultLimit < 1 || c.SearchDefaultLimit > 1000 {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be between 1 and 1000, got %d", c.SearchDefaultLimit)
	}

	if c.SplitDPI < 72 || c.SplitDPI > 600 {
		return fmt.Errorf("SPLIT_DPI must be between 72 and 600, got %d", c.SplitDPI)
	}

	return nil
}

// SemanticSearchEnabled reports whether enough configuration is present to
// offer semantic search; absent either piece, search mode "semantic" must
// surface a capability_disabled error rather than silently degrading.
func (c *Config) SemanticSearchEnabled() bool {
	return c.QdrantAddress != "" && c.VoyageAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsFloatListOrDefault(key string, defaultValue []float64) []float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
