package config

import "testing"

func baseValidConfig() *Config {
	return &Config{
		DatabaseURL:                   "postgres://localhost/docindex",
		BlobBackend:                   "filesystem",
		OCREngine:                     "tesseract",
		OCRDropConfidence:             0.3,
		CrawlerMaxConcurrentDownloads: 4,
		WorkerBatchSize:               1,
		WorkerPollSeconds:             10,
		WorkerClaimTTLSeconds:         900,
		SearchFuzzyThreshold:          0.6,
		SearchDefaultLimit:            50,
		SplitDPI:                      200,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, true},
		{"bad blob backend", func(c *Config) { c.BlobBackend = "s3" }, true},
		{"remote backend needs url", func(c *Config) { c.BlobBackend = "remote" }, true},
		{"bad ocr engine", func(c *Config) { c.OCREngine = "magic" }, true},
		{"drop confidence out of range", func(c *Config) { c.OCRDropConfidence = 1.5 }, true},
		{"zero concurrent downloads", func(c *Config) { c.CrawlerMaxConcurrentDownloads = 0 }, true},
		{"batch size too large", func(c *Config) { c.WorkerBatchSize = 5000 }, true},
		{"claim ttl shorter than poll", func(c *Config) { c.WorkerClaimTTLSeconds = 1 }, true},
		{"fuzzy threshold out of range", func(c *Config) { c.SearchFuzzyThreshold = -0.1 }, true},
		{"default limit zero", func(c *Config) { c.SearchDefaultLimit = 0 }, true},
		{"dpi too low", func(c *Config) { c.SplitDPI = 10 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseValidConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestSemanticSearchEnabled(t *testing.T) {
	cfg := baseValidConfig()
	if cfg.SemanticSearchEnabled() {
		t.Fatalf("expected semantic search disabled with no Qdrant/Voyage config")
	}

	cfg.QdrantAddress = "localhost:6334"
	cfg.VoyageAPIKey = "key"
	if !cfg.SemanticSearchEnabled() {
		t.Fatalf("expected semantic search enabled once Qdrant and Voyage are configured")
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	t.Setenv("DOCINDEX_TEST_LIST", "en, fr ,de")
	got := getEnvAsListOrDefault("DOCINDEX_TEST_LIST", []string{"en"})
	want := []string{"en", "fr", "de"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
