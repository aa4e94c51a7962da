package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

// VoyageEmbedder produces voyage-3 (1024-dimension) embeddings for semantic
// search queries.
type VoyageEmbedder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

const voyageEmbeddingDimensions = 1024

type voyageEmbeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type voyageEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewVoyageEmbedder builds an embedder against VoyageAI's embeddings
// endpoint. apiKey must be non-empty.
func NewVoyageEmbedder(apiKey string) (*VoyageEmbedder, error) {
	if apiKey == "" {
		return nil, errors.InvalidArgument("voyage api key is required")
	}
	return &VoyageEmbedder{
		apiKey:     apiKey,
		baseURL:    "https://api.voyageai.com/v1/embeddings",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.NewLogger("search.embedder"),
	}, nil
}

// Embed returns a 1024-dimension embedding for text, truncating overlong
// input to VoyageAI's effective token budget.
func (e *VoyageEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.InvalidArgument("text is required")
	}

	const maxChars = 16000
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	body, err := json.Marshal(voyageEmbeddingRequest{Input: text, Model: "voyage-3"})
	if err != nil {
		return nil, errors.Internal("failed to marshal voyage request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal("failed to build voyage request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransientUpstream("voyage embedding request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.TransientUpstream("failed to read voyage response", err)
	}

	if resp.StatusCode >= 500 {
		return nil, errors.TransientUpstream(fmt.Sprintf("voyage returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.PermanentUpstream(fmt.Sprintf("voyage returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed voyageEmbeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Internal("failed to parse voyage response", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) != voyageEmbeddingDimensions {
		return nil, errors.Internal(fmt.Sprintf("voyage returned unexpected embedding shape (%d entries)", len(parsed.Data)), nil)
	}

	e.log.Info("generated query embedding", "dimensions", voyageEmbeddingDimensions)
	return parsed.Data[0].Embedding, nil
}
