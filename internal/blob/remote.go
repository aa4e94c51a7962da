package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

// RemoteStore is a Store backed by an HTTP artifact API: PUT uploads via
// multipart form, GET downloads by key, URL asks the API for a shareable
// link. Adapted from the reference's artifact upload client, generalized
// from a job-scoped upload endpoint to the plain key/value Store contract.
type RemoteStore struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewRemoteStore creates a Store that proxies blob operations to baseURL.
func NewRemoteStore(baseURL string) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		logger: logging.NewLogger("blob.remote"),
	}
}

func (s *RemoteStore) Put(ctx context.Context, key string, data []byte) error {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return errors.InvalidArgument(fmt.Sprintf("invalid blob key length: %d", len(key)))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", key)
	if err != nil {
		return fmt.Errorf("failed to create form file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write blob data to form: %w", err)
	}
	if err := writer.WriteField("key", key); err != nil {
		return fmt.Errorf("failed to write key field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", s.baseURL+"/blobs/"+url.PathEscape(key), &body)
	if err != nil {
		return fmt.Errorf("failed to create blob upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.TransientUpstream("blob upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.PermanentUpstream(fmt.Sprintf("blob upload returned HTTP %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	s.logger.Info("blob uploaded", "key", key, "bytes", len(data))
	return nil
}

func (s *RemoteStore) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/blobs/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransientUpstream("blob download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NotFound("blob", key)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.PermanentUpstream(fmt.Sprintf("blob download returned HTTP %d", resp.StatusCode), nil)
	}

	return io.ReadAll(resp.Body)
}

func (s *RemoteStore) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", s.baseURL+"/blobs/"+url.PathEscape(key), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create blob head request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, errors.TransientUpstream("blob exists check failed", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *RemoteStore) URL(ctx context.Context, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/blobs/"+url.PathEscape(key)+"/url", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create blob url request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", errors.TransientUpstream("blob url request failed", err)
	}
	defer resp.Body.Close()

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse blob url response: %w", err)
	}
	return result.URL, nil
}

func (s *RemoteStore) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", s.baseURL+"/blobs/"+url.PathEscape(key), nil)
	if err != nil {
		return fmt.Errorf("failed to create blob delete request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.TransientUpstream("blob delete request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return errors.PermanentUpstream(fmt.Sprintf("blob delete returned HTTP %d", resp.StatusCode), nil)
	}
	return nil
}
