package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
	"github.com/openrecords/docindex/internal/store"
)

// httpBackend is a thin net/http JSON client shared by the easyocr-like,
// paddle-like, and textract backend variants (spec §4.4), in the shape of
// the reference's MageAgentClient: base64-encode the image, POST it, parse
// a flat word-box response. Unlike MageAgentClient this never delegates
// model *selection* to a remote service — it is one fixed backend per
// instance, matching spec §4.4's "a single deployment uses one backend".
type httpBackend struct {
	id         string
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

func newHTTPBackend(id, baseURL string) *httpBackend {
	return &httpBackend{
		id:      id,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 300 * time.Second, // spec §5: 300s deadline per OCR call
		},
		log: logging.NewLogger("ocr." + id),
	}
}

type ocrRequest struct {
	Image     string   `json:"image"`
	Languages []string `json:"languages"`
}

type ocrWordResponse struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"w"`
	Height     int     `json:"h"`
	Confidence float64 `json:"confidence"`
}

type ocrResponse struct {
	Words  []ocrWordResponse `json:"words"`
	Engine string            `json:"engine"`
}

func (b *httpBackend) ID() string { return b.id }

func (b *httpBackend) Extract(ctx context.Context, image []byte, languages []string) (*PageResult, error) {
	if b.baseURL == "" {
		return nil, errors.CapabilityDisabled(b.id)
	}

	reqBody, err := json.Marshal(ocrRequest{
		Image:     base64.StdEncoding.EncodeToString(image),
		Languages: languages,
	})
	if err != nil {
		return nil, errors.Internal("failed to marshal ocr request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/ocr", bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Internal("failed to build ocr request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransientUpstream(fmt.Sprintf("%s backend request failed", b.id), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.TransientUpstream(fmt.Sprintf("failed to read %s response", b.id), err)
	}

	if resp.StatusCode >= 500 {
		return nil, errors.TransientUpstream(fmt.Sprintf("%s backend returned %d", b.id, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.PermanentUpstream(fmt.Sprintf("%s backend returned %d: %s", b.id, resp.StatusCode, string(respBody)), nil)
	}

	var parsed ocrResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Internal(fmt.Sprintf("failed to parse %s response", b.id), err)
	}

	words := make([]store.WordBox, 0, len(parsed.Words))
	for _, w := range parsed.Words {
		words = append(words, store.WordBox{
			Text: w.Text, X: w.X, Y: w.Y, Width: w.Width, Height: w.Height, Confidence: w.Confidence,
		})
	}

	engine := parsed.Engine
	if engine == "" {
		engine = b.id
	}
	b.log.Info("extracted page", "words", len(words), "engine", engine)
	return &PageResult{Words: words, Engine: engine}, nil
}

// EasyOCRBackend delegates to an EasyOCR-compatible HTTP sidecar.
type EasyOCRBackend struct{ *httpBackend }

func NewEasyOCRBackend(baseURL string) *EasyOCRBackend {
	return &EasyOCRBackend{newHTTPBackend("easyocr", baseURL)}
}

// PaddleOCRBackend delegates to a PaddleOCR-compatible HTTP sidecar.
type PaddleOCRBackend struct{ *httpBackend }

func NewPaddleOCRBackend(baseURL string) *PaddleOCRBackend {
	return &PaddleOCRBackend{newHTTPBackend("paddle", baseURL)}
}

// TextractBackend delegates to an AWS-Textract-compatible HTTP endpoint.
// No aws-sdk-go appears anywhere in the retrieval pack (DESIGN.md), so this
// is a plain JSON client rather than an AWS SDK integration.
type TextractBackend struct{ *httpBackend }

func NewTextractBackend(baseURL string) *TextractBackend {
	return &TextractBackend{newHTTPBackend("textract", baseURL)}
}
