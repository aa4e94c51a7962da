package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/store"
)

// TesseractBackend wraps gosseract, the same Tesseract binding the
// reference repo uses for its offline OCR fallback, generalized here into
// the primary `tesseract` backend variant with word-level bounding boxes
// recovered via Tesseract's layout analysis (gosseract.RIL_WORD) rather
// than plain-text extraction.
type TesseractBackend struct {
	tesseractPath string
}

// NewTesseractBackend builds a TesseractBackend. tesseractPath is stored on
// the backend but Extract does not use it; gosseract locates Tesseract and
// its language data through its own defaults.
func NewTesseractBackend(tesseractPath string) *TesseractBackend {
	return &TesseractBackend{tesseractPath: tesseractPath}
}

func (t *TesseractBackend) ID() string { return "tesseract" }

func (t *TesseractBackend) Extract(ctx context.Context, image []byte, languages []string) (*PageResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(languages) > 0 {
		if err := client.SetLanguage(strings.Join(languages, "+")); err != nil {
			return nil, errors.Internal("failed to set tesseract languages", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, errors.Internal("failed to load image into tesseract", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, errors.TransientUpstream(fmt.Sprintf("tesseract extraction failed: %v", err), err)
	}

	words := make([]store.WordBox, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, store.WordBox{
			Text:       text,
			X:          b.Box.Min.X,
			Y:          b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
			Confidence: b.Confidence / 100.0,
		})
	}

	return &PageResult{Words: words, Engine: t.ID()}, nil
}
