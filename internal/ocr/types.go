// Package ocr coordinates word-level text extraction over a page raster,
// dispatching to one of several pluggable backends and normalizing their
// output back into original page pixel coordinates (spec §4.4).
package ocr

import (
	"context"

	"github.com/openrecords/docindex/internal/store"
)

// PageResult is the output of a backend's extract call: word-level entries
// positioned in pixel coordinates of the image the backend was given.
type PageResult struct {
	Words      []store.WordBox
	Engine     string
}

// Backend is the capability every OCR implementation satisfies. Image is
// raw raster bytes (PNG); languages are ISO codes. Implementations return
// positions in the pixel space of the image they were handed — the
// Coordinator is responsible for inverse-mapping back to original page
// coordinates when preprocessing rescaled or rotated the input.
type Backend interface {
	Extract(ctx context.Context, image []byte, languages []string) (*PageResult, error)
	ID() string
}
