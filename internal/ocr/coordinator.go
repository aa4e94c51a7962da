package ocr

import (
	"bytes"
	"context"
	"image"
	"math"
	"time"

	"github.com/openrecords/docindex/internal/config"
	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
	"github.com/openrecords/docindex/internal/store"
)

// Coordinator drives a single configured Backend over a page raster,
// applying the preprocessing pipeline and inverse-mapping word boxes back
// to original page pixel coordinates (spec §4.4).
type Coordinator struct {
	backend Backend
	cfg     *config.Config
	log     *logging.Logger
}

// NewCoordinator builds a Coordinator around backend, the single OCR
// implementation selected for this deployment (spec §4.4: "a single
// deployment uses one backend").
func NewCoordinator(backend Backend, cfg *config.Config) *Coordinator {
	return &Coordinator{backend: backend, cfg: cfg, log: logging.NewLogger("ocr")}
}

// Process runs the full per-page pipeline of spec §4.4 steps 1-4: load,
// preprocess, call the backend across every configured scale, merge
// overlapping multi-scale detections, and compute page_confidence. It does
// not write any rows; the caller (worker.PendingPages) owns the
// transactional write of step 5.
func (c *Coordinator) Process(ctx context.Context, imageBytes []byte, originalWidth, originalHeight int) (*store.OCRText, error) {
	decoded, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, errors.PermanentUpstream("failed to decode page image", err)
	}

	candidates, err := buildCandidates(decoded, c.cfg)
	if err != nil {
		return nil, errors.Internal("failed to build preprocessing candidates", err)
	}

	var perScale [][]store.WordBox
	for _, cand := range candidates {
		result, err := c.backend.Extract(ctx, cand.png, c.cfg.OCRLanguages)
		if err != nil {
			return nil, classifyBackendError(err)
		}
		mapped := make([]store.WordBox, 0, len(result.Words))
		for _, w := range result.Words {
			mapped = append(mapped, inverseMap(w, cand, originalWidth, originalHeight))
		}
		perScale = append(perScale, mapped)
	}

	merged := mergeScales(perScale)

	var rawText string
	for i, w := range merged {
		if i > 0 {
			rawText += " "
		}
		rawText += w.Text
	}

	return &store.OCRText{
		RawText:        rawText,
		WordBoxes:      merged,
		PageBBox:       enclosingBBox(merged, originalWidth, originalHeight),
		PageConfidence: weightedConfidence(merged),
		Engine:         c.backend.ID(),
		CreatedAt:      time.Now(),
	}, nil
}

func classifyBackendError(err error) error {
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.TransientUpstream("ocr backend call failed", err)
}

// inverseMap maps a word box detected in preprocessed/scaled image space
// back to the coordinate space of the original page raster (spec §4.4
// step 3). Rotation during deskew is approximated by rotating the box
// center about the preprocessed image's own center; scale is undone by
// dividing by the candidate's scale factor.
func inverseMap(w store.WordBox, cand preprocessed, originalWidth, originalHeight int) store.WordBox {
	x, y := float64(w.X), float64(w.Y)
	cx, cy := x+float64(w.Width)/2, y+float64(w.Height)/2

	if cand.angle != 0 {
		rad := -cand.angle * math.Pi / 180
		ncx, ncy := float64(cand.width)/2, float64(cand.height)/2
		dx, dy := cx-ncx, cy-ncy
		cos, sin := math.Cos(rad), math.Sin(rad)
		cx = dx*cos - dy*sin + ncx
		cy = dx*sin + dy*cos + ncy
	}

	scale := cand.scale
	if scale == 0 {
		scale = 1
	}
	origX := (cx - float64(w.Width)/2) / scale
	origY := (cy - float64(w.Height)/2) / scale
	origW := float64(w.Width) / scale
	origH := float64(w.Height) / scale

	out := store.WordBox{
		Text:       w.Text,
		X:          clampInt(int(math.Round(origX)), 0, originalWidth),
		Y:          clampInt(int(math.Round(origY)), 0, originalHeight),
		Width:      int(math.Round(origW)),
		Height:     int(math.Round(origH)),
		Confidence: w.Confidence,
	}
	if out.X+out.Width > originalWidth {
		out.Width = originalWidth - out.X
	}
	if out.Y+out.Height > originalHeight {
		out.Height = originalHeight - out.Y
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mergeScales combines word boxes detected at different scales by keeping
// the higher-confidence word for any pair of overlapping boxes with
// IOU >= 0.6 (spec §4.4 step 2); unmatched boxes pass through unchanged.
func mergeScales(perScale [][]store.WordBox) []store.WordBox {
	if len(perScale) == 0 {
		return nil
	}
	merged := append([]store.WordBox(nil), perScale[0]...)
	for _, scaleWords := range perScale[1:] {
		for _, w := range scaleWords {
			bestIdx := -1
			bestIOU := 0.0
			for i, m := range merged {
				iou := boxIOU(w, m)
				if iou > bestIOU {
					bestIOU = iou
					bestIdx = i
				}
			}
			if bestIdx >= 0 && bestIOU >= 0.6 {
				if w.Confidence > merged[bestIdx].Confidence {
					merged[bestIdx] = w
				}
				continue
			}
			merged = append(merged, w)
		}
	}
	return merged
}

func boxIOU(a, b store.WordBox) float64 {
	ax1, ay1, ax2, ay2 := a.X, a.Y, a.X+a.Width, a.Y+a.Height
	bx1, by1, bx2, by2 := b.X, b.Y, b.X+b.Width, b.Y+b.Height

	ix1, iy1 := maxInt(ax1, bx1), maxInt(ay1, by1)
	ix2, iy2 := minInt(ax2, bx2), minInt(ay2, by2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := float64(iw * ih)
	union := float64(a.Width*a.Height+b.Width*b.Height) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// weightedConfidence computes page_confidence as the character-length
// weighted mean of word confidences (spec §3, §4.4 step 4); empty pages
// yield 0.
func weightedConfidence(words []store.WordBox) float64 {
	var totalWeight, sum float64
	for _, w := range words {
		weight := float64(len(w.Text))
		if weight == 0 {
			weight = 1
		}
		sum += w.Confidence * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

// enclosingBBox returns the minimum rectangle covering every word box,
// clamped to the page dimensions (spec §3 OCRText.page bbox).
func enclosingBBox(words []store.WordBox, width, height int) store.BBox {
	if len(words) == 0 {
		return store.BBox{}
	}
	minX, minY := width, height
	maxX, maxY := 0, 0
	for _, w := range words {
		if w.X < minX {
			minX = w.X
		}
		if w.Y < minY {
			minY = w.Y
		}
		if w.X+w.Width > maxX {
			maxX = w.X + w.Width
		}
		if w.Y+w.Height > maxY {
			maxY = w.Y + w.Height
		}
	}
	if minX > maxX {
		minX = maxX
	}
	if minY > maxY {
		minY = maxY
	}
	return store.BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
