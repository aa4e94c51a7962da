package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/openrecords/docindex/internal/config"
)

// preprocessed is one candidate image handed to the backend: the pixel
// bytes plus the affine parameters needed to map a detected word box back
// into the coordinate space of the original page (spec §4.4 step 3).
type preprocessed struct {
	png    []byte
	scale  float64 // backend pixel coords / original pixel coords
	angle  float64 // degrees the image was rotated before encoding
	width  int
	height int
}

// buildCandidates applies the configured preprocessing stage and returns
// one candidate per configured scale (spec §4.4 step 2, §6.6 ocr.scales).
// With preprocessing disabled and a single 1.0 scale, the one candidate is
// the original image unchanged (re-encoded as PNG).
func buildCandidates(original image.Image, cfg *config.Config) ([]preprocessed, error) {
	img := original

	angle := 0.0
	if cfg.OCRPreprocess {
		img = toGrayscale(img)
		img = normalizeContrast(img)
		img = denoise(img)
		if cfg.OCRDeskew {
			angle = detectSkewAngle(img)
			if angle != 0 {
				img = rotate(img, angle)
			}
		}
	}

	scales := cfg.OCRScales
	if len(scales) == 0 {
		scales = []float64{1.0}
	}

	out := make([]preprocessed, 0, len(scales))
	for _, s := range scales {
		scaled := img
		if s != 1.0 {
			scaled = resize(img, s)
		}
		buf := new(bytes.Buffer)
		if err := png.Encode(buf, scaled); err != nil {
			return nil, err
		}
		b := scaled.Bounds()
		out = append(out, preprocessed{
			png:    buf.Bytes(),
			scale:  s,
			angle:  angle,
			width:  b.Dx(),
			height: b.Dy(),
		})
	}
	return out, nil
}

func toGrayscale(img image.Image) image.Image {
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// normalizeContrast applies a histogram-stretch approximation of CLAHE:
// it rescales the observed intensity range to [0,255] so faint scans gain
// usable contrast without a full tiled-equalization implementation.
func normalizeContrast(img image.Image) image.Image {
	b := img.Bounds()
	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if g < lo {
				lo = g
			}
			if g > hi {
				hi = g
			}
		}
	}
	if hi <= lo {
		return img
	}
	out := image.NewGray(b)
	scale := 255.0 / float64(hi-lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			v := float64(g-lo) * scale
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}

// denoise applies a 3x3 median filter, the simplest effective
// salt-and-pepper denoiser for scan artifacts.
func denoise(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewGray(b)
	var window [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := x+dx, y+dy
					if px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
						px, py = x, y
					}
					window[n] = color.GrayModel.Convert(img.At(px, py)).(color.Gray).Y
					n++
				}
			}
			out.SetGray(x, y, color.Gray{Y: median9(window)})
		}
	}
	return out
}

func median9(w [9]uint8) uint8 {
	sorted := w
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[4]
}

// detectSkewAngle searches ±15 degrees at 0.5 degree steps and returns the
// angle whose horizontal line-projection has the highest variance, per
// spec §4.4 step 2.
func detectSkewAngle(img image.Image) float64 {
	bestAngle := 0.0
	bestVariance := -1.0
	for a := -15.0; a <= 15.0; a += 0.5 {
		rotated := rotate(img, a)
		v := projectionVariance(rotated)
		if v > bestVariance {
			bestVariance = v
			bestAngle = a
		}
	}
	return bestAngle
}

// projectionVariance sums dark-pixel counts per row and returns the
// variance of that row histogram; a well-deskewed page of text lines has
// sharp peaks (high variance) versus a skewed page's smeared histogram.
func projectionVariance(img image.Image) float64 {
	b := img.Bounds()
	h := b.Dy()
	if h == 0 {
		return 0
	}
	counts := make([]float64, h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := 0.0
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if g < 128 {
				row++
			}
		}
		counts[y-b.Min.Y] = row
	}
	mean := 0.0
	for _, c := range counts {
		mean += c
	}
	mean /= float64(h)
	variance := 0.0
	for _, c := range counts {
		d := c - mean
		variance += d * d
	}
	return variance / float64(h)
}

// rotate rotates img by angleDegrees about its center, using
// nearest-neighbor sampling and expanding the canvas to fit the rotated
// bounds so no content is clipped.
func rotate(img image.Image, angleDegrees float64) image.Image {
	if angleDegrees == 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rad := angleDegrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	newW := int(math.Abs(float64(w)*cos) + math.Abs(float64(h)*sin))
	newH := int(math.Abs(float64(w)*sin) + math.Abs(float64(h)*cos))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	out := image.NewGray(image.Rect(0, 0, newW, newH))
	for i := range out.Pix {
		out.Pix[i] = 255
	}

	cx, cy := float64(w)/2, float64(h)/2
	ncx, ncy := float64(newW)/2, float64(newH)/2

	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			dx := float64(x) - ncx
			dy := float64(y) - ncy
			srcX := dx*cos + dy*sin + cx
			srcY := -dx*sin + dy*cos + cy
			sx, sy := int(math.Round(srcX))+b.Min.X, int(math.Round(srcY))+b.Min.Y
			if sx >= b.Min.X && sx < b.Max.X && sy >= b.Min.Y && sy < b.Max.Y {
				g := color.GrayModel.Convert(img.At(sx, sy)).(color.Gray).Y
				out.SetGray(x, y, color.Gray{Y: g})
			}
		}
	}
	return out
}

// resize performs nearest-neighbor scaling by factor, used for the
// multi-scale upsampling pass (spec §4.4 step 2).
func resize(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	newW := int(float64(b.Dx()) * factor)
	newH := int(float64(b.Dy()) * factor)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	out := image.NewGray(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		sy := int(float64(y)/factor) + b.Min.Y
		if sy >= b.Max.Y {
			sy = b.Max.Y - 1
		}
		for x := 0; x < newW; x++ {
			sx := int(float64(x)/factor) + b.Min.X
			if sx >= b.Max.X {
				sx = b.Max.X - 1
			}
			g := color.GrayModel.Convert(img.At(sx, sy)).(color.Gray).Y
			out.SetGray(x, y, color.Gray{Y: g})
		}
	}
	return out
}
