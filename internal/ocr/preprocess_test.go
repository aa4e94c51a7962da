package ocr

import (
	"image"
	"image/color"
	"testing"
)

func TestMedian9(t *testing.T) {
	cases := []struct {
		window [9]uint8
		want   uint8
	}{
		{[9]uint8{1, 2, 3, 4, 5, 6, 7, 8, 9}, 5},
		{[9]uint8{9, 9, 9, 9, 9, 9, 9, 9, 9}, 9},
		{[9]uint8{0, 0, 0, 0, 255, 255, 255, 255, 255}, 255},
	}
	for _, tc := range cases {
		if got := median9(tc.window); got != tc.want {
			t.Errorf("median9(%v) = %d, want %d", tc.window, got, tc.want)
		}
	}
}

func TestToGrayscalePreservesDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 12, 8))
	gray := toGrayscale(src)
	if gray.Bounds() != src.Bounds() {
		t.Errorf("toGrayscale() bounds = %v, want %v", gray.Bounds(), src.Bounds())
	}
}

func TestNormalizeContrastStretchesRange(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.SetGray(0, 0, color.Gray{Y: 100})
	img.SetGray(1, 0, color.Gray{Y: 110})
	img.SetGray(2, 0, color.Gray{Y: 120})
	img.SetGray(3, 0, color.Gray{Y: 150})

	out := normalizeContrast(img).(*image.Gray)
	if got := out.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("darkest pixel after stretch = %d, want 0", got)
	}
	if got := out.GrayAt(3, 0).Y; got != 255 {
		t.Errorf("brightest pixel after stretch = %d, want 255", got)
	}
}

func TestNormalizeContrastFlatImageIsUnchanged(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := 0; i < 9; i++ {
		img.Pix[i] = 128
	}
	out := normalizeContrast(img)
	if out != image.Image(img) {
		t.Error("expected a flat (zero-range) image to be returned unchanged")
	}
}

func TestResizeScalesDimensions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 20))
	out := resize(img, 2.0)
	b := out.Bounds()
	if b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("resize(2.0) dimensions = %dx%d, want 20x40", b.Dx(), b.Dy())
	}

	shrunk := resize(img, 0.5)
	sb := shrunk.Bounds()
	if sb.Dx() != 5 || sb.Dy() != 10 {
		t.Errorf("resize(0.5) dimensions = %dx%d, want 5x10", sb.Dx(), sb.Dy())
	}
}

func TestResizeNeverProducesZeroDimensions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	out := resize(img, 0.01)
	b := out.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		t.Errorf("resize() produced a degenerate image: %dx%d", b.Dx(), b.Dy())
	}
}
