package splitter

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestPngDimensionsDecodesPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 37, 21))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture png: %v", err)
	}

	w, h, err := pngDimensions(buf.Bytes())
	if err != nil {
		t.Fatalf("pngDimensions() error = %v", err)
	}
	if w != 37 || h != 21 {
		t.Errorf("pngDimensions() = (%d, %d), want (37, 21)", w, h)
	}
}

func TestPngDimensionsDecodesJPEG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x + y)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode fixture jpeg: %v", err)
	}

	w, h, err := pngDimensions(buf.Bytes())
	if err != nil {
		t.Fatalf("pngDimensions() error = %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("pngDimensions() = (%d, %d), want (64, 48)", w, h)
	}
}

func TestPngDimensionsRejectsGarbage(t *testing.T) {
	if _, _, err := pngDimensions([]byte("not an image")); err == nil {
		t.Error("expected an error decoding non-image bytes, got nil")
	}
}
