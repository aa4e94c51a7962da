package ocr

import (
	"fmt"

	"github.com/openrecords/docindex/internal/config"
)

// NewBackend selects and constructs the single Backend named by
// cfg.OCREngine (spec §4.4, §6.6 ocr.engine). The ensemble variant builds
// one sub-backend per entry in cfg.OCREnsembleBackends.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.OCREngine {
	case "tesseract":
		return NewTesseractBackend(cfg.TesseractPath), nil
	case "easyocr":
		return NewEasyOCRBackend(cfg.EasyOCRURL), nil
	case "paddle":
		return NewPaddleOCRBackend(cfg.PaddleOCRURL), nil
	case "textract":
		return NewTextractBackend(cfg.TextractURL), nil
	case "ensemble":
		backends := make([]Backend, 0, len(cfg.OCREnsembleBackends))
		for _, name := range cfg.OCREnsembleBackends {
			b, err := namedBackend(name, cfg)
			if err != nil {
				return nil, err
			}
			backends = append(backends, b)
		}
		return NewEnsembleBackend(backends, cfg.OCRDropConfidence), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.OCREngine)
	}
}

func namedBackend(name string, cfg *config.Config) (Backend, error) {
	switch name {
	case "tesseract":
		return NewTesseractBackend(cfg.TesseractPath), nil
	case "easyocr":
		return NewEasyOCRBackend(cfg.EasyOCRURL), nil
	case "paddle":
		return NewPaddleOCRBackend(cfg.PaddleOCRURL), nil
	case "textract":
		return NewTextractBackend(cfg.TextractURL), nil
	default:
		return nil, fmt.Errorf("unknown ensemble sub-backend %q", name)
	}
}
