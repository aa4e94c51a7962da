// Package store persists the Document/ImagePage/OCRText/Entity/SearchIndex
// data model over PostgreSQL, with row-level claim semantics for the worker
// loops.
package store

import "time"

// OCRState is the lifecycle state of an ImagePage.
type OCRState string

const (
	OCRStatePending    OCRState = "pending"
	OCRStateInProgress OCRState = "in_progress"
	OCRStateDone       OCRState = "done"
	OCRStateFailed     OCRState = "failed"
)

// Document is an originally uploaded or downloaded file, uniquely identified
// by a content hash over its original bytes.
type Document struct {
	DocumentID string
	SourceURL  string
	FileName   string
	FileType   string
	FileSize   int64
	PageCount  int
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}

// ImagePage is one raster page derived from a Document.
type ImagePage struct {
	PageID      string
	DocumentID  string
	PageNumber  int
	ImagePath   string
	Width       int
	Height      int
	OCRState    OCRState
	FailReason  map[string]interface{}
	Attempts    int
	ClaimedAt   *time.Time
	UpdatedAt   time.Time
}

// WordBox is a single OCR word with its bounding box in original page pixel
// coordinates and the engine's confidence for that word.
type WordBox struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"w"`
	Height     int     `json:"h"`
	Confidence float64 `json:"confidence"`
}

// BBox is a rectangular bounding box in original page pixel coordinates.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// OCRText is the extracted text and positional metadata for one ImagePage.
type OCRText struct {
	OCRID          string
	PageID         string
	DocumentID     string
	RawText        string
	NormalizedText string
	WordBoxes      []WordBox
	PageBBox       BBox
	PageConfidence float64
	Engine         string
	CreatedAt      time.Time
}

// EntityKind enumerates the entity types detected by the entity extractor.
type EntityKind string

const (
	EntityName    EntityKind = "name"
	EntityEmail   EntityKind = "email"
	EntityPhone   EntityKind = "phone"
	EntityDate    EntityKind = "date"
	EntityKeyword EntityKind = "keyword"
)

// Entity is a named entity detected within an OCRText's normalized text.
type Entity struct {
	EntityID        string
	OCRID           string
	DocumentID      string
	EntityType      EntityKind
	EntityValue     string
	NormalizedValue *string
	BBox            *BBox
	Confidence      float64
}

// SearchIndex is the tokenized, lowercased representation of an OCRText used
// by keyword/phrase/fuzzy search.
type SearchIndex struct {
	IndexID        string
	OCRID          string
	SearchableText string
	Tokens         []string
}
