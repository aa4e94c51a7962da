package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/lib/pq"
)

// Store wraps the PostgreSQL connection pool backing the ingestion pipeline.
type Store struct {
	db *sql.DB
}

// New opens a connection pool against databaseURL and verifies connectivity.
func New(databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

// Migrate creates the schema and required indexes (spec §6.2) if they do not
// already exist.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
CREATE SCHEMA IF NOT EXISTS docindex;

CREATE TABLE IF NOT EXISTS docindex.documents (
	document_id TEXT PRIMARY KEY,
	source_url  TEXT NOT NULL DEFAULT '',
	file_name   TEXT NOT NULL,
	file_type   TEXT NOT NULL,
	file_size   BIGINT NOT NULL DEFAULT 0,
	page_count  INTEGER NOT NULL DEFAULT 0,
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_documents_source_url ON docindex.documents(source_url);

CREATE TABLE IF NOT EXISTS docindex.image_pages (
	page_id     TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES docindex.documents(document_id),
	page_number INTEGER NOT NULL,
	image_path  TEXT NOT NULL,
	width       INTEGER NOT NULL DEFAULT 0,
	height      INTEGER NOT NULL DEFAULT 0,
	ocr_state   TEXT NOT NULL DEFAULT 'pending',
	fail_reason JSONB,
	attempts    INTEGER NOT NULL DEFAULT 0,
	claimed_at  TIMESTAMPTZ,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_image_pages_doc_pagenum ON docindex.image_pages(document_id, page_number);
CREATE INDEX IF NOT EXISTS idx_image_pages_pending_inprogress ON docindex.image_pages(ocr_state) WHERE ocr_state IN ('pending', 'in_progress');

CREATE TABLE IF NOT EXISTS docindex.ocr_texts (
	ocr_id          TEXT PRIMARY KEY,
	page_id         TEXT NOT NULL UNIQUE REFERENCES docindex.image_pages(page_id),
	document_id     TEXT NOT NULL REFERENCES docindex.documents(document_id),
	raw_text        TEXT NOT NULL DEFAULT '',
	normalized_text TEXT NOT NULL DEFAULT '',
	word_boxes      JSONB NOT NULL DEFAULT '[]'::jsonb,
	page_bbox_x     INTEGER NOT NULL DEFAULT 0,
	page_bbox_y     INTEGER NOT NULL DEFAULT 0,
	page_bbox_w     INTEGER NOT NULL DEFAULT 0,
	page_bbox_h     INTEGER NOT NULL DEFAULT 0,
	page_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	engine          TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ocr_texts_document_id ON docindex.ocr_texts(document_id);

CREATE TABLE IF NOT EXISTS docindex.entities (
	entity_id        TEXT PRIMARY KEY,
	ocr_id           TEXT NOT NULL REFERENCES docindex.ocr_texts(ocr_id),
	document_id      TEXT NOT NULL,
	entity_type      TEXT NOT NULL,
	entity_value     TEXT NOT NULL,
	normalized_value TEXT,
	bbox_x           INTEGER,
	bbox_y           INTEGER,
	bbox_w           INTEGER,
	bbox_h           INTEGER,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entities_ocr_id ON docindex.entities(ocr_id);
CREATE INDEX IF NOT EXISTS idx_entities_type_value ON docindex.entities(entity_type, normalized_value);

CREATE TABLE IF NOT EXISTS docindex.search_index (
	index_id        TEXT PRIMARY KEY,
	ocr_id          TEXT NOT NULL UNIQUE REFERENCES docindex.ocr_texts(ocr_id),
	searchable_text TEXT NOT NULL DEFAULT '',
	tokens          JSONB NOT NULL DEFAULT '[]'::jsonb
);
`
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// UpsertDocument inserts a Document row, or returns the existing row when one
// already exists for the same document_id (content-hash collision on
// identical bytes, per spec §3 invariants).
func (s *Store) UpsertDocument(ctx context.Context, doc *Document) (*Document, bool, error) {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal document metadata: %w", err)
	}

	const query = `
		INSERT INTO docindex.documents (document_id, source_url, file_name, file_type, file_size, page_count, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (document_id) DO NOTHING
		RETURNING created_at
	`
	var createdAt time.Time
	err = s.db.QueryRowContext(ctx, query, doc.DocumentID, doc.SourceURL, doc.FileName, doc.FileType, doc.FileSize, doc.PageCount, metadataJSON).Scan(&createdAt)
	if err == sql.ErrNoRows {
		existing, getErr := s.GetDocument(ctx, doc.DocumentID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert document: %w", err)
	}
	doc.CreatedAt = createdAt
	return doc, true, nil
}

func (s *Store) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	const query = `
		SELECT document_id, source_url, file_name, file_type, file_size, page_count, metadata, created_at
		FROM docindex.documents WHERE document_id = $1
	`
	var doc Document
	var metadataJSON []byte
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&doc.DocumentID, &doc.SourceURL, &doc.FileName, &doc.FileType, &doc.FileSize, &doc.PageCount, &metadataJSON, &doc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document metadata: %w", err)
		}
	}
	return &doc, nil
}

func (s *Store) UpdateDocumentPageCount(ctx context.Context, documentID string, pageCount int) error {
	const query = `UPDATE docindex.documents SET page_count = $2 WHERE document_id = $1`
	_, err := s.db.ExecContext(ctx, query, documentID, pageCount)
	if err != nil {
		return fmt.Errorf("failed to update page count: %w", err)
	}
	return nil
}

// InsertImagePages inserts every page for a document in one transaction. Page
// numbers must be contiguous from 1..len(pages); the caller is responsible
// for that ordering (spec §4.3 invariant).
func (s *Store) InsertImagePages(ctx context.Context, pages []*ImagePage) error {
	if len(pages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO docindex.image_pages (page_id, document_id, page_number, image_path, width, height, ocr_state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', NOW())
		ON CONFLICT (page_id) DO NOTHING
	`
	for _, p := range pages {
		if _, err := tx.ExecContext(ctx, query, p.PageID, p.DocumentID, p.PageNumber, p.ImagePath, p.Width, p.Height); err != nil {
			return fmt.Errorf("failed to insert image page %s: %w", p.PageID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetImagePage(ctx context.Context, pageID string) (*ImagePage, error) {
	const query = `
		SELECT page_id, document_id, page_number, image_path, width, height, ocr_state, fail_reason, attempts, claimed_at, updated_at
		FROM docindex.image_pages WHERE page_id = $1
	`
	return s.scanImagePage(s.db.QueryRowContext(ctx, query, pageID))
}

func (s *Store) scanImagePage(row *sql.Row) (*ImagePage, error) {
	var p ImagePage
	var state string
	var failReasonJSON []byte
	var claimedAt sql.NullTime

	err := row.Scan(&p.PageID, &p.DocumentID, &p.PageNumber, &p.ImagePath, &p.Width, &p.Height, &state, &failReasonJSON, &p.Attempts, &claimedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image page not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image page: %w", err)
	}
	p.OCRState = OCRState(state)
	if claimedAt.Valid {
		t := claimedAt.Time
		p.ClaimedAt = &t
	}
	if len(failReasonJSON) > 0 {
		_ = json.Unmarshal(failReasonJSON, &p.FailReason)
	}
	return &p, nil
}

// ClaimPendingPages atomically transitions up to batchSize pending pages to
// in_progress and returns them, using SELECT ... FOR UPDATE SKIP LOCKED so
// multiple worker processes never claim the same page (spec §5, §9).
func (s *Store) ClaimPendingPages(ctx context.Context, batchSize int) ([]*ImagePage, error) {
	const query = `
		UPDATE docindex.image_pages
		SET ocr_state = 'in_progress', claimed_at = NOW(), updated_at = NOW()
		WHERE page_id IN (
			SELECT page_id FROM docindex.image_pages
			WHERE ocr_state = 'pending'
			ORDER BY document_id, page_number
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		RETURNING page_id, document_id, page_number, image_path, width, height, ocr_state, fail_reason, attempts, claimed_at, updated_at
	`
	rows, err := s.db.QueryContext(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending pages: %w", err)
	}
	defer rows.Close()

	var claimed []*ImagePage
	for rows.Next() {
		var p ImagePage
		var state string
		var failReasonJSON []byte
		var claimedAt sql.NullTime
		if err := rows.Scan(&p.PageID, &p.DocumentID, &p.PageNumber, &p.ImagePath, &p.Width, &p.Height, &state, &failReasonJSON, &p.Attempts, &claimedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claimed page: %w", err)
		}
		p.OCRState = OCRState(state)
		if claimedAt.Valid {
			t := claimedAt.Time
			p.ClaimedAt = &t
		}
		claimed = append(claimed, &p)
	}
	return claimed, rows.Err()
}

// ReapStuckClaims returns in_progress pages claimed longer than ttl ago back
// to pending, for worker processes that died mid-claim.
func (s *Store) ReapStuckClaims(ctx context.Context, ttl time.Duration) (int64, error) {
	const query = `
		UPDATE docindex.image_pages
		SET ocr_state = 'pending', claimed_at = NULL, updated_at = NOW()
		WHERE ocr_state = 'in_progress' AND updated_at < NOW() - ($1 * INTERVAL '1 second')
	`
	res, err := s.db.ExecContext(ctx, query, ttl.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to reap stuck claims: %w", err)
	}
	return res.RowsAffected()
}

// ReleasePage returns a claimed page to pending without counting it as a
// failed attempt (used on cancellation, spec §5).
func (s *Store) ReleasePage(ctx context.Context, pageID string) error {
	const query = `
		UPDATE docindex.image_pages
		SET ocr_state = 'pending', claimed_at = NULL, updated_at = NOW()
		WHERE page_id = $1 AND ocr_state = 'in_progress'
	`
	_, err := s.db.ExecContext(ctx, query, pageID)
	return err
}

// RetryOrFailPage records a transient failure. After 5 attempts the page
// transitions to failed with the reason recorded; otherwise it returns to
// pending for the next claim (spec §7 propagation rules).
func (s *Store) RetryOrFailPage(ctx context.Context, pageID string, reason map[string]interface{}) error {
	reasonJSON, err := json.Marshal(reason)
	if err != nil {
		return fmt.Errorf("failed to marshal fail reason: %w", err)
	}

	const query = `
		UPDATE docindex.image_pages
		SET attempts = attempts + 1,
		    ocr_state = CASE WHEN attempts + 1 >= 5 THEN 'failed' ELSE 'pending' END,
		    fail_reason = $2,
		    claimed_at = NULL,
		    updated_at = NOW()
		WHERE page_id = $1
	`
	_, err = s.db.ExecContext(ctx, query, pageID, reasonJSON)
	if err != nil {
		return fmt.Errorf("failed to record page failure: %w", err)
	}
	return nil
}

// FailPageImmediately moves a page straight to failed, bypassing retry
// (permanent errors, spec §7).
func (s *Store) FailPageImmediately(ctx context.Context, pageID string, reason map[string]interface{}) error {
	reasonJSON, err := json.Marshal(reason)
	if err != nil {
		return fmt.Errorf("failed to marshal fail reason: %w", err)
	}
	const query = `
		UPDATE docindex.image_pages
		SET ocr_state = 'failed', fail_reason = $2, claimed_at = NULL, updated_at = NOW()
		WHERE page_id = $1
	`
	_, err = s.db.ExecContext(ctx, query, pageID, reasonJSON)
	return err
}

// CompletePageOCR writes the OCRText/Entity/SearchIndex rows for a page and
// flips its ocr_state to done, all within one transaction (spec §3, §4.4
// step 5). Any existing downstream rows for the page are deleted first so
// re-processing is idempotent.
func (s *Store) CompletePageOCR(ctx context.Context, page *ImagePage, ocrText *OCRText, entities []*Entity, index *SearchIndex) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingOCRID sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT ocr_id FROM docindex.ocr_texts WHERE page_id = $1`, page.PageID).Scan(&existingOCRID); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up existing OCR text: %w", err)
	}
	if existingOCRID.Valid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM docindex.search_index WHERE ocr_id = $1`, existingOCRID.String); err != nil {
			return fmt.Errorf("failed to delete existing search index row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM docindex.entities WHERE ocr_id = $1`, existingOCRID.String); err != nil {
			return fmt.Errorf("failed to delete existing entities: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM docindex.ocr_texts WHERE ocr_id = $1`, existingOCRID.String); err != nil {
			return fmt.Errorf("failed to delete existing OCR text: %w", err)
		}
	}

	if ocrText.OCRID == "" {
		ocrText.OCRID = uuid.New().String()
	}
	wordBoxesJSON, err := json.Marshal(ocrText.WordBoxes)
	if err != nil {
		return fmt.Errorf("failed to marshal word boxes: %w", err)
	}

	const insertOCR = `
		INSERT INTO docindex.ocr_texts (
			ocr_id, page_id, document_id, raw_text, normalized_text, word_boxes,
			page_bbox_x, page_bbox_y, page_bbox_w, page_bbox_h, page_confidence, engine, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, insertOCR,
		ocrText.OCRID, page.PageID, page.DocumentID, ocrText.RawText, ocrText.NormalizedText, wordBoxesJSON,
		ocrText.PageBBox.X, ocrText.PageBBox.Y, ocrText.PageBBox.Width, ocrText.PageBBox.Height,
		sanitizeConfidence(ocrText.PageConfidence), ocrText.Engine,
	).Scan(&ocrText.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert OCR text: %w", err)
	}

	const insertEntity = `
		INSERT INTO docindex.entities (entity_id, ocr_id, document_id, entity_type, entity_value, normalized_value, bbox_x, bbox_y, bbox_w, bbox_h, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, e := range entities {
		if e.EntityID == "" {
			e.EntityID = uuid.New().String()
		}
		var bx, by, bw, bh sql.NullInt64
		if e.BBox != nil {
			bx = sql.NullInt64{Int64: int64(e.BBox.X), Valid: true}
			by = sql.NullInt64{Int64: int64(e.BBox.Y), Valid: true}
			bw = sql.NullInt64{Int64: int64(e.BBox.Width), Valid: true}
			bh = sql.NullInt64{Int64: int64(e.BBox.Height), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insertEntity,
			e.EntityID, ocrText.OCRID, page.DocumentID, string(e.EntityType), e.EntityValue, e.NormalizedValue,
			bx, by, bw, bh, sanitizeConfidence(e.Confidence),
		); err != nil {
			return fmt.Errorf("failed to insert entity: %w", err)
		}
	}

	if index.IndexID == "" {
		index.IndexID = uuid.New().String()
	}
	tokensJSON, err := json.Marshal(index.Tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}
	const insertIndex = `
		INSERT INTO docindex.search_index (index_id, ocr_id, searchable_text, tokens)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, insertIndex, index.IndexID, ocrText.OCRID, index.SearchableText, tokensJSON); err != nil {
		return fmt.Errorf("failed to insert search index row: %w", err)
	}

	const updatePage = `
		UPDATE docindex.image_pages SET ocr_state = 'done', fail_reason = NULL, claimed_at = NULL, updated_at = NOW()
		WHERE page_id = $1
	`
	if _, err := tx.ExecContext(ctx, updatePage, page.PageID); err != nil {
		return fmt.Errorf("failed to mark page done: %w", err)
	}

	return tx.Commit()
}

// sanitizeConfidence rounds to 4 decimal places and clamps to [0,1],
// matching the reference's float-precision workaround for PostgreSQL NUMERIC
// columns (0.9632000000000001 otherwise fails to round-trip cleanly).
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return float64(int(confidence*10000+0.5)) / 10000
}

// SearchRow is a denormalized view of one OCRText joined with its page and
// document, used by internal/search for keyword/phrase/fuzzy scoring.
type SearchRow struct {
	OCRID          string
	DocumentID     string
	PageNumber     int
	ImagePath      string
	SearchableText string
	Tokens         []string
	NormalizedText string
	PageConfidence float64
	PageBBox       BBox
	WordBoxes      []WordBox
	CreatedAt      time.Time
}

// ListSearchRows returns every indexed page for in-memory scoring by the
// search engine.
func (s *Store) ListSearchRows(ctx context.Context) ([]*SearchRow, error) {
	const query = `
		SELECT s.ocr_id, o.document_id, p.page_number, p.image_path, s.searchable_text, s.tokens,
		       o.normalized_text, o.page_confidence, o.page_bbox_x, o.page_bbox_y, o.page_bbox_w, o.page_bbox_h,
		       o.word_boxes, o.created_at
		FROM docindex.search_index s
		JOIN docindex.ocr_texts o ON o.ocr_id = s.ocr_id
		JOIN docindex.image_pages p ON p.page_id = o.page_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list search rows: %w", err)
	}
	defer rows.Close()

	var out []*SearchRow
	for rows.Next() {
		var r SearchRow
		var tokensJSON, wordBoxesJSON []byte
		if err := rows.Scan(&r.OCRID, &r.DocumentID, &r.PageNumber, &r.ImagePath, &r.SearchableText, &tokensJSON,
			&r.NormalizedText, &r.PageConfidence, &r.PageBBox.X, &r.PageBBox.Y, &r.PageBBox.Width, &r.PageBBox.Height,
			&wordBoxesJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		_ = json.Unmarshal(tokensJSON, &r.Tokens)
		_ = json.Unmarshal(wordBoxesJSON, &r.WordBoxes)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// EntityHit is one entity match joined with its page location.
type EntityHit struct {
	OCRID           string
	DocumentID      string
	PageNumber      int
	EntityValue     string
	NormalizedValue *string
	BBox            *BBox
}

// FindEntities performs the exact (entity_type, normalized_value) lookup of
// spec §4.8 mode 4, falling back to case-insensitive entity_value match.
func (s *Store) FindEntities(ctx context.Context, entityType EntityKind, value string) ([]*EntityHit, error) {
	const query = `
		SELECT e.ocr_id, e.document_id, p.page_number, e.entity_value, e.normalized_value, e.bbox_x, e.bbox_y, e.bbox_w, e.bbox_h
		FROM docindex.entities e
		JOIN docindex.ocr_texts o ON o.ocr_id = e.ocr_id
		JOIN docindex.image_pages p ON p.page_id = o.page_id
		WHERE e.entity_type = $1 AND (e.normalized_value = $2 OR lower(e.entity_value) = lower($2))
	`
	rows, err := s.db.QueryContext(ctx, query, string(entityType), value)
	if err != nil {
		return nil, fmt.Errorf("failed to find entities: %w", err)
	}
	defer rows.Close()

	var out []*EntityHit
	for rows.Next() {
		var h EntityHit
		var bx, by, bw, bh sql.NullInt64
		if err := rows.Scan(&h.OCRID, &h.DocumentID, &h.PageNumber, &h.EntityValue, &h.NormalizedValue, &bx, &by, &bw, &bh); err != nil {
			return nil, fmt.Errorf("failed to scan entity hit: %w", err)
		}
		if bx.Valid {
			h.BBox = &BBox{X: int(bx.Int64), Y: int(by.Int64), Width: int(bw.Int64), Height: int(bh.Int64)}
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// ListEntities returns entities matching optional filters, for the
// list_entities external operation (spec §6.5).
func (s *Store) ListEntities(ctx context.Context, entityType *EntityKind, documentID *string, limit int) ([]*Entity, error) {
	query := `SELECT entity_id, ocr_id, document_id, entity_type, entity_value, normalized_value, bbox_x, bbox_y, bbox_w, bbox_h, confidence FROM docindex.entities WHERE 1=1`
	var args []interface{}
	argN := 1
	if entityType != nil {
		argN++
		query += fmt.Sprintf(" AND entity_type = $%d", argN-1)
		args = append(args, string(*entityType))
	}
	if documentID != nil {
		argN++
		query += fmt.Sprintf(" AND document_id = $%d", argN-1)
		args = append(args, *documentID)
	}
	query += fmt.Sprintf(" ORDER BY entity_id LIMIT $%d", argN)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []*Entity
	for rows.Next() {
		var e Entity
		var kind string
		var bx, by, bw, bh sql.NullInt64
		if err := rows.Scan(&e.EntityID, &e.OCRID, &e.DocumentID, &kind, &e.EntityValue, &e.NormalizedValue, &bx, &by, &bw, &bh, &e.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.EntityType = EntityKind(kind)
		if bx.Valid {
			e.BBox = &BBox{X: int(bx.Int64), Y: int(by.Int64), Width: int(bw.Int64), Height: int(bh.Int64)}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// GetPageCount returns the number of ImagePage rows referencing a document,
// used to validate spec §3's page_count invariant.
func (s *Store) GetPageCount(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docindex.image_pages WHERE document_id = $1`, documentID).Scan(&count)
	return count, err
}
