package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// Index metadata keys.
const (
	MetaModel      = "model"
	MetaDimensions = "dimensions"
	MetaBuiltAt    = "built_at"
	MetaVocabulary = "vocabulary"
)

// EvidenceRecord is one row of the evidence index: an event's embedding stored
// alongside the metadata retrieval hands back. Position is the row's index
// order.
type EvidenceRecord struct {
	Position  int
	EventID   string
	CompanyID int64
	URL       string
	Title     string
	Embedding []float64
}

// encodeEmbedding converts a []float64 to a binary BLOB (8 bytes per float64).
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeEmbedding converts a binary BLOB back to []float64.
func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// ReplaceEvidenceIndex swaps the whole index for records and meta in a single
// transaction. Readers observe either the previous index or the new one.
func (db *DB) ReplaceEvidenceIndex(records []EvidenceRecord, meta map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin index replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM evidence_index"); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("clear index meta: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO evidence_index (position, event_id, company_id, url, title, embedding, dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare index insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		r.Position = i
		if _, err := stmt.Exec(i, r.EventID, r.CompanyID, r.URL, r.Title,
			encodeEmbedding(r.Embedding), len(r.Embedding)); err != nil {
			return fmt.Errorf("insert index row %d: %w", i, err)
		}
	}

	for k, v := range meta {
		if _, err := tx.Exec("INSERT INTO index_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("insert index meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// AllEvidence returns every index row in position order.
func (db *DB) AllEvidence() ([]EvidenceRecord, error) {
	rows, err := db.Query(`
		SELECT position, event_id, company_id, url, title, embedding
		FROM evidence_index ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("all evidence: %w", err)
	}
	defer rows.Close()

	var records []EvidenceRecord
	for rows.Next() {
		var r EvidenceRecord
		var blob []byte
		if err := rows.Scan(&r.Position, &r.EventID, &r.CompanyID, &r.URL, &r.Title, &blob); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		r.Embedding = decodeEmbedding(blob)
		records = append(records, r)
	}
	return records, rows.Err()
}

// IndexMeta returns a metadata value recorded with the current index, or ""
// when the key is absent.
func (db *DB) IndexMeta(key string) (string, error) {
	var v string
	err := db.QueryRow("SELECT value FROM index_meta WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index meta %s: %w", key, err)
	}
	return v, nil
}

// CountEvidence returns the number of rows in the evidence index.
func (db *DB) CountEvidence() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM evidence_index").Scan(&n)
	return n, err
}
