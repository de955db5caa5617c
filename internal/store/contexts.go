package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Evidence is a retrieved index row attached to a company's context.
type Evidence struct {
	EventID    string  `json:"event_id"`
	CompanyID  int64   `json:"company_id"`
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// ReplaceContexts overwrites the stored retrieval snapshot with contexts.
// Companies absent from contexts lose any previous evidence; companies mapped
// to an empty list are kept with no evidence.
func (db *DB) ReplaceContexts(contexts map[int64][]Evidence) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin context replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM evidence_context"); err != nil {
		return fmt.Errorf("clear contexts: %w", err)
	}

	now := time.Now().UnixMilli()
	for companyID, items := range contexts {
		if items == nil {
			items = []Evidence{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("marshal context for company %d: %w", companyID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO evidence_context (company_id, evidence_json, retrieved_at)
			VALUES (?, ?, ?)
		`, companyID, string(data), now); err != nil {
			return fmt.Errorf("insert context for company %d: %w", companyID, err)
		}
	}

	return tx.Commit()
}

// LoadContexts returns the stored snapshot.
func (db *DB) LoadContexts() (map[int64][]Evidence, error) {
	rows, err := db.Query("SELECT company_id, evidence_json FROM evidence_context ORDER BY company_id")
	if err != nil {
		return nil, fmt.Errorf("load contexts: %w", err)
	}
	defer rows.Close()

	contexts := make(map[int64][]Evidence)
	for rows.Next() {
		var companyID int64
		var data string
		if err := rows.Scan(&companyID, &data); err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		var items []Evidence
		if err := json.Unmarshal([]byte(data), &items); err != nil {
			return nil, fmt.Errorf("decode context for company %d: %w", companyID, err)
		}
		if items == nil {
			items = []Evidence{}
		}
		contexts[companyID] = items
	}
	return contexts, rows.Err()
}
