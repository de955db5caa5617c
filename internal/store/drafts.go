package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Draft lifecycle states.
const (
	StatusQueued   = "queued"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusSent     = "sent"
)

// Draft is one generated outreach email awaiting (or past) human review.
type Draft struct {
	ID        string     `json:"draft_id"`
	CompanyID int64      `json:"company_id"`
	CreatedAt int64      `json:"created_at"`
	Persona   string     `json:"persona"`
	Variant   int        `json:"variant"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Sources   []string   `json:"sources"`
	Evidence  []Evidence `json:"evidence"`
	Status    string     `json:"status"`
	Metrics   string     `json:"metrics_json"`
}

// DraftFilter narrows ListDrafts. Zero values match everything.
type DraftFilter struct {
	Status    string
	CompanyID int64
	Limit     int
}

var draftColumns = []string{
	"draft_id", "company_id", "created_at", "persona", "variant", "subject", "body",
	"sources_json", "evidence_json", "status", "metrics_json",
}

// InsertDraft stores d, replacing any draft with the same id.
func (db *DB) InsertDraft(d *Draft) error {
	sources := d.Sources
	if sources == nil {
		sources = []string{}
	}
	evidence := d.Evidence
	if evidence == nil {
		evidence = []Evidence{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	if d.Status == "" {
		d.Status = StatusQueued
	}
	if d.Persona == "" {
		d.Persona = "sdr"
	}
	if d.Metrics == "" {
		d.Metrics = "{}"
	}

	query, args, err := sq.Insert("drafts").
		Options("OR REPLACE").
		Columns(draftColumns...).
		Values(d.ID, d.CompanyID, d.CreatedAt, d.Persona, d.Variant, d.Subject, d.Body,
			string(sourcesJSON), string(evidenceJSON), d.Status, d.Metrics).
		ToSql()
	if err != nil {
		return fmt.Errorf("build draft insert: %w", err)
	}
	if _, err := db.Exec(query, args...); err != nil {
		return fmt.Errorf("insert draft %s: %w", d.ID, err)
	}
	return nil
}

// GetDraft returns a draft by id, or nil if not found.
func (db *DB) GetDraft(id string) (*Draft, error) {
	drafts, err := db.queryDrafts(sq.Select(draftColumns...).From("drafts").Where(sq.Eq{"draft_id": id}))
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}
	return &drafts[0], nil
}

// ListDrafts returns drafts matching f, newest first.
func (db *DB) ListDrafts(f DraftFilter) ([]Draft, error) {
	q := sq.Select(draftColumns...).From("drafts").OrderBy("created_at DESC", "variant ASC")
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.CompanyID != 0 {
		q = q.Where(sq.Eq{"company_id": f.CompanyID})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return db.queryDrafts(q)
}

// UpdateDraftStatus sets a draft's status. Returns ErrNotFound for an unknown id.
func (db *DB) UpdateDraftStatus(id, status string) error {
	query, args, err := sq.Update("drafts").Set("status", status).Where(sq.Eq{"draft_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}
	result, err := db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update draft %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountDraftsByStatus returns per-status draft counts for a company.
func (db *DB) CountDraftsByStatus(companyID int64) (map[string]int, error) {
	query, args, err := sq.Select("status", "COUNT(*)").From("drafts").
		Where(sq.Eq{"company_id": companyID}).GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build draft count: %w", err)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count drafts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan draft count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (db *DB) queryDrafts(q sq.SelectBuilder) ([]Draft, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build draft query: %w", err)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()
	return scanDrafts(rows)
}

func scanDrafts(rows *sql.Rows) ([]Draft, error) {
	var drafts []Draft
	for rows.Next() {
		var d Draft
		var sourcesJSON, evidenceJSON string
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.CreatedAt, &d.Persona, &d.Variant,
			&d.Subject, &d.Body, &sourcesJSON, &evidenceJSON, &d.Status, &d.Metrics); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &d.Sources); err != nil {
			return nil, fmt.Errorf("decode sources for draft %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(evidenceJSON), &d.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence for draft %s: %w", d.ID, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
