package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "companies: target accounts keyed by domain",
		SQL: `
CREATE TABLE companies (
    company_id  INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    domain      TEXT NOT NULL UNIQUE,
    icp_tags    TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "events: deduplicated signal events per company",
		SQL: `
CREATE TABLE events (
    event_id      TEXT PRIMARY KEY,
    company_id    INTEGER NOT NULL,
    source        TEXT NOT NULL,
    event_type    TEXT NOT NULL CHECK (event_type IN ('rss', 'job')),
    event_time    INTEGER,
    url           TEXT NOT NULL DEFAULT '',
    title         TEXT NOT NULL DEFAULT '',
    raw_text      TEXT NOT NULL DEFAULT '',
    features_json TEXT NOT NULL DEFAULT '{}',
    created_at    INTEGER NOT NULL,

    FOREIGN KEY (company_id) REFERENCES companies(company_id)
);

CREATE INDEX idx_events_company ON events(company_id);
`,
	},
	{
		Version:     3,
		Description: "account_scores_daily: one decayed score per company per day",
		SQL: `
CREATE TABLE account_scores_daily (
    company_id   INTEGER NOT NULL,
    date         TEXT NOT NULL,
    score        REAL NOT NULL,
    reasons_json TEXT NOT NULL DEFAULT '[]',

    PRIMARY KEY (company_id, date),
    FOREIGN KEY (company_id) REFERENCES companies(company_id)
);

CREATE INDEX idx_scores_date_score ON account_scores_daily(date, score DESC);
`,
	},
	{
		Version:     4,
		Description: "drafts: generated outreach drafts and their review status",
		SQL: `
CREATE TABLE drafts (
    draft_id      TEXT PRIMARY KEY,
    company_id    INTEGER NOT NULL,
    created_at    INTEGER NOT NULL,
    persona       TEXT NOT NULL DEFAULT 'sdr',
    variant       INTEGER NOT NULL DEFAULT 0,
    subject       TEXT NOT NULL,
    body          TEXT NOT NULL,
    sources_json  TEXT NOT NULL DEFAULT '[]',
    evidence_json TEXT NOT NULL DEFAULT '[]',
    status        TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued', 'approved', 'rejected', 'sent')),
    metrics_json  TEXT NOT NULL DEFAULT '{}',

    FOREIGN KEY (company_id) REFERENCES companies(company_id)
);

CREATE INDEX idx_drafts_status  ON drafts(status);
CREATE INDEX idx_drafts_company ON drafts(company_id);
`,
	},
	{
		Version:     5,
		Description: "evidence_index: event embeddings paired with their metadata",
		SQL: `
CREATE TABLE evidence_index (
    position   INTEGER PRIMARY KEY,
    event_id   TEXT NOT NULL,
    company_id INTEGER NOT NULL,
    url        TEXT NOT NULL DEFAULT '',
    title      TEXT NOT NULL DEFAULT '',
    embedding  BLOB NOT NULL,
    dimensions INTEGER NOT NULL
);

CREATE TABLE index_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
	},
	{
		Version:     6,
		Description: "evidence_context: latest retrieval snapshot per company",
		SQL: `
CREATE TABLE evidence_context (
    company_id    INTEGER PRIMARY KEY,
    evidence_json TEXT NOT NULL DEFAULT '[]',
    retrieved_at  INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
