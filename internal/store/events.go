package store

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Event types.
const (
	EventTypeRSS = "rss"
	EventTypeJob = "job"
)

// FeatureSet maps a feature name to whether the event exhibits it.
type FeatureSet map[string]bool

// Event is one normalized signal about a company.
type Event struct {
	ID        string
	CompanyID int64
	Source    string
	Type      string
	Time      *time.Time // nil when the source gave no parseable timestamp
	URL       string
	Title     string
	RawText   string
	Features  FeatureSet
	CreatedAt int64
}

// Text returns the title and body joined by a space, the surface used for
// feature detection and embedding.
func (e *Event) Text() string {
	return e.Title + " " + e.RawText
}

// EventID derives the deterministic event id from its owning company, type and
// dedup key (the link for rss, "source|title" for jobs).
func EventID(companyID int64, eventType, dedupKey string) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%d|%s|%s", companyID, eventType, dedupKey)))
	return hex.EncodeToString(h[:])
}

// InsertEvent stores the event unless one with the same id already exists.
// Returns true when a row was written.
func (db *DB) InsertEvent(e *Event) (bool, error) {
	if e.ID == "" {
		return false, fmt.Errorf("insert event: empty id")
	}
	features := e.Features
	if features == nil {
		features = FeatureSet{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return false, fmt.Errorf("marshal features: %w", err)
	}

	var eventTime sql.NullInt64
	if e.Time != nil {
		eventTime = sql.NullInt64{Int64: e.Time.UnixMilli(), Valid: true}
	}

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT OR IGNORE INTO events
			(event_id, company_id, source, event_type, event_time, url, title, raw_text, features_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.CompanyID, e.Source, e.Type, eventTime, e.URL, e.Title, e.RawText, string(featuresJSON), now)
	if err != nil {
		return false, fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		e.CreatedAt = now
	}
	return n > 0, nil
}

// GetEvent returns an event by id, or nil if not found.
func (db *DB) GetEvent(id string) (*Event, error) {
	rows, err := db.Query(eventSelect+" WHERE event_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// ListEvents returns all events in insertion order.
func (db *DB) ListEvents() ([]Event, error) {
	rows, err := db.Query(eventSelect + " ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListUnannotatedEvents returns events whose feature set has not been computed.
func (db *DB) ListUnannotatedEvents() ([]Event, error) {
	rows, err := db.Query(eventSelect + " WHERE features_json IN ('', '{}') ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list unannotated events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// SetFeatures writes the computed feature set onto an event.
func (db *DB) SetFeatures(eventID string, features FeatureSet) error {
	data, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	result, err := db.Exec("UPDATE events SET features_json = ? WHERE event_id = ?", string(data), eventID)
	if err != nil {
		return fmt.Errorf("set features %s: %w", eventID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("set features %s: %w", eventID, ErrNotFound)
	}
	return nil
}

// CountEvents returns the number of stored events.
func (db *DB) CountEvents() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}

const eventSelect = `
	SELECT event_id, company_id, source, event_type, event_time, url, title, raw_text, features_json, created_at
	FROM events`

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var eventTime sql.NullInt64
		var featuresJSON string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Source, &e.Type, &eventTime,
			&e.URL, &e.Title, &e.RawText, &featuresJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if eventTime.Valid {
			t := time.UnixMilli(eventTime.Int64).UTC()
			e.Time = &t
		}
		e.Features = FeatureSet{}
		if featuresJSON != "" {
			// Malformed feature JSON reads as an empty set.
			_ = json.Unmarshal([]byte(featuresJSON), &e.Features)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
