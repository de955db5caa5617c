package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Reason explains one feature's contribution to a daily score.
type Reason struct {
	Feature string  `json:"feature"`
	AgeDays int     `json:"age_days"`
	Gain    float64 `json:"gain"`
}

// DailyScore is a company's decayed score for one calendar date (YYYY-MM-DD).
type DailyScore struct {
	CompanyID int64    `json:"company_id"`
	Date      string   `json:"date"`
	Score     float64  `json:"score"`
	Reasons   []Reason `json:"reasons"`
}

// ReplaceDailyScores makes scores the complete set of rows for date. Rows
// already stored for that date are dropped first, so a rerun recomputes rather
// than accumulates. Runs in one transaction.
func (db *DB) ReplaceDailyScores(date string, scores []DailyScore) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin score replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM account_scores_daily WHERE date = ?", date); err != nil {
		return fmt.Errorf("clear scores for %s: %w", date, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO account_scores_daily (company_id, date, score, reasons_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(company_id, date) DO UPDATE SET
			score = excluded.score,
			reasons_json = excluded.reasons_json
	`)
	if err != nil {
		return fmt.Errorf("prepare score upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range scores {
		reasons := s.Reasons
		if reasons == nil {
			reasons = []Reason{}
		}
		data, err := json.Marshal(reasons)
		if err != nil {
			return fmt.Errorf("marshal reasons: %w", err)
		}
		if _, err := stmt.Exec(s.CompanyID, date, s.Score, string(data)); err != nil {
			return fmt.Errorf("upsert score for company %d: %w", s.CompanyID, err)
		}
	}

	return tx.Commit()
}

// GetDailyScore returns one company's score for date, or nil if there is none.
func (db *DB) GetDailyScore(companyID int64, date string) (*DailyScore, error) {
	rows, err := db.Query(`
		SELECT company_id, date, score, reasons_json
		FROM account_scores_daily WHERE company_id = ? AND date = ?
	`, companyID, date)
	if err != nil {
		return nil, fmt.Errorf("get daily score: %w", err)
	}
	defer rows.Close()

	scores, err := scanScores(rows)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	return &scores[0], nil
}

// ListDailyScores returns all scores for date, highest first. Ties keep
// insertion order.
func (db *DB) ListDailyScores(date string) ([]DailyScore, error) {
	return db.TopScores(date, 0)
}

// TopScores returns the n highest scores for date (all when n <= 0). Ties are
// broken by row order, which is stable across calls.
func (db *DB) TopScores(date string, n int) ([]DailyScore, error) {
	query := `
		SELECT company_id, date, score, reasons_json
		FROM account_scores_daily WHERE date = ?
		ORDER BY score DESC, rowid ASC`
	args := []any{date}
	if n > 0 {
		query += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

func scanScores(rows *sql.Rows) ([]DailyScore, error) {
	var scores []DailyScore
	for rows.Next() {
		var s DailyScore
		var reasonsJSON string
		if err := rows.Scan(&s.CompanyID, &s.Date, &s.Score, &reasonsJSON); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if err := json.Unmarshal([]byte(reasonsJSON), &s.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons for company %d: %w", s.CompanyID, err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
