package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Company is a target account. Domain is the natural key and never changes.
type Company struct {
	ID        int64    `json:"company_id"`
	Name      string   `json:"name"`
	Domain    string   `json:"domain"`
	ICPTags   []string `json:"icp_tags"`
	CreatedAt int64    `json:"created_at"`
}

// UpsertCompany creates the company on first sighting of its domain. For an
// existing company, new ICP tags are appended; name and domain are left alone.
// c.ID is set to the stored company id.
func (db *DB) UpsertCompany(c *Company) error {
	existing, err := db.GetCompanyByDomain(c.Domain)
	if err != nil {
		return err
	}

	if existing == nil {
		now := time.Now().UnixMilli()
		result, err := db.Exec(`
			INSERT INTO companies (name, domain, icp_tags, created_at)
			VALUES (?, ?, ?, ?)
		`, c.Name, c.Domain, joinTags(c.ICPTags), now)
		if err != nil {
			return fmt.Errorf("create company %s: %w", c.Domain, err)
		}
		id, _ := result.LastInsertId()
		c.ID = id
		c.CreatedAt = now
		return nil
	}

	merged := mergeTags(existing.ICPTags, c.ICPTags)
	if len(merged) != len(existing.ICPTags) {
		if _, err := db.Exec(
			"UPDATE companies SET icp_tags = ? WHERE company_id = ?",
			joinTags(merged), existing.ID,
		); err != nil {
			return fmt.Errorf("extend tags for %s: %w", c.Domain, err)
		}
	}

	c.ID = existing.ID
	c.Name = existing.Name
	c.ICPTags = merged
	c.CreatedAt = existing.CreatedAt
	return nil
}

// GetCompany returns a company by id, or nil if not found.
func (db *DB) GetCompany(id int64) (*Company, error) {
	row := db.QueryRow(`
		SELECT company_id, name, domain, icp_tags, created_at
		FROM companies WHERE company_id = ?
	`, id)
	return scanCompany(row)
}

// GetCompanyByDomain returns a company by domain, or nil if not found.
func (db *DB) GetCompanyByDomain(domain string) (*Company, error) {
	row := db.QueryRow(`
		SELECT company_id, name, domain, icp_tags, created_at
		FROM companies WHERE domain = ?
	`, domain)
	return scanCompany(row)
}

// ListCompanies returns all companies ordered by id.
func (db *DB) ListCompanies() ([]Company, error) {
	rows, err := db.Query(`
		SELECT company_id, name, domain, icp_tags, created_at
		FROM companies ORDER BY company_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		var tags string
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &tags, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.ICPTags = splitTags(tags)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func scanCompany(row *sql.Row) (*Company, error) {
	var c Company
	var tags string
	err := row.Scan(&c.ID, &c.Name, &c.Domain, &tags, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.ICPTags = splitTags(tags)
	return &c, nil
}

// mergeTags returns existing followed by any tags in add it does not already hold.
func mergeTags(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(add))
	for _, t := range existing {
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range add {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func joinTags(tags []string) string {
	return strings.Join(mergeTags(nil, tags), ",")
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
