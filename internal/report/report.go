// Package report summarizes scored accounts and their draft pipeline as a
// CSV sheet and a Markdown overview.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lazypower/prospector/internal/store"
)

const (
	CSVFile      = "report.csv"
	MarkdownFile = "REPORT.md"

	// topReasons is how many score reasons each row lists.
	topReasons = 3
)

var statusOrder = []string{store.StatusQueued, store.StatusApproved, store.StatusRejected, store.StatusSent}

// Row is one company's line in the report.
type Row struct {
	Company   store.Company
	Scored    bool
	Score     float64
	Reasons   []store.Reason
	Drafts    map[string]int
	LastDraft time.Time // zero when the company has no drafts
}

// TotalDrafts sums drafts across all statuses.
func (r Row) TotalDrafts() int {
	n := 0
	for _, c := range r.Drafts {
		n += c
	}
	return n
}

// Build collects one row per company for date, ranked by score. Companies
// without a score for date sort last, by name.
func Build(db *store.DB, date string) ([]Row, error) {
	companies, err := db.ListCompanies()
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	scores, err := db.ListDailyScores(date)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	byCompany := make(map[int64]store.DailyScore, len(scores))
	for _, s := range scores {
		byCompany[s.CompanyID] = s
	}

	rows := make([]Row, 0, len(companies))
	for _, c := range companies {
		row := Row{Company: c}
		if s, ok := byCompany[c.ID]; ok {
			row.Scored = true
			row.Score = s.Score
			row.Reasons = topByGain(s.Reasons, topReasons)
		}

		row.Drafts, err = db.CountDraftsByStatus(c.ID)
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		latest, err := db.ListDrafts(store.DraftFilter{CompanyID: c.ID, Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		if len(latest) > 0 {
			row.LastDraft = time.UnixMilli(latest[0].CreatedAt)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Scored != b.Scored {
			return a.Scored
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Company.Name < b.Company.Name
	})
	return rows, nil
}

func topByGain(reasons []store.Reason, n int) []store.Reason {
	out := append([]store.Reason(nil), reasons...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Gain > out[j].Gain })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func formatReasons(reasons []store.Reason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s(+%.2f)", r.Feature, r.Gain)
	}
	return strings.Join(parts, "; ")
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := []string{"company", "domain", "score", "top_reasons"}
	header = append(header, statusOrder...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rows {
		score := ""
		if r.Scored {
			score = strconv.FormatFloat(r.Score, 'f', 2, 64)
		}
		record := []string{r.Company.Name, r.Company.Domain, score, formatReasons(r.Reasons)}
		for _, s := range statusOrder {
			record = append(record, strconv.Itoa(r.Drafts[s]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes the ranked overview. now anchors relative ages.
func WriteMarkdown(w io.Writer, rows []Row, date string, now time.Time) error {
	var b strings.Builder

	scored, drafts := 0, 0
	for _, r := range rows {
		if r.Scored {
			scored++
		}
		drafts += r.TotalDrafts()
	}

	fmt.Fprintf(&b, "# Prospector report for %s\n\n", date)
	fmt.Fprintf(&b, "%s companies, %s scored, %s drafts.\n\n",
		humanize.Comma(int64(len(rows))), humanize.Comma(int64(scored)), humanize.Comma(int64(drafts)))

	b.WriteString("| # | Company | Domain | Score | Top reasons | Drafts | Last draft |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for i, r := range rows {
		score := "-"
		if r.Scored {
			score = humanize.FormatFloat("#,###.##", r.Score)
		}
		last := "never"
		if !r.LastDraft.IsZero() {
			last = humanize.RelTime(r.LastDraft, now, "ago", "from now")
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1, mdEscape(r.Company.Name), r.Company.Domain, score,
			mdEscape(formatReasons(r.Reasons)), draftSummary(r.Drafts), last)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func draftSummary(counts map[string]int) string {
	var parts []string
	for _, s := range statusOrder {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Write builds the report for date and writes both files into dir.
// Returns the paths written.
func Write(db *store.DB, dir, date string, now time.Time) ([]string, error) {
	rows, err := Build(db, date)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	csvPath := filepath.Join(dir, CSVFile)
	mdPath := filepath.Join(dir, MarkdownFile)
	if err := writeFile(csvPath, func(w io.Writer) error { return WriteCSV(w, rows) }); err != nil {
		return nil, err
	}
	if err := writeFile(mdPath, func(w io.Writer) error { return WriteMarkdown(w, rows, date, now) }); err != nil {
		return nil, err
	}
	return []string{csvPath, mdPath}, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
