// Package drafting generates outreach email drafts from retrieved evidence.
package drafting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/prospector/internal/llm"
	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/store"
)

// Generator turns company contexts into stored drafts.
type Generator struct {
	DB        *store.DB
	LLM       llm.Client
	Log       *slog.Logger
	ValueProp string
	OutDir    string // artifact directory; empty disables artifacts

	Attempts int           // completion attempts per variant (default 2)
	Backoff  time.Duration // base wait between attempts (default 1s)
	Now      func() time.Time
}

// metrics is recorded on each draft.
type metrics struct {
	Attempts int    `json:"attempts"`
	Fallback bool   `json:"fallback"`
	Provider string `json:"provider,omitempty"`
	Tokens   int    `json:"tokens,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (g *Generator) attempts() int {
	if g.Attempts <= 0 {
		return 2
	}
	return g.Attempts
}

func (g *Generator) backoff() time.Duration {
	if g.Backoff <= 0 {
		return time.Second
	}
	return g.Backoff
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Run drafts variants emails for up to topN companies of the stored context
// snapshot, highest score on date first. A failed generation yields a
// fallback draft; the run continues.
func (g *Generator) Run(ctx context.Context, date string, topN, variants int) ([]store.Draft, error) {
	log := logging.OrDefault(g.Log)

	contexts, err := g.DB.LoadContexts()
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	order, err := g.rank(date, contexts)
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	var drafts []store.Draft
	for _, cid := range order {
		company, err := g.DB.GetCompany(cid)
		if err != nil {
			return drafts, fmt.Errorf("draft: %w", err)
		}
		if company == nil {
			log.Warn("context for unknown company, skipping", "company_id", cid)
			continue
		}

		for v := 0; v < variants; v++ {
			if err := ctx.Err(); err != nil {
				return drafts, err
			}
			d, err := g.Draft(ctx, company, contexts[cid], v)
			if err != nil {
				return drafts, err
			}
			drafts = append(drafts, *d)
		}
	}

	log.Info("drafted emails", "count", len(drafts), "companies", len(order))
	return drafts, nil
}

// rank orders context company ids by score on date. Companies without a
// score row follow, by id.
func (g *Generator) rank(date string, contexts map[int64][]store.Evidence) ([]int64, error) {
	scores, err := g.DB.TopScores(date, 0)
	if err != nil {
		return nil, err
	}

	order := make([]int64, 0, len(contexts))
	seen := make(map[int64]bool, len(contexts))
	for _, s := range scores {
		if _, ok := contexts[s.CompanyID]; ok {
			order = append(order, s.CompanyID)
			seen[s.CompanyID] = true
		}
	}
	var rest []int64
	for cid := range contexts {
		if !seen[cid] {
			rest = append(rest, cid)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(order, rest...), nil
}

// Draft generates, stores, and writes artifacts for one variant.
func (g *Generator) Draft(ctx context.Context, company *store.Company, evidence []store.Evidence, variant int) (*store.Draft, error) {
	log := logging.OrDefault(g.Log)

	urls := make([]string, 0, len(evidence))
	lines := make([]llm.EvidenceLine, 0, len(evidence))
	for _, e := range evidence {
		lines = append(lines, llm.EvidenceLine{Title: e.Title, URL: e.URL})
		if e.URL != "" {
			urls = append(urls, e.URL)
		}
	}
	prompt := llm.DraftPrompt(company.ICPTags, lines, g.ValueProp)

	email, m := g.generate(ctx, prompt, urls)
	if m.Fallback {
		log.Warn("using fallback draft", "company", company.Name, "variant", variant, "reason", m.Error)
	}
	metricsJSON, _ := json.Marshal(m)

	d := &store.Draft{
		ID:        uuid.New().String()[:8],
		CompanyID: company.ID,
		CreatedAt: g.now().UnixMilli(),
		Persona:   "sdr",
		Variant:   variant,
		Subject:   email.Subject,
		Body:      email.Body,
		Sources:   email.Sources,
		Evidence:  evidence,
		Status:    store.StatusQueued,
		Metrics:   string(metricsJSON),
	}
	if err := g.DB.InsertDraft(d); err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}

	if g.OutDir != "" {
		if err := WriteArtifacts(g.OutDir, company.Name, d); err != nil {
			log.Warn("write draft artifacts", "draft_id", d.ID, "err", err)
		}
	}
	return d, nil
}

// generate calls the model with retries. It never fails: any error or
// invalid output produces the fallback email.
func (g *Generator) generate(ctx context.Context, prompt string, urls []string) (*Email, metrics) {
	var m metrics
	var resp *llm.Response
	var err error

	if g.LLM == nil {
		m.Fallback = true
		m.Error = "no LLM configured"
		return Fallback(urls), m
	}

	for attempt := 0; ; attempt++ {
		m.Attempts++
		resp, err = g.LLM.Complete(ctx, prompt)
		if err == nil || attempt+1 >= g.attempts() {
			break
		}
		wait := g.backoff() + time.Duration(attempt)*time.Second
		if werr := sleepCtx(ctx, wait); werr != nil {
			err = werr
			break
		}
	}
	if err != nil {
		m.Fallback = true
		m.Error = err.Error()
		return Fallback(urls), m
	}

	m.Provider = resp.Provider
	m.Tokens = resp.TokensUsed
	email, perr := parseEmail(resp.Content, urls)
	if perr != nil {
		m.Fallback = true
		m.Error = perr.Error()
		return Fallback(urls), m
	}
	return email, m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
