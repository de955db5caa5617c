package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lazypower/prospector/internal/store"
)

// Retrieval bounds.
const (
	SearchNeighbors = 16
	MaxEvidence     = 5
)

// DefaultQuery is the intent query used for every company by FixedQuery.
const DefaultQuery = "recent buying signals: funding, hiring, leadership, compliance, tech changes"

// QueryStrategy produces the retrieval query for a company.
type QueryStrategy interface {
	Query(c *store.Company) string
}

// FixedQuery issues the same query for every company.
type FixedQuery struct {
	Text string
}

func (q FixedQuery) Query(*store.Company) string {
	if q.Text == "" {
		return DefaultQuery
	}
	return q.Text
}

// ICPQuery appends the company's ICP tags to the base query.
type ICPQuery struct {
	Base string
}

func (q ICPQuery) Query(c *store.Company) string {
	base := FixedQuery{Text: q.Base}.Query(c)
	if c == nil || len(c.ICPTags) == 0 {
		return base
	}
	return base + "; " + strings.Join(c.ICPTags, ", ")
}

// QueryStrategyFor maps a config name ("fixed", "icp") to a strategy.
func QueryStrategyFor(name string) (QueryStrategy, error) {
	switch name {
	case "", "fixed":
		return FixedQuery{}, nil
	case "icp":
		return ICPQuery{}, nil
	default:
		return nil, fmt.Errorf("unknown query strategy: %q", name)
	}
}

// GatherContext picks the topN companies by score on date and attaches up to
// MaxEvidence of their own index rows to each. The snapshot is stored and
// returned. With no scored companies nothing is written.
func (e *Engine) GatherContext(ctx context.Context, date string, topN int, strategy QueryStrategy) (map[int64][]store.Evidence, error) {
	if strategy == nil {
		strategy = FixedQuery{}
	}

	top, err := e.DB.TopScores(date, topN)
	if err != nil {
		return nil, fmt.Errorf("gather context: %w", err)
	}
	if len(top) == 0 {
		e.Log.Info("no top companies yet", "date", date)
		return map[int64][]store.Evidence{}, nil
	}

	records, err := e.DB.AllEvidence()
	if err != nil {
		return nil, fmt.Errorf("gather context: %w", err)
	}

	contexts := make(map[int64][]store.Evidence, len(top))
	if len(records) == 0 {
		e.Log.Warn("evidence index is empty, contexts will have no evidence")
		for _, s := range top {
			contexts[s.CompanyID] = []store.Evidence{}
		}
	} else {
		emb, err := e.queryEmbedder(ctx)
		if err != nil {
			return nil, fmt.Errorf("gather context: %w", err)
		}

		vecs := make(map[string][]float64)
		for _, s := range top {
			company, err := e.DB.GetCompany(s.CompanyID)
			if err != nil {
				return nil, fmt.Errorf("gather context: %w", err)
			}

			q := strategy.Query(company)
			qv, ok := vecs[q]
			if !ok {
				qv, err = emb.Embed(ctx, q)
				if err != nil {
					return nil, fmt.Errorf("embed query: %w", err)
				}
				normalize(qv)
				vecs[q] = qv
			}

			hits := Nearest(records, qv, SearchNeighbors)
			contexts[s.CompanyID] = ForCompany(hits, s.CompanyID, MaxEvidence)
		}
	}

	if err := e.DB.ReplaceContexts(contexts); err != nil {
		return nil, fmt.Errorf("gather context: %w", err)
	}
	e.Log.Info("gathered context", "companies", len(contexts))
	return contexts, nil
}

// WriteContextsFile exports contexts as JSON keyed by company id. The file is
// written beside path and renamed into place.
func WriteContextsFile(path string, contexts map[int64][]store.Evidence) error {
	out := make(map[string][]store.Evidence, len(contexts))
	for id, items := range contexts {
		out[strconv.FormatInt(id, 10)] = items
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal contexts: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create contexts dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".contexts-*.json")
	if err != nil {
		return fmt.Errorf("create temp contexts: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write contexts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close contexts: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish contexts: %w", err)
	}
	return nil
}

// ReadContextsFile loads a file written by WriteContextsFile.
func ReadContextsFile(path string) (map[int64][]store.Evidence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contexts: %w", err)
	}
	var raw map[string][]store.Evidence
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode contexts: %w", err)
	}
	out := make(map[int64][]store.Evidence, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("contexts key %q: %w", k, err)
		}
		out[id] = v
	}
	return out, nil
}
