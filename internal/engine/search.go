package engine

import (
	"sort"

	"github.com/lazypower/prospector/internal/store"
)

// Hit is an index row scored against a query.
type Hit struct {
	Record     store.EvidenceRecord
	Similarity float64
}

// Nearest returns the k records with the highest inner product against query,
// best first. Equal scores keep index order.
func Nearest(records []store.EvidenceRecord, query []float64, k int) []Hit {
	hits := make([]Hit, len(records))
	for i, r := range records {
		hits[i] = Hit{Record: r, Similarity: InnerProduct(query, r.Embedding)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// ForCompany keeps hits belonging to companyID, in order, up to limit.
func ForCompany(hits []Hit, companyID int64, limit int) []store.Evidence {
	out := []store.Evidence{}
	for _, h := range hits {
		if len(out) >= limit {
			break
		}
		if h.Record.CompanyID != companyID {
			continue
		}
		out = append(out, store.Evidence{
			EventID:    h.Record.EventID,
			CompanyID:  h.Record.CompanyID,
			URL:        h.Record.URL,
			Title:      h.Record.Title,
			Similarity: h.Similarity,
		})
	}
	return out
}
