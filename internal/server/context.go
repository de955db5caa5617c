package server

import (
	"net/http"
	"sort"

	"github.com/lazypower/prospector/internal/store"
)

type contextView struct {
	CompanyID int64            `json:"company_id"`
	Name      string           `json:"name"`
	Domain    string           `json:"domain"`
	Evidence  []store.Evidence `json:"evidence"`
}

// handleContexts returns the latest retrieval snapshot, one entry per
// company ordered by id.
func (s *Server) handleContexts(w http.ResponseWriter, r *http.Request) {
	contexts, err := s.db.LoadContexts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids := make([]int64, 0, len(contexts))
	for id := range contexts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]contextView, 0, len(ids))
	for _, id := range ids {
		v := contextView{CompanyID: id, Evidence: contexts[id]}
		if v.Evidence == nil {
			v.Evidence = []store.Evidence{}
		}
		if c, err := s.db.GetCompany(id); err == nil && c != nil {
			v.Name, v.Domain = c.Name, c.Domain
		}
		out = append(out, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{"contexts": out})
}
