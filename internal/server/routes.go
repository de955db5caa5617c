package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/prospector/internal/delivery"
	"github.com/lazypower/prospector/internal/scoring"
	"github.com/lazypower/prospector/internal/store"
)

type scoreView struct {
	CompanyID int64          `json:"company_id"`
	Name      string         `json:"name"`
	Domain    string         `json:"domain"`
	Date      string         `json:"date"`
	Score     float64        `json:"score"`
	Reasons   []store.Reason `json:"reasons"`
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = scoring.Today(s.now())
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	scores, err := s.db.TopScores(date, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]scoreView, 0, len(scores))
	for _, sc := range scores {
		v := scoreView{CompanyID: sc.CompanyID, Date: sc.Date, Score: sc.Score, Reasons: sc.Reasons}
		if c, err := s.db.GetCompany(sc.CompanyID); err == nil && c != nil {
			v.Name, v.Domain = c.Name, c.Domain
		}
		out = append(out, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{"date": date, "scores": out})
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.DraftFilter{Status: q.Get("status")}

	if f.Status != "" && !delivery.ValidStatus(f.Status) {
		writeError(w, http.StatusBadRequest, "unknown status "+f.Status)
		return
	}
	if cid := q.Get("company_id"); cid != "" {
		n, err := strconv.ParseInt(cid, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "company_id must be an integer")
			return
		}
		f.CompanyID = n
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			f.Limit = n
		}
	}

	drafts, err := s.db.ListDrafts(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if drafts == nil {
		drafts = []store.Draft{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.db.GetDraft(chi.URLParam(r, "draftID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "draft not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetStatus accepts a JSON body or a form post from the review page.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draftID")
	form := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

	var req struct {
		Status string `json:"status"`
	}
	if form {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		req.Status = r.PostForm.Get("status")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if !delivery.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(req.Status))
		return
	}

	d, err := delivery.SetStatus(s.db, draftID, req.Status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "draft not found")
		return
	case errors.Is(err, delivery.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("draft status changed", "draft", d.ID, "status", d.Status)

	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
