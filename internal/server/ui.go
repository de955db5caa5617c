package server

import (
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lazypower/prospector/internal/store"
)

var reviewPage = template.Must(template.New("review").Funcs(template.FuncMap{
	"ago": humanize.Time,
}).Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>prospector review</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
article { border: 1px solid #ccc; padding: 1rem; margin-bottom: 1rem; }
pre { white-space: pre-wrap; }
form { display: inline; }
</style>
</head>
<body>
<h1>Queued drafts ({{len .}})</h1>
{{range .}}
<article>
  <h2>{{.Draft.Subject}}</h2>
  <p><small>{{.Company}} &middot; variant {{.Draft.Variant}} &middot; {{ago .Created}} &middot; {{.Draft.ID}}</small></p>
  <pre>{{.Draft.Body}}</pre>
  <ul>{{range .Draft.Sources}}<li><a href="{{.}}">{{.}}</a></li>{{end}}</ul>
  <form method="post" action="/api/drafts/{{.Draft.ID}}/status"><input type="hidden" name="status" value="approved"><button>Approve</button></form>
  <form method="post" action="/api/drafts/{{.Draft.ID}}/status"><input type="hidden" name="status" value="rejected"><button>Reject</button></form>
</article>
{{else}}
<p>Nothing to review.</p>
{{end}}
</body>
</html>
`))

type reviewItem struct {
	Draft   store.Draft
	Company string
	Created time.Time
}

// handleReviewPage renders queued drafts with approve and reject buttons.
func (s *Server) handleReviewPage(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.db.ListDrafts(store.DraftFilter{Status: store.StatusQueued})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	names := map[int64]string{}
	items := make([]reviewItem, 0, len(drafts))
	for _, d := range drafts {
		name, ok := names[d.CompanyID]
		if !ok {
			if c, err := s.db.GetCompany(d.CompanyID); err == nil && c != nil {
				name = c.Name
			}
			names[d.CompanyID] = name
		}
		items = append(items, reviewItem{Draft: d, Company: name, Created: time.UnixMilli(d.CreatedAt)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reviewPage.Execute(w, items); err != nil {
		s.log.Error("render review page", "error", err)
	}
}
