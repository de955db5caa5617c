// Package ingest pulls company signals from RSS feeds and job boards into
// the event store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lazypower/prospector/internal/config"
	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/store"
)

// Result summarizes one ingest run.
type Result struct {
	Companies  int `json:"companies"`
	Sources    int `json:"sources"`
	Failed     int `json:"failed"`
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// Ingester fetches every configured source and records new events.
type Ingester struct {
	DB          *store.DB
	RSS         *RSSFetcher
	Jobs        *JobsFetcher
	Concurrency int
	Log         *slog.Logger
}

// New builds an Ingester from the ingest section of the config.
func New(db *store.DB, cfg config.IngestConfig, log *slog.Logger) *Ingester {
	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}
	return &Ingester{
		DB:          db,
		RSS:         NewRSSFetcher(client, cfg.MaxEntries),
		Jobs:        NewJobsFetcher(client, cfg.MaxEntries, cfg.Browser),
		Concurrency: cfg.Concurrency,
		Log:         logging.OrDefault(log),
	}
}

type source struct {
	company store.Company
	kind    string
	url     string
}

// Run upserts each company and ingests its sources. Sources are fetched
// concurrently; a source that fails is logged and contributes no events.
// Events are written sequentially in configuration order.
func (in *Ingester) Run(ctx context.Context, companies []config.CompanySpec) (Result, error) {
	log := logging.OrDefault(in.Log)
	var res Result

	var sources []source
	for _, cs := range companies {
		c := store.Company{Name: cs.Name, Domain: cs.Domain, ICPTags: cs.ICPTags}
		if err := in.DB.UpsertCompany(&c); err != nil {
			return res, fmt.Errorf("ingest: %w", err)
		}
		res.Companies++
		for _, u := range cs.Sources.RSS {
			sources = append(sources, source{company: c, kind: store.EventTypeRSS, url: u})
		}
		for _, u := range cs.Sources.Jobs {
			sources = append(sources, source{company: c, kind: store.EventTypeJob, url: u})
		}
	}
	res.Sources = len(sources)

	fetched := make([][]store.Event, len(sources))
	failed := make([]bool, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	limit := in.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			events, err := in.fetch(gCtx, src)
			if err != nil {
				log.Warn("source fetch failed",
					"company", src.company.Domain, "type", src.kind, "url", src.url, "error", err)
				failed[i] = true
				return nil
			}
			fetched[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	for i := range sources {
		if failed[i] {
			res.Failed++
		}
		for j := range fetched[i] {
			e := &fetched[i][j]
			res.Fetched++
			ok, err := in.DB.InsertEvent(e)
			if err != nil {
				return res, fmt.Errorf("ingest: %w", err)
			}
			if ok {
				res.Inserted++
			} else {
				res.Duplicates++
			}
		}
	}

	log.Info("ingest complete",
		"companies", res.Companies,
		"sources", res.Sources,
		"failed", res.Failed,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
	)
	return res, nil
}

func (in *Ingester) fetch(ctx context.Context, src source) ([]store.Event, error) {
	cid := src.company.ID
	switch src.kind {
	case store.EventTypeRSS:
		items, err := in.RSS.Fetch(ctx, src.url)
		if err != nil {
			return nil, err
		}
		events := make([]store.Event, 0, len(items))
		for _, it := range items {
			events = append(events, store.Event{
				ID:        store.EventID(cid, store.EventTypeRSS, it.Link),
				CompanyID: cid,
				Source:    src.url,
				Type:      store.EventTypeRSS,
				Time:      it.Time,
				URL:       it.Link,
				Title:     it.Title,
				RawText:   it.Summary,
			})
		}
		return events, nil

	case store.EventTypeJob:
		titles, err := in.Jobs.Fetch(ctx, src.url)
		if err != nil {
			return nil, err
		}
		events := make([]store.Event, 0, len(titles))
		for _, title := range titles {
			events = append(events, store.Event{
				ID:        store.EventID(cid, store.EventTypeJob, src.url+"|"+title),
				CompanyID: cid,
				Source:    src.url,
				Type:      store.EventTypeJob,
				URL:       src.url,
				Title:     title,
			})
		}
		return events, nil
	}
	return nil, fmt.Errorf("unknown source type %q", src.kind)
}
