package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// FeedItem is one entry read from an RSS or Atom feed.
type FeedItem struct {
	Link    string
	Title   string
	Summary string
	Time    *time.Time
}

// RSSFetcher reads feeds with gofeed.
type RSSFetcher struct {
	parser     *gofeed.Parser
	maxEntries int
}

// NewRSSFetcher returns a fetcher keeping at most maxEntries items per feed.
func NewRSSFetcher(client *http.Client, maxEntries int) *RSSFetcher {
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = userAgent
	return &RSSFetcher{parser: p, maxEntries: maxEntries}
}

// Fetch downloads and parses the feed at url.
func (f *RSSFetcher) Fetch(ctx context.Context, url string) ([]FeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}

	items := feed.Items
	if f.maxEntries > 0 && len(items) > f.maxEntries {
		items = items[:f.maxEntries]
	}

	out := make([]FeedItem, 0, len(items))
	for _, item := range items {
		var ts *time.Time
		if item.PublishedParsed != nil {
			ts = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			ts = item.UpdatedParsed
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		out = append(out, FeedItem{
			Link:    item.Link,
			Title:   strings.TrimSpace(item.Title),
			Summary: htmlText(summary),
			Time:    ts,
		})
	}
	return out, nil
}

// htmlText reduces an HTML fragment to its whitespace-collapsed text.
func htmlText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
