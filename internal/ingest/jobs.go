package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "prospector/1.0 (+https://github.com/lazypower/prospector)"

// JobsFetcher scrapes job titles from a careers page.
type JobsFetcher struct {
	client     *http.Client
	maxEntries int
	browser    bool
	timeout    time.Duration
}

// NewJobsFetcher returns a fetcher keeping at most maxEntries titles per
// page. With browser set, pages are rendered in headless Chrome first.
func NewJobsFetcher(client *http.Client, maxEntries int, browser bool) *JobsFetcher {
	return &JobsFetcher{client: client, maxEntries: maxEntries, browser: browser, timeout: client.Timeout}
}

// Fetch returns the job titles found at url.
func (f *JobsFetcher) Fetch(ctx context.Context, url string) ([]string, error) {
	var html string
	var err error
	if f.browser {
		html, err = renderHTML(ctx, url, f.timeout)
	} else {
		html, err = f.get(ctx, url)
	}
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse jobs page %s: %w", url, err)
	}
	return jobTitles(doc, f.maxEntries), nil
}

func (f *JobsFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching jobs page %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching jobs page %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read jobs page %s: %w", url, err)
	}
	return string(body), nil
}

// jobTitles collects the text of links and blocks that look like postings:
// an href or class mentioning "job". Pages without any fall back to
// headings and links.
func jobTitles(doc *goquery.Document, limit int) []string {
	var titles []string
	doc.Find("a, div").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		class, _ := s.Attr("class")
		if !strings.Contains(href, "job") && !strings.Contains(strings.ToLower(class), "job") {
			return
		}
		if t := cleanText(s.Text()); t != "" {
			titles = append(titles, t)
		}
	})

	if len(titles) == 0 {
		doc.Find("h3, h4, a").Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				titles = append(titles, t)
			}
		})
	}

	if limit > 0 && len(titles) > limit {
		titles = titles[:limit]
	}
	return titles
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
