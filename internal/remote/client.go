// Package remote is a client for a running prospector review server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/prospector/internal/store"
)

const (
	defaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 5 * time.Second
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the prospector server.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates a client for serverURL. An empty serverURL falls back to
// PROSPECTOR_URL, then http://127.0.0.1:37778.
func NewClient(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("PROSPECTOR_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListDrafts returns drafts filtered by status and company (zero values match all).
func (c *Client) ListDrafts(ctx context.Context, status string, companyID int64) ([]store.Draft, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if companyID != 0 {
		q.Set("company_id", strconv.FormatInt(companyID, 10))
	}
	path := "/api/drafts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Drafts []store.Draft `json:"drafts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Drafts, nil
}

// GetDraft fetches one draft.
func (c *Client) GetDraft(ctx context.Context, id string) (*store.Draft, error) {
	var d store.Draft
	if err := c.do(ctx, http.MethodGet, "/api/drafts/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SetStatus asks the server to move a draft to status.
func (c *Client) SetStatus(ctx context.Context, id, status string) (*store.Draft, error) {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	var d store.Draft
	if err := c.do(ctx, http.MethodPost, "/api/drafts/"+url.PathEscape(id)+"/status", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}
