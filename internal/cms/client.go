// Package cms is the HTTP client for the central content API: sites,
// weeks, topic batches, job-run bookkeeping, and per-site secrets.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// APIError is returned for non-2xx responses so callers can branch on the
// status code.
type APIError struct {
	StatusCode int
	Body       string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed: %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Site is a managed site with its categories.
type Site struct {
	ID         string     `json:"id"`
	Key        string     `json:"key"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// Category is one content category of a site.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Week is one planning week.
type Week struct {
	ID      string `json:"id"`
	ISOWeek string `json:"isoWeek"`
	Status  string `json:"status"`
}

// TopicPayload is the wire shape for bulk topic creation.
type TopicPayload struct {
	SiteID     string  `json:"siteId"`
	CategoryID string  `json:"categoryId"`
	Title      string  `json:"title"`
	Angle      string  `json:"angle,omitempty"`
	Score      float64 `json:"score"`
	Approved   bool    `json:"approved"`
}

// JobRun identifies a recorded job run.
type JobRun struct {
	ID string `json:"id"`
}

// SiteSecrets holds WordPress credentials stored centrally for a site.
type SiteSecrets struct {
	BaseURL     string `json:"baseUrl"`
	Username    string `json:"username"`
	AppPassword string `json:"appPassword"`
}

// maxRetries is the number of additional attempts after the first request.
const maxRetries = 3

// Client talks to the content API with bearer auth and bounded retries on
// 429 and 5xx responses.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// backoff returns the wait before retry attempt n (1-based).
	// Overridable in tests.
	backoff func(attempt int) time.Duration
}

// NewClient builds a client for the given API base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// do runs one API call, retrying transient failures, and decodes the JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding request for %s %s: %w", method, path, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("building request for %s %s: %w", method, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("network error on %s %s: %w", method, path, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response for %s %s: %w", method, path, err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decoding response for %s %s: %w", method, path, err)
			}
			return nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Method:     method,
			Path:       path,
		}
		if !retryable(resp.StatusCode) {
			return apiErr
		}
		lastErr = apiErr
	}
	return lastErr
}

// Health checks the API is reachable and reporting ok.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &status); err != nil {
		return err
	}
	if !status.OK {
		return fmt.Errorf("api health check reported not ok")
	}
	return nil
}

// GetSites returns all sites. The API historically returned either a bare
// list or an object wrapping one.
func (c *Client) GetSites(ctx context.Context) ([]Site, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/sites", nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var sites []Site
		if err := json.Unmarshal(trimmed, &sites); err != nil {
			return nil, fmt.Errorf("decoding sites list: %w", err)
		}
		return sites, nil
	}

	var wrapped struct {
		Sites []Site `json:"sites"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding sites object: %w", err)
	}
	return wrapped.Sites, nil
}

// GetSiteByKey returns the site with the given key, or nil if none matches.
func (c *Client) GetSiteByKey(ctx context.Context, key string) (*Site, error) {
	sites, err := c.GetSites(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sites {
		if sites[i].Key == key {
			return &sites[i], nil
		}
	}
	return nil, nil
}

// ISOWeek formats a date as the API's week identifier.
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// EnsureWeek creates the week containing start, or fetches it when the API
// reports it already exists.
func (c *Client) EnsureWeek(ctx context.Context, start time.Time) (*Week, error) {
	isoWeek := ISOWeek(start)

	var week Week
	err := c.do(ctx, http.MethodPost, "/api/weeks", map[string]string{"isoWeek": isoWeek}, &week)
	if err == nil {
		log.Printf("created week %s", isoWeek)
		return &week, nil
	}

	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusBadRequest ||
		!strings.Contains(strings.ToLower(apiErr.Body), "already exists") {
		return nil, err
	}

	var weeks []Week
	if err := c.do(ctx, http.MethodGet, "/api/weeks", nil, &weeks); err != nil {
		return nil, err
	}
	for i := range weeks {
		if weeks[i].ISOWeek == isoWeek {
			return &weeks[i], nil
		}
	}
	return nil, fmt.Errorf("week %s should exist but was not found", isoWeek)
}

// BulkCreateTopics posts a topic batch for a week and returns how many the
// API created. Topics missing required identifiers are rejected locally.
func (c *Client) BulkCreateTopics(ctx context.Context, weekID string, topics []TopicPayload) (int, error) {
	if len(topics) == 0 {
		return 0, nil
	}
	for i, t := range topics {
		if t.SiteID == "" || t.CategoryID == "" || t.Title == "" {
			return 0, fmt.Errorf("topic %d missing required fields (siteId, categoryId, title)", i)
		}
	}

	var result struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/api/weeks/%s/topics", weekID)
	err := c.do(ctx, http.MethodPost, path, map[string]any{"topics": topics}, &result)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// JobRunStart records the start of a job run. A missing endpoint (404) is
// tolerated and yields a nil run.
func (c *Client) JobRunStart(ctx context.Context, kind string, meta map[string]string) (*JobRun, error) {
	body := map[string]any{
		"jobType":   kind,
		"startedAt": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		body[k] = v
	}

	var run JobRun
	err := c.do(ctx, http.MethodPost, "/api/jobrun", body, &run)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			log.Printf("jobrun endpoint not available, skipping")
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// JobRunFinish records the end of a job run; like JobRunStart, a 404 is
// tolerated.
func (c *Client) JobRunFinish(ctx context.Context, runID, status string, meta map[string]string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	body := map[string]any{
		"jobType":   "finish-" + runID,
		"startedAt": now,
		"endedAt":   now,
		"ok":        status == "success",
		"notes":     "Status: " + status,
	}
	for k, v := range meta {
		body[k] = v
	}

	err := c.do(ctx, http.MethodPost, "/api/jobrun", body, nil)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			log.Printf("jobrun endpoint not available, skipping")
			return nil
		}
		return err
	}
	return nil
}

// GetSiteSecrets fetches the centrally stored WordPress credentials for a
// site. A 404 means none are stored; that is not an error.
func (c *Client) GetSiteSecrets(ctx context.Context, siteKey string) (*SiteSecrets, error) {
	var secrets SiteSecrets
	path := "/api/setup/secrets/wp:" + siteKey
	if err := c.do(ctx, http.MethodGet, path, nil, &secrets); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &secrets, nil
}
