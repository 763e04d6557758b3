// Package publish pushes finished articles to WordPress over the REST API.
// Without credentials the publisher runs dry: it logs what it would send and
// returns a synthetic result so the rest of the pipeline behaves the same.
package publish

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

// DryRunID marks results produced without a real WordPress call.
const DryRunID = "dry-run"

// Credentials hold WordPress REST API access for one site.
type Credentials struct {
	BaseURL     string
	Username    string
	AppPassword string
}

// Complete reports whether all fields needed for a real API call are set.
func (c Credentials) Complete() bool {
	return c.BaseURL != "" && c.Username != "" && c.AppPassword != ""
}

// PostResult describes the created post.
type PostResult struct {
	ID     string `json:"id"`
	Link   string `json:"link"`
	Status string `json:"status"`
}

// PostRequest is the content to publish.
type PostRequest struct {
	Title      string
	Content    string
	Status     string
	Categories []string
	Tags       []string
}

// Publisher creates posts on one WordPress site.
type Publisher struct {
	creds      Credentials
	httpClient *http.Client
}

// NewPublisher builds a publisher. Incomplete credentials put it in dry-run
// mode.
func NewPublisher(creds Credentials) *Publisher {
	return &Publisher{
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// DryRun reports whether this publisher only simulates posting.
func (p *Publisher) DryRun() bool {
	return !p.creds.Complete()
}

// CreatePost creates a post with the given status. In dry-run mode it returns
// a fixed result without touching the network.
func (p *Publisher) CreatePost(ctx context.Context, req PostRequest) (*PostResult, error) {
	if req.Status == "" {
		req.Status = "draft"
	}

	if p.DryRun() {
		log.Printf("dry run: would create %s post %q (%d chars, categories %v)",
			req.Status, req.Title, len(req.Content), req.Categories)
		return &PostResult{
			ID:     DryRunID,
			Link:   "https://example.com/dry-run-post",
			Status: req.Status,
		}, nil
	}

	payload := map[string]any{
		"title":   req.Title,
		"content": req.Content,
		"status":  req.Status,
	}
	if len(req.Tags) > 0 {
		// WordPress expects tag IDs; names go into the excerpt-free meta via
		// the REST tags endpoint in a fuller integration. Sent as-is here so
		// sites with name-based tag plugins pick them up.
		payload["tags"] = req.Tags
	}
	if len(req.Categories) > 0 {
		log.Printf("categories requested: %v (id mapping not implemented)", req.Categories)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding post payload: %w", err)
	}

	url := strings.TrimRight(p.creds.BaseURL, "/") + "/wp-json/wp/v2/posts"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building wordpress request: %w", err)
	}
	httpReq.SetBasicAuth(p.creds.Username, p.creds.AppPassword)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("posting to wordpress: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading wordpress response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wordpress api returned %d: %s", resp.StatusCode, string(respBody))
	}

	// WordPress sends the post id as a number.
	var wire struct {
		ID     json.Number `json:"id"`
		Link   string      `json:"link"`
		Status string      `json:"status"`
	}
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("decoding wordpress response: %w", err)
	}

	log.Printf("created wordpress post %s (%s)", wire.ID.String(), wire.Status)
	return &PostResult{
		ID:     wire.ID.String(),
		Link:   wire.Link,
		Status: wire.Status,
	}, nil
}
