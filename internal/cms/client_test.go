package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "test-token")
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestHealth(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestHealthNotOK(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false}`)
	}))
	if err := c.Health(context.Background()); err == nil {
		t.Fatal("expected error for ok=false")
	}
}

func TestRetryOn503(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetriesExhausted(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected APIError 429, got %v", err)
	}
	if attempts != maxRetries+1 {
		t.Errorf("expected %d attempts, got %d", maxRetries+1, attempts)
	}
}

func TestNoRetryOn400(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "bad input"}`)
	}))
	err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected APIError 400, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("400 must not be retried, got %d attempts", attempts)
	}
}

func TestGetSitesListAndWrapped(t *testing.T) {
	list := `[{"id":"1","key":"site-a","name":"Site A","categories":[{"id":"c1","name":"Tech"}]}]`
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, list)
	}))
	sites, err := c.GetSites(context.Background())
	if err != nil {
		t.Fatalf("GetSites: %v", err)
	}
	if len(sites) != 1 || sites[0].Key != "site-a" || len(sites[0].Categories) != 1 {
		t.Errorf("unexpected sites: %+v", sites)
	}

	c = testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"sites": %s}`, list)
	}))
	sites, err = c.GetSites(context.Background())
	if err != nil {
		t.Fatalf("GetSites wrapped: %v", err)
	}
	if len(sites) != 1 || sites[0].ID != "1" {
		t.Errorf("unexpected wrapped sites: %+v", sites)
	}
}

func TestGetSiteByKey(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"1","key":"site-a"},{"id":"2","key":"site-b"}]`)
	}))

	site, err := c.GetSiteByKey(context.Background(), "site-b")
	if err != nil {
		t.Fatalf("GetSiteByKey: %v", err)
	}
	if site == nil || site.ID != "2" {
		t.Errorf("unexpected site: %+v", site)
	}

	missing, err := c.GetSiteByKey(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown key, got %+v, %v", missing, err)
	}
}

func TestISOWeek(t *testing.T) {
	// 2026-01-01 falls in ISO week 2026-W01.
	d := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := ISOWeek(d); got != "2026-W01" {
		t.Errorf("expected 2026-W01, got %q", got)
	}
}

func TestEnsureWeekCreates(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/weeks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprintf(w, `{"id":"w1","isoWeek":%q,"status":"open"}`, body["isoWeek"])
	}))

	week, err := c.EnsureWeek(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EnsureWeek: %v", err)
	}
	if week.ID != "w1" || week.ISOWeek != "2026-W01" {
		t.Errorf("unexpected week: %+v", week)
	}
}

func TestEnsureWeekAlreadyExists(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "week already exists"}`)
			return
		}
		fmt.Fprint(w, `[{"id":"w9","isoWeek":"2026-W01","status":"open"}]`)
	}))

	week, err := c.EnsureWeek(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EnsureWeek: %v", err)
	}
	if week.ID != "w9" {
		t.Errorf("expected existing week fetched, got %+v", week)
	}
}

func TestBulkCreateTopics(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/weeks/w1/topics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload struct {
			Topics []TopicPayload `json:"topics"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		fmt.Fprintf(w, `{"count": %d}`, len(payload.Topics))
	}))

	topics := []TopicPayload{
		{SiteID: "1", CategoryID: "c1", Title: "A"},
		{SiteID: "1", CategoryID: "c2", Title: "B"},
	}
	count, err := c.BulkCreateTopics(context.Background(), "w1", topics)
	if err != nil {
		t.Fatalf("BulkCreateTopics: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestBulkCreateTopicsValidation(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid topics must not reach the API")
	}))
	_, err := c.BulkCreateTopics(context.Background(), "w1", []TopicPayload{{Title: "no ids"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBulkCreateTopicsEmpty(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty batch must not reach the API")
	}))
	count, err := c.BulkCreateTopics(context.Background(), "w1", nil)
	if err != nil || count != 0 {
		t.Errorf("expected 0, nil for empty batch, got %d, %v", count, err)
	}
}

func TestJobRunTolerates404(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	run, err := c.JobRunStart(context.Background(), "multisite", map[string]string{"site": "a"})
	if err != nil || run != nil {
		t.Errorf("expected nil, nil on 404, got %+v, %v", run, err)
	}
	if err := c.JobRunFinish(context.Background(), "r1", "success", nil); err != nil {
		t.Errorf("expected nil on 404, got %v", err)
	}
}

func TestJobRunStart(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["jobType"] != "multisite" || body["site"] != "site-a" {
			t.Errorf("unexpected body: %v", body)
		}
		fmt.Fprint(w, `{"id": "run-1"}`)
	}))

	run, err := c.JobRunStart(context.Background(), "multisite", map[string]string{"site": "site-a"})
	if err != nil {
		t.Fatalf("JobRunStart: %v", err)
	}
	if run == nil || run.ID != "run-1" {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestGetSiteSecrets(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/setup/secrets/wp:site-a" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"baseUrl":"https://wp.example.com","username":"bot","appPassword":"secret"}`)
	}))

	secrets, err := c.GetSiteSecrets(context.Background(), "site-a")
	if err != nil {
		t.Fatalf("GetSiteSecrets: %v", err)
	}
	if secrets == nil || secrets.BaseURL != "https://wp.example.com" || secrets.Username != "bot" {
		t.Errorf("unexpected secrets: %+v", secrets)
	}
}

func TestGetSiteSecretsMissing(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	secrets, err := c.GetSiteSecrets(context.Background(), "site-a")
	if err != nil || secrets != nil {
		t.Errorf("expected nil, nil on 404, got %+v, %v", secrets, err)
	}
}
