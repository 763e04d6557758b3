package topics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orion-content/orion/internal/models"
)

func testCategories() []Category {
	return []Category{
		{ID: "cat-1", Name: "Technology"},
		{ID: "cat-2", Name: "AI"},
		{ID: "cat-3", Name: "Business"},
	}
}

func TestGenerateDistributesAcrossCategories(t *testing.T) {
	g := NewGenerator(42, nil)
	topics := g.Generate("site-1", testCategories(), 7)

	if len(topics) != 7 {
		t.Fatalf("expected 7 topics, got %d", len(topics))
	}

	perCategory := map[string]int{}
	for _, topic := range topics {
		perCategory[topic.CategoryID]++
		if topic.SiteID != "site-1" {
			t.Errorf("unexpected site id %q", topic.SiteID)
		}
		if topic.Title == "" || topic.Angle == "" {
			t.Errorf("incomplete topic: %+v", topic)
		}
		if topic.Score < 0.3 || topic.Score > 0.9 {
			t.Errorf("score %v outside [0.3, 0.9]", topic.Score)
		}
	}
	// 7 over 3 categories: the first category takes the extra.
	if perCategory["cat-1"] != 3 || perCategory["cat-2"] != 2 || perCategory["cat-3"] != 2 {
		t.Errorf("unexpected distribution: %v", perCategory)
	}
}

func TestGenerateNoCategories(t *testing.T) {
	g := NewGenerator(1, nil)
	if topics := g.Generate("site-1", nil, 5); topics != nil {
		t.Errorf("expected no topics without categories, got %d", len(topics))
	}
}

func TestGenerateUniqueTitles(t *testing.T) {
	g := NewGenerator(7, nil)
	topics := g.Generate("site-1", testCategories(), 30)

	seen := map[string]bool{}
	for _, topic := range topics {
		if seen[topic.Title] {
			t.Errorf("duplicate title within batch: %q", topic.Title)
		}
		seen[topic.Title] = true
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	a := NewGenerator(99, nil).Generate("site-1", testCategories(), 6)
	b := NewGenerator(99, nil).Generate("site-1", testCategories(), 6)

	for i := range a {
		if a[i].Title != b[i].Title || a[i].Score != b[i].Score {
			t.Fatalf("seeded generation diverged at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestLoadTrendsFromFeed(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Trends</title>
<item><title>Vector Databases</title><description>Vector databases are reshaping retrieval. More detail follows.</description></item>
<item><title>Prompt Caching</title><description></description><link>http://example.invalid/prompt-caching</link></item>
</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer srv.Close()

	g := NewGenerator(5, []string{srv.URL})
	g.extractAngle = func(_ context.Context, url string) string {
		return "Derived from " + url
	}
	g.LoadTrends(context.Background())

	if len(g.trends) != 2 {
		t.Fatalf("expected 2 trend subjects, got %d", len(g.trends))
	}
	if g.trends[0].angle != "Vector databases are reshaping retrieval." {
		t.Errorf("expected first-sentence angle, got %q", g.trends[0].angle)
	}
	if g.trends[1].angle != "Derived from http://example.invalid/prompt-caching" {
		t.Errorf("expected extracted angle, got %q", g.trends[1].angle)
	}

	topics := g.Generate("site-1", testCategories()[:1], 2)
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	if !strings.Contains(topics[0].Title, "Vector Databases") {
		t.Errorf("expected trend subject in title, got %q", topics[0].Title)
	}
	if topics[0].Angle != "Vector databases are reshaping retrieval." {
		t.Errorf("expected trend angle carried over, got %q", topics[0].Angle)
	}
}

func TestLoadTrendsBadFeedSkipped(t *testing.T) {
	g := NewGenerator(5, []string{"http://127.0.0.1:0/nope"})
	g.LoadTrends(context.Background())
	if len(g.trends) != 0 {
		t.Errorf("expected no trends from unreachable feed, got %d", len(g.trends))
	}
}

func TestDeduplicate(t *testing.T) {
	topics := []models.Topic{
		{Title: "A", CategoryID: "1"},
		{Title: "B", CategoryID: "1"},
		{Title: "A", CategoryID: "2"},
	}
	out := Deduplicate(topics)
	if len(out) != 2 {
		t.Fatalf("expected 2 topics after dedupe, got %d", len(out))
	}
	if out[0].Title != "A" || out[0].CategoryID != "1" {
		t.Errorf("expected first occurrence kept, got %+v", out[0])
	}
}

func TestDefaultAngle(t *testing.T) {
	got := defaultAngle("Technology Trend #07 — Edge Computing")
	want := "Exploring Technology Trend #07 from multiple perspectives"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("  First sentence. Second sentence."); got != "First sentence." {
		t.Errorf("unexpected summary %q", got)
	}
	if got := summarize(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
