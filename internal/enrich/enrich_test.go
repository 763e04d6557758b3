package enrich

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/orion-content/orion/internal/models"
	"github.com/orion-content/orion/internal/rulebook"
)

func testTopic() models.Topic {
	return models.Topic{
		SiteID:     "site-1",
		CategoryID: "cat-1",
		Title:      "Technology Analysis: Edge Computing",
		Angle:      "Exploring Edge Computing from multiple perspectives.",
		Score:      0.8,
	}
}

func TestOutlineFollowsRulebookLayout(t *testing.T) {
	b := NewBuilder(1)
	outline := b.Outline(testTopic(), models.DefaultStrategy(), rulebook.DefaultRules())

	want := []string{"intro", "key_points", "how_to", "faqs", "summary"}
	if len(outline.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(outline.Sections))
	}
	for i, section := range outline.Sections {
		if section.ID != want[i] {
			t.Errorf("section %d: expected %q, got %q", i, want[i], section.ID)
		}
		if !section.CitationsNeeded {
			t.Errorf("section %q: expected citations needed", section.ID)
		}
	}
	if outline.Sections[1].Heading != "Key Points" {
		t.Errorf("unexpected heading: %q", outline.Sections[1].Heading)
	}
	if outline.PrimaryKeyword != "technology analysis: edge computing" {
		t.Errorf("unexpected primary keyword: %q", outline.PrimaryKeyword)
	}
	if outline.PersonaNote == "" || outline.AudienceNote == "" {
		t.Error("expected persona and audience notes from strategy")
	}
	if outline.Metrics.Stage != "outline" || outline.Metrics.Tokens == 0 {
		t.Errorf("unexpected metrics: %+v", outline.Metrics)
	}
}

func TestOutlineIgnoreRulebookFlag(t *testing.T) {
	topic := testTopic()
	topic.Flags = map[string]bool{"ignore_rulebook": true}

	b := NewBuilder(1)
	outline := b.Outline(topic, models.DefaultStrategy(), rulebook.DefaultRules())

	if len(outline.Sections) != 5 || outline.Sections[0].ID != "introduction" {
		t.Errorf("expected default sections when flag set, got %+v", outline.Sections)
	}
}

func TestBuildProducesRenderedArticle(t *testing.T) {
	b := NewBuilder(7)
	strategy := models.DefaultStrategy()
	strategy.PreferredSources = []string{"https://example.org/research"}

	result, err := b.Build(testTopic(), strategy, rulebook.DefaultRules(), "default")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.Archetype != "default" {
		t.Errorf("expected default archetype, got %q", result.Archetype)
	}
	if !strings.HasPrefix(result.Article.Markdown, "# ") {
		t.Errorf("expected markdown title heading, got %q", result.Article.Markdown[:40])
	}
	if !strings.Contains(result.Article.HTML, "<h1>") || !strings.Contains(result.Article.HTML, "<h2>") {
		t.Error("expected rendered h1 and h2 elements")
	}
	if !strings.Contains(result.Article.Markdown, "*Source: https://example.org/research*") {
		t.Error("expected citation scaffolding from preferred sources")
	}
	if !strings.Contains(result.Article.Markdown, defaultAuthorBio) {
		t.Error("expected default author bio appended")
	}
	if len(result.Stages) != 3 {
		t.Fatalf("expected 3 stage metrics, got %d", len(result.Stages))
	}
	if result.TotalTokens == 0 || result.TotalCostUSD == 0 {
		t.Errorf("expected accumulated totals, got %+v", result)
	}
}

func TestBuildSkipsBioWhenNotRequired(t *testing.T) {
	rules := rulebook.DefaultRules()
	rules.EEAT.RequireAuthorBio = false
	rules.EEAT.RequireCitations = false

	b := NewBuilder(7)
	result, err := b.Build(testTopic(), models.DefaultStrategy(), rules, "default")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(result.Article.Markdown, defaultAuthorBio) {
		t.Error("bio must be absent when not required")
	}
	if strings.Contains(result.Article.Markdown, "*Source:") {
		t.Error("citations must be absent when not required")
	}
}

func TestArchetypeTemplates(t *testing.T) {
	cases := []struct {
		archetype string
		marker    string
	}{
		{"listicle", "## Top 5 Insights About"},
		{"howto", "### Step 1: Assessment and Planning"},
		{"analysis", "## Executive Summary"},
		{"interview", "**A:**"},
		{"case_study", "## Lessons Learned"},
	}

	for _, c := range cases {
		b := NewBuilder(3)
		result, err := b.Build(testTopic(), models.DefaultStrategy(), rulebook.DefaultRules(), c.archetype)
		if err != nil {
			t.Fatalf("Build(%s): %v", c.archetype, err)
		}
		if result.Archetype != c.archetype {
			t.Errorf("expected archetype %q, got %q", c.archetype, result.Archetype)
		}
		if !strings.Contains(result.Article.Markdown, c.marker) {
			t.Errorf("archetype %q: missing marker %q", c.archetype, c.marker)
		}
	}
}

func TestResolveArchetype(t *testing.T) {
	b := NewBuilder(1)

	if got := b.resolveArchetype("", nil); got != "default" {
		t.Errorf("empty strategy: got %q", got)
	}
	if got := b.resolveArchetype("howto", nil); got != "howto" {
		t.Errorf("named strategy: got %q", got)
	}
	if got := b.resolveArchetype("random", nil); !isNamedArchetype(got) {
		t.Errorf("random strategy: got %q", got)
	}

	archetypes := []models.Archetype{
		{Name: "listicle", Priority: 0.3},
		{Name: "analysis", Priority: 0.9},
	}
	if got := b.resolveArchetype("unknown.txt", archetypes); got != "analysis" {
		t.Errorf("expected highest-priority archetype fallback, got %q", got)
	}
	if got := b.resolveArchetype("unknown.txt", nil); got != "default" {
		t.Errorf("expected default fallback, got %q", got)
	}
}

func TestAnalysisConfidenceBands(t *testing.T) {
	topic := testTopic()

	topic.Score = 0.9
	if !strings.Contains(analysisSections(topic, "Edge Computing")[0], "strong momentum") {
		t.Error("expected strong momentum above 0.7")
	}
	topic.Score = 0.5
	if !strings.Contains(analysisSections(topic, "Edge Computing")[0], "emerging trends") {
		t.Error("expected emerging trends above 0.4")
	}
	topic.Score = 0.2
	if !strings.Contains(analysisSections(topic, "Edge Computing")[0], "early indicators") {
		t.Error("expected early indicators at low scores")
	}
}

func TestAdjustTitle(t *testing.T) {
	r := rulebook.Range{Min: 40, Max: 60}

	if got := adjustTitle("Short Title", r); got != "Short Title - Complete Guide" {
		t.Errorf("expected guide suffix, got %q", got)
	}

	long := strings.Repeat("x", 70)
	if got := adjustTitle(long, r); len(got) != 63 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation to 60+ellipsis, got %q (len %d)", got, len(got))
	}

	ok := strings.Repeat("y", 50)
	if got := adjustTitle(ok, r); got != ok {
		t.Errorf("in-range title must be untouched, got %q", got)
	}
}

func TestAdjustTitleMultibyte(t *testing.T) {
	r := rulebook.Range{Min: 40, Max: 60}

	wide := strings.Repeat("金", 70)
	got := adjustTitle(wide, r)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("金", 60) + "..."; got != want {
		t.Errorf("expected truncation on a rune boundary, got %q", got)
	}

	dashed := "Technology Trend #07 — " + strings.Repeat("Edge Computing ", 5)
	if got := adjustTitle(dashed, r); !utf8.ValidString(got) {
		t.Errorf("truncated title is not valid UTF-8: %q", got)
	}
}

func TestComposeMetaDescription(t *testing.T) {
	meta := composeMetaDescription("edge computing", rulebook.Range{Min: 150, Max: 160})
	if len(meta) < 150 || len(meta) > 160 {
		t.Errorf("meta description length %d outside range", len(meta))
	}
	if !strings.HasPrefix(meta, "Learn about edge computing") {
		t.Errorf("unexpected meta description: %q", meta)
	}
}

func TestExtractMainTopic(t *testing.T) {
	cases := map[string]string{
		"Technology Trend #07 — Edge Computing":       "Edge Computing",
		"Technology Analysis: Edge Computing":         "Edge Computing",
		"Breaking: Quantum Algorithms in Technology":  "Quantum Algorithms in Technology",
		"Plain Title Without Separators At All":       "Plain Title Without",
	}
	for title, want := range cases {
		if got := extractMainTopic(title); got != want {
			t.Errorf("extractMainTopic(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestExtractCategories(t *testing.T) {
	got := extractCategories("AI Market Analysis: Future Trends in Enterprise Research")
	if len(got) != 3 {
		t.Fatalf("expected cap at 3 categories, got %v", got)
	}
	if got[0] != "Technology" || got[1] != "Business" || got[2] != "Innovation" {
		t.Errorf("unexpected categories: %v", got)
	}

	if got := extractCategories("Nothing Matching Here"); got[0] != "General" {
		t.Errorf("expected default categories, got %v", got)
	}
}
