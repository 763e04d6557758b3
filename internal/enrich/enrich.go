// Package enrich builds article drafts through three stages: outline,
// section writing, and E-E-A-T enrichment. Generation is template-based;
// the stage seams and metrics are shaped so an LLM backend can replace the
// templates without changing callers.
package enrich

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/orion-content/orion/internal/models"
	"github.com/orion-content/orion/internal/rulebook"
)

// StageMetrics records generation cost for one stage.
type StageMetrics struct {
	Stage     string  `json:"stage"`
	Model     string  `json:"model"`
	Tokens    int     `json:"tokens"`
	LatencyMS int64   `json:"latency_ms"`
	CostUSD   float64 `json:"cost_usd"`
}

// OutlineSection is one planned section of the article.
type OutlineSection struct {
	ID              string
	Heading         string
	KeyPoints       []string
	CitationsNeeded bool
}

// Outline is the stage-1 result.
type Outline struct {
	Sections       []OutlineSection
	PrimaryKeyword string
	PersonaNote    string
	AudienceNote   string
	Metrics        StageMetrics
}

// Draft is the stage-2 result: markdown body per section.
type Draft struct {
	Sections       []draftSection
	PrimaryKeyword string
	Metrics        StageMetrics
}

type draftSection struct {
	markdown        string
	citationsNeeded bool
}

// Result is the fully built article plus per-stage metrics.
type Result struct {
	Article      models.Article
	Archetype    string
	Stages       []StageMetrics
	TotalTokens  int
	TotalCostUSD float64
}

var defaultSections = []string{"Introduction", "Key Points", "How To", "FAQs", "Summary"}

const defaultAuthorBio = "Article by expert content team with years of experience in this field."

// Builder generates articles. Not safe for concurrent use; each site worker
// builds with its own instance.
type Builder struct {
	rng *rand.Rand
	md  goldmark.Markdown
}

// NewBuilder seeds a builder. The same seed reproduces the same drafts.
func NewBuilder(seed int64) *Builder {
	return &Builder{
		rng: rand.New(rand.NewSource(seed)),
		md:  goldmark.New(),
	}
}

// Build runs all three stages and renders the final HTML.
func (b *Builder) Build(topic models.Topic, strategy models.Strategy, rules rulebook.Rules, promptStrategy string) (Result, error) {
	archetype := b.resolveArchetype(promptStrategy, strategy.Archetypes)

	outline := b.Outline(topic, strategy, rules)
	draft := b.WriteSections(outline, topic, archetype)
	article, eeatMetrics := b.EnrichEEAT(draft, topic, strategy, rules)

	html, err := b.render(article.Markdown)
	if err != nil {
		return Result{}, fmt.Errorf("rendering article for %q: %w", topic.Title, err)
	}
	article.HTML = html

	stages := []StageMetrics{outline.Metrics, draft.Metrics, eeatMetrics}
	result := Result{Article: article, Archetype: archetype, Stages: stages}
	for _, s := range stages {
		result.TotalTokens += s.Tokens
		result.TotalCostUSD += s.CostUSD
	}
	return result, nil
}

// Outline plans the article structure. The rulebook's content layout drives
// the sections unless the topic carries the ignore_rulebook flag.
func (b *Builder) Outline(topic models.Topic, strategy models.Strategy, rules rulebook.Rules) Outline {
	start := time.Now()

	layout := rules.AIO.ContentLayout
	if topic.HasFlag("ignore_rulebook") {
		layout = nil
	}

	var sections []OutlineSection
	if len(layout) > 0 {
		for _, section := range layout {
			sections = append(sections, OutlineSection{
				ID:      section,
				Heading: headingFor(section),
				KeyPoints: []string{
					fmt.Sprintf("Key point about %s", section),
					fmt.Sprintf("Detail about %s", section),
				},
				CitationsNeeded: rules.EEAT.RequireCitations,
			})
		}
	} else {
		for _, name := range defaultSections {
			id := strings.ReplaceAll(strings.ToLower(name), " ", "_")
			sections = append(sections, OutlineSection{
				ID:      id,
				Heading: name,
				KeyPoints: []string{
					fmt.Sprintf("Key point about %s", strings.ToLower(name)),
					fmt.Sprintf("Detail about %s", strings.ToLower(name)),
				},
				CitationsNeeded: true,
			})
		}
	}

	outline := Outline{
		Sections:       sections,
		PrimaryKeyword: strings.ToLower(topic.Title),
	}
	if strategy.SitePersona != "" {
		outline.PersonaNote = fmt.Sprintf("Write in tone: %s", strategy.SitePersona)
	}
	if strategy.TargetAudience != "" {
		outline.AudienceNote = fmt.Sprintf("Target: %s", strategy.TargetAudience)
	}

	size := 0
	for _, s := range sections {
		size += len(s.Heading)
		for _, p := range s.KeyPoints {
			size += len(p)
		}
	}
	outline.Metrics = stageMetrics("outline", "gpt-4o-mini", size*2, 0.000005, start)
	return outline
}

// WriteSections drafts the body in markdown using the archetype template.
func (b *Builder) WriteSections(outline Outline, topic models.Topic, archetype string) Draft {
	start := time.Now()

	mainTopic := extractMainTopic(topic.Title)
	var sections []draftSection

	if body := b.archetypeSections(archetype, topic, mainTopic); body != nil {
		for _, md := range body {
			sections = append(sections, draftSection{markdown: md, citationsNeeded: true})
		}
	} else {
		for _, so := range outline.Sections {
			var sb strings.Builder
			fmt.Fprintf(&sb, "## %s\n\n", so.Heading)
			for _, point := range so.KeyPoints {
				fmt.Fprintf(&sb, "This section covers %s. Here we explain the important aspects and provide actionable insights.\n\n", point)
			}
			sections = append(sections, draftSection{markdown: strings.TrimRight(sb.String(), "\n"), citationsNeeded: so.CitationsNeeded})
		}
	}

	size := 0
	for _, s := range sections {
		size += len(s.markdown)
	}
	return Draft{
		Sections:       sections,
		PrimaryKeyword: outline.PrimaryKeyword,
		Metrics:        stageMetrics("sections", "gpt-4o-mini", size*3, 0.000005, start),
	}
}

// EnrichEEAT applies citations, the author bio, and the SEO metadata, and
// assembles the final markdown.
func (b *Builder) EnrichEEAT(draft Draft, topic models.Topic, strategy models.Strategy, rules rulebook.Rules) (models.Article, StageMetrics) {
	start := time.Now()

	title := adjustTitle(topic.Title, rules.SEO.TitleLength)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	for _, section := range draft.Sections {
		sb.WriteString(section.markdown)
		sb.WriteString("\n\n")
		if section.citationsNeeded && rules.EEAT.RequireCitations && len(strategy.PreferredSources) > 0 {
			source := strategy.PreferredSources[b.rng.Intn(len(strategy.PreferredSources))]
			fmt.Fprintf(&sb, "*Source: %s*\n\n", source)
		}
	}

	if rules.EEAT.RequireAuthorBio {
		bio := strategy.AuthorBioTemplate
		if bio == "" {
			bio = defaultAuthorBio
		}
		fmt.Fprintf(&sb, "---\n\n%s\n", bio)
	}

	markdown := sb.String()
	article := models.Article{
		Title:           title,
		MetaDescription: composeMetaDescription(draft.PrimaryKeyword, rules.SEO.MetaDescription),
		PrimaryKeyword:  draft.PrimaryKeyword,
		Markdown:        markdown,
		Categories:      extractCategories(topic.Title),
	}
	return article, stageMetrics("eeat_enrichment", "gpt-4o", len(markdown)*2, 0.00001, start)
}

func (b *Builder) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// resolveArchetype maps a prompt strategy to a section template. "random"
// draws from the named archetypes; an unknown name falls back to the site's
// highest-priority archetype, then to the default template.
func (b *Builder) resolveArchetype(promptStrategy string, archetypes []models.Archetype) string {
	switch promptStrategy {
	case "", "default":
		return "default"
	case "random":
		return namedArchetypes[b.rng.Intn(len(namedArchetypes))]
	}
	for _, name := range namedArchetypes {
		if name == promptStrategy {
			return name
		}
	}
	best := ""
	bestPriority := -1.0
	for _, a := range archetypes {
		if a.Priority > bestPriority && isNamedArchetype(a.Name) {
			best, bestPriority = a.Name, a.Priority
		}
	}
	if best != "" {
		return best
	}
	return "default"
}

// adjustTitle pads short titles and truncates long ones to the rule range.
// Length counts runes, so truncating a multibyte title keeps valid UTF-8.
func adjustTitle(title string, r rulebook.Range) string {
	runes := []rune(title)
	if len(runes) < r.Min {
		return title + " - Complete Guide"
	}
	if len(runes) > r.Max {
		return string(runes[:r.Max]) + "..."
	}
	return title
}

func composeMetaDescription(keyword string, r rulebook.Range) string {
	meta := fmt.Sprintf("Learn about %s with expert insights.", keyword)
	for len(meta) < r.Min {
		meta += " Complete guide with actionable tips and reliable sources."
	}
	if len(meta) > r.Max {
		meta = meta[:r.Max]
	}
	return meta
}

// headingFor renders a layout section id as a heading.
func headingFor(section string) string {
	words := strings.Fields(strings.ReplaceAll(section, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func stageMetrics(stage, model string, tokens int, perToken float64, start time.Time) StageMetrics {
	return StageMetrics{
		Stage:     stage,
		Model:     model,
		Tokens:    tokens,
		LatencyMS: time.Since(start).Milliseconds(),
		CostUSD:   float64(tokens) * perToken,
	}
}
