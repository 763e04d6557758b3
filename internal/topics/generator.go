// Package topics generates weekly article topics for a site, distributed
// across its categories. Template pools stand in for editorial planning;
// configured trend feeds contribute real subjects when available.
package topics

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/orion-content/orion/internal/models"
)

// Category is one site category topics are generated for.
type Category struct {
	ID   string
	Name string
}

var topicTemplates = []string{
	"{category} Trend #{num} — {subject}",
	"{category} Update: {subject}",
	"Latest in {category}: {subject}",
	"{subject} — A {category} Deep Dive",
	"Breaking: {subject} in {category}",
	"{category} Analysis: {subject}",
	"The Future of {subject} in {category}",
	"{subject}: What {category} Leaders Need to Know",
}

var techSubjects = []string{
	"AI Transformers", "Edge Computing", "Quantum Algorithms", "Neural Networks",
	"Cloud Architecture", "Blockchain Innovation", "IoT Security", "5G Networks",
	"DevOps Automation", "Serverless Computing", "Machine Learning", "Data Analytics",
}

var aiSubjects = []string{
	"Large Language Models", "Computer Vision", "Natural Language Processing",
	"Reinforcement Learning", "Generative AI", "AI Ethics", "MLOps", "AutoML",
	"Federated Learning", "AI Safety", "Robotics AI", "Conversational AI",
}

var businessSubjects = []string{
	"Digital Transformation", "Remote Work", "Supply Chain", "Customer Experience",
	"Market Trends", "Financial Innovation", "Leadership Strategies", "Sustainability",
	"Data-Driven Decisions", "Innovation Management", "Strategic Planning", "Growth Hacking",
}

var subjectPools = map[string][]string{
	"technology":              techSubjects,
	"tech":                    techSubjects,
	"ai":                      aiSubjects,
	"artificial intelligence": aiSubjects,
	"business":                businessSubjects,
	"finance":                 businessSubjects,
	"marketing":               businessSubjects,
}

// trendSubject is a subject pulled from a live feed, with an angle when
// the feed item carried enough text to derive one.
type trendSubject struct {
	subject string
	angle   string
}

// Generator produces topic batches. Not safe for concurrent use; the
// scheduler gives each site worker its own generator.
type Generator struct {
	rng      *rand.Rand
	feedURLs []string
	parser   *gofeed.Parser
	trends   []trendSubject

	// extractAngle derives an angle from a feed item's page when the item
	// has no summary. Overridable in tests.
	extractAngle func(ctx context.Context, url string) string
}

// NewGenerator seeds a generator. feedURLs may be empty; generation then
// relies on the built-in subject pools alone.
func NewGenerator(seed int64, feedURLs []string) *Generator {
	return &Generator{
		rng:          rand.New(rand.NewSource(seed)),
		feedURLs:     feedURLs,
		parser:       gofeed.NewParser(),
		extractAngle: extractAngleFromPage,
	}
}

// LoadTrends fetches the configured feeds and queues their items as
// subjects. Feed failures are logged and skipped; generation still works
// from the built-in pools.
func (g *Generator) LoadTrends(ctx context.Context) {
	for _, url := range g.feedURLs {
		feed, err := g.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			log.Printf("skipping trend feed %s: %v", url, err)
			continue
		}
		for _, item := range feed.Items {
			title := strings.TrimSpace(item.Title)
			if title == "" {
				continue
			}
			angle := summarize(item.Description)
			if angle == "" && item.Link != "" {
				angle = g.extractAngle(ctx, item.Link)
			}
			g.trends = append(g.trends, trendSubject{subject: title, angle: angle})
		}
	}
	if len(g.trends) > 0 {
		log.Printf("loaded %d trend subjects from %d feeds", len(g.trends), len(g.feedURLs))
	}
}

// Generate builds topics for a site, spread across its categories. Sites
// without categories get no topics. When count does not divide evenly, the
// leading categories take the extras.
func (g *Generator) Generate(siteID string, categories []Category, count int) []models.Topic {
	if len(categories) == 0 {
		return nil
	}

	perCategory := count / len(categories)
	if perCategory < 1 {
		perCategory = 1
	}
	remaining := count % len(categories)

	var topics []models.Topic
	used := make(map[string]struct{})

	for i, cat := range categories {
		n := perCategory
		if i < remaining {
			n++
		}
		for j := 0; j < n; j++ {
			title, angle := g.nextTitle(cat.Name, used, 0)
			used[title] = struct{}{}
			if angle == "" {
				angle = defaultAngle(title)
			}
			topics = append(topics, models.Topic{
				SiteID:     siteID,
				CategoryID: cat.ID,
				Category:   cat.Name,
				Title:      title,
				Angle:      angle,
				Score:      g.score(),
			})
		}
	}
	return topics
}

// nextTitle builds one title, retrying up to 10 times on collisions.
func (g *Generator) nextTitle(category string, used map[string]struct{}, attempt int) (string, string) {
	subject, angle := g.nextSubject(category)
	template := topicTemplates[g.rng.Intn(len(topicTemplates))]

	title := strings.NewReplacer(
		"{category}", category,
		"{subject}", subject,
		"{num}", fmt.Sprintf("%02d", g.rng.Intn(99)+1),
	).Replace(template)

	if _, taken := used[title]; taken && attempt < 10 {
		return g.nextTitle(category, used, attempt+1)
	}
	return title, angle
}

// nextSubject prefers queued trend subjects, then falls back to the
// category's pool (tech subjects when the category has no pool).
func (g *Generator) nextSubject(category string) (string, string) {
	if len(g.trends) > 0 {
		t := g.trends[0]
		g.trends = g.trends[1:]
		return t.subject, t.angle
	}
	pool, ok := subjectPools[strings.ToLower(category)]
	if !ok {
		pool = techSubjects
	}
	return pool[g.rng.Intn(len(pool))], ""
}

// score yields a topic score in [0.3, 0.9], rounded to two decimals.
func (g *Generator) score() float64 {
	raw := 0.3 + g.rng.Float64()*0.6
	return float64(int(raw*100+0.5)) / 100
}

// defaultAngle derives an angle from the part of the title before any dash.
func defaultAngle(title string) string {
	head := strings.TrimSpace(strings.SplitN(title, "—", 2)[0])
	return fmt.Sprintf("Exploring %s from multiple perspectives", head)
}

// Deduplicate removes exact title duplicates, keeping first occurrences.
func Deduplicate(topics []models.Topic) []models.Topic {
	seen := make(map[string]struct{}, len(topics))
	out := topics[:0:0]
	for _, t := range topics {
		if _, dup := seen[t.Title]; dup {
			continue
		}
		seen[t.Title] = struct{}{}
		out = append(out, t)
	}
	return out
}

// summarize trims a feed item description to a single-sentence angle.
func summarize(description string) string {
	text := strings.TrimSpace(description)
	if text == "" {
		return ""
	}
	if idx := strings.IndexAny(text, ".!?"); idx > 0 {
		text = text[:idx+1]
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// extractAngleFromPage pulls readable text from a feed item's page and
// summarizes it. Failures yield an empty angle rather than an error.
func extractAngleFromPage(ctx context.Context, url string) string {
	_ = ctx
	article, err := readability.FromURL(url, 10*time.Second)
	if err != nil {
		log.Printf("could not extract angle from %s: %v", url, err)
		return ""
	}
	return summarize(article.TextContent)
}
