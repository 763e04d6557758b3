// Package models holds the domain types shared across the generation,
// quality, and publishing packages.
package models

// Topic is a single article subject queued for generation. Topics are
// immutable once handed to the pipeline.
type Topic struct {
	ID         string          `json:"id,omitempty"`
	SiteID     string          `json:"siteId"`
	CategoryID string          `json:"categoryId"`
	Category   string          `json:"category,omitempty"`
	Title      string          `json:"title"`
	Angle      string          `json:"angle,omitempty"`
	Score      float64         `json:"score"`
	Flags      map[string]bool `json:"flags,omitempty"`
}

// HasFlag reports whether an override flag is set on the topic.
func (t Topic) HasFlag(name string) bool {
	return t.Flags[name]
}

// Archetype is a weighted content archetype a site prefers.
type Archetype struct {
	Name     string  `yaml:"name" json:"name"`
	Priority float64 `yaml:"priority" json:"priority"`
}

// Strategy is a site's editorial strategy layered on top of the global
// rulebook. It is read-only input to generation and assessment.
type Strategy struct {
	SitePersona         string      `yaml:"site_persona" json:"site_persona"`
	TargetAudience      string      `yaml:"target_audience" json:"target_audience"`
	PreferredSources    []string    `yaml:"preferred_sources" json:"preferred_sources,omitempty"`
	Archetypes          []Archetype `yaml:"archetypes" json:"archetypes,omitempty"`
	ToneOfVoice         []string    `yaml:"tone_of_voice" json:"tone_of_voice,omitempty"`
	AuthorBioTemplate   string      `yaml:"author_bio_template" json:"author_bio_template,omitempty"`
	OriginalityProvider string      `yaml:"originality_provider" json:"originality_provider,omitempty"`
}

// DefaultStrategy returns the strategy used when a site configures none.
func DefaultStrategy() Strategy {
	return Strategy{
		SitePersona:    "Practical industry blog for professionals",
		TargetAudience: "Professionals evaluating tools and trends",
		ToneOfVoice:    []string{"practical", "direct"},
	}
}

// Article is a fully generated piece of content ready for quality
// assessment and publishing.
type Article struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	PrimaryKeyword  string   `json:"primary_keyword"`
	Markdown        string   `json:"markdown,omitempty"`
	HTML            string   `json:"html"`
	Categories      []string `json:"categories,omitempty"`
}
