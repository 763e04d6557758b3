// Package rulebook holds the versioned content-governance rules shared by
// every site: what counts as acceptable SEO, E-E-A-T, AI-optimization, and
// AI-search-visibility, plus the enforcement policy applied at publish time.
package rulebook

import (
	"fmt"
	"math"
)

// WeightEpsilon is the tolerance when checking that score weights sum to 1.
const WeightEpsilon = 0.001

// Range is a numeric constraint window. Conservative merges only tighten it:
// Min can only rise and Max can only fall.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// SEORules constrain on-page SEO attributes.
type SEORules struct {
	TitleLength        Range    `json:"title_length" yaml:"title_length"`
	MetaDescription    Range    `json:"meta_description" yaml:"meta_description"`
	InternalLinksMin   int      `json:"internal_links_min" yaml:"internal_links_min"`
	ProhibitedPatterns []string `json:"prohibited_patterns,omitempty" yaml:"prohibited_patterns"`
}

// EEATRules constrain experience/expertise/authoritativeness/trust signals.
type EEATRules struct {
	RequireCitations         bool     `json:"require_citations" yaml:"require_citations"`
	RequireAuthorBio         bool     `json:"require_author_bio" yaml:"require_author_bio"`
	RequireSocialProof       bool     `json:"require_social_proof" yaml:"require_social_proof"`
	MinCitationsPer1000Words int      `json:"min_citations_per_1000_words" yaml:"min_citations_per_1000_words"`
	CitationStyle            string   `json:"citation_style,omitempty" yaml:"citation_style"`
	AllowedDomains           []string `json:"allowed_domains,omitempty" yaml:"allowed_domains"`
}

// AIORules constrain content structure for AI answer extraction.
type AIORules struct {
	ContentLayout        []string `json:"content_layout,omitempty" yaml:"content_layout"`
	QABlocksMin          int      `json:"qa_blocks_min" yaml:"qa_blocks_min"`
	SummaryBlockRequired bool     `json:"summary_block_required" yaml:"summary_block_required"`
	StructuredData       []string `json:"structured_data,omitempty" yaml:"structured_data"`
}

// AISearchRules constrain visibility in AI-driven search surfaces.
type AISearchRules struct {
	ScannabilityScoreMin     int  `json:"scannability_score_min" yaml:"scannability_score_min"`
	ExplicitFactsWithSources bool `json:"explicit_facts_with_sources" yaml:"explicit_facts_with_sources"`
	ConversationalTone       bool `json:"conversational_tone" yaml:"conversational_tone"`
}

// Enforcement is the publish-gating policy.
type Enforcement struct {
	DefaultMinQualityScore int    `json:"default_min_quality_score" yaml:"default_min_quality_score"`
	BlockPublishIfBelow    bool   `json:"block_publish_if_below" yaml:"block_publish_if_below"`
	TagIfBelow             string `json:"tag_if_below" yaml:"tag_if_below"`
}

// Weights are the per-category score weights. They must sum to 1.0.
type Weights struct {
	EEAT               float64 `json:"eeat" yaml:"eeat"`
	SEO                float64 `json:"seo" yaml:"seo"`
	AIO                float64 `json:"aio" yaml:"aio"`
	AISearchVisibility float64 `json:"ai_search_visibility" yaml:"ai_search_visibility"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.EEAT + w.SEO + w.AIO + w.AISearchVisibility
}

// Valid reports whether the weights sum to 1.0 within tolerance.
func (w Weights) Valid() bool {
	return math.Abs(w.Sum()-1.0) <= WeightEpsilon
}

// Rules is one complete rulebook snapshot.
type Rules struct {
	SEO          SEORules      `json:"seo" yaml:"seo"`
	EEAT         EEATRules     `json:"eeat" yaml:"eeat"`
	AIO          AIORules      `json:"aio" yaml:"aio"`
	AISearch     AISearchRules `json:"ai_search_visibility" yaml:"ai_search_visibility"`
	Enforcement  Enforcement   `json:"enforcement" yaml:"enforcement"`
	ScoreWeights *Weights      `json:"score_weights,omitempty" yaml:"score_weights"`
}

// DefaultWeights are used whenever a rulebook carries no score_weights.
func DefaultWeights() Weights {
	return Weights{EEAT: 0.35, SEO: 0.30, AIO: 0.20, AISearchVisibility: 0.15}
}

// EffectiveWeights returns the rulebook's weights, or the defaults when the
// rulebook has none or they fail validation.
func (r Rules) EffectiveWeights() Weights {
	if r.ScoreWeights != nil && r.ScoreWeights.Valid() {
		return *r.ScoreWeights
	}
	return DefaultWeights()
}

// DefaultRules returns the canonical version-0 rulebook. The enforcement
// threshold of 80 is the single canonical default for the whole system.
func DefaultRules() Rules {
	w := DefaultWeights()
	return Rules{
		SEO: SEORules{
			TitleLength:      Range{Min: 40, Max: 60},
			MetaDescription:  Range{Min: 150, Max: 160},
			InternalLinksMin: 2,
		},
		EEAT: EEATRules{
			RequireCitations: true,
			RequireAuthorBio: true,
		},
		AIO: AIORules{
			ContentLayout: []string{"intro", "key_points", "how_to", "faqs", "summary"},
		},
		AISearch: AISearchRules{
			ScannabilityScoreMin: 70,
		},
		Enforcement: Enforcement{
			DefaultMinQualityScore: 80,
			BlockPublishIfBelow:    false,
			TagIfBelow:             "review-needed",
		},
		ScoreWeights: &w,
	}
}

// ValidationError marks a malformed rulebook payload. Malformed rulebooks
// are rejected before use, never silently coerced.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rulebook: %s: %s", e.Field, e.Msg)
}

// Validate rejects rulebooks with inverted ranges or bad score weights.
func (r Rules) Validate() error {
	if r.SEO.TitleLength.Min > r.SEO.TitleLength.Max {
		return &ValidationError{Field: "seo.title_length", Msg: "min exceeds max"}
	}
	if r.SEO.MetaDescription.Min > r.SEO.MetaDescription.Max {
		return &ValidationError{Field: "seo.meta_description", Msg: "min exceeds max"}
	}
	if r.SEO.InternalLinksMin < 0 {
		return &ValidationError{Field: "seo.internal_links_min", Msg: "must not be negative"}
	}
	if r.Enforcement.DefaultMinQualityScore < 0 || r.Enforcement.DefaultMinQualityScore > 100 {
		return &ValidationError{Field: "enforcement.default_min_quality_score", Msg: "must be in [0,100]"}
	}
	if r.ScoreWeights != nil && !r.ScoreWeights.Valid() {
		return &ValidationError{
			Field: "score_weights",
			Msg:   fmt.Sprintf("must sum to 1.0, got %.3f", r.ScoreWeights.Sum()),
		}
	}
	return nil
}
