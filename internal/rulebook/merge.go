package rulebook

import (
	"fmt"
	"sort"
	"strings"
)

// Proposal carries requirement changes proposed by external research. Nil
// fields mean "no proposal" and leave the current rule untouched.
type Proposal struct {
	SEO      SEOProposal      `json:"seo,omitempty"`
	EEAT     EEATProposal     `json:"eeat,omitempty"`
	AIO      AIOProposal      `json:"aio,omitempty"`
	AISearch AISearchProposal `json:"ai_search_visibility,omitempty"`
}

// SEOProposal proposes changes to SEO rules.
type SEOProposal struct {
	TitleLength        *Range   `json:"title_length,omitempty"`
	MetaDescription    *Range   `json:"meta_description,omitempty"`
	InternalLinksMin   *int     `json:"internal_links_min,omitempty"`
	ProhibitedPatterns []string `json:"prohibited_patterns,omitempty"`
}

// EEATProposal proposes changes to E-E-A-T rules.
type EEATProposal struct {
	RequireCitations         *bool    `json:"require_citations,omitempty"`
	RequireAuthorBio         *bool    `json:"require_author_bio,omitempty"`
	RequireSocialProof       *bool    `json:"require_social_proof,omitempty"`
	MinCitationsPer1000Words *int     `json:"min_citations_per_1000_words,omitempty"`
	CitationStyle            *string  `json:"citation_style,omitempty"`
	AllowedDomains           []string `json:"allowed_domains,omitempty"`
}

// AIOProposal proposes changes to AI-optimization rules.
type AIOProposal struct {
	QABlocksMin          *int     `json:"qa_blocks_min,omitempty"`
	SummaryBlockRequired *bool    `json:"summary_block_required,omitempty"`
	StructuredData       []string `json:"structured_data,omitempty"`
}

// AISearchProposal proposes changes to AI-search-visibility rules.
type AISearchProposal struct {
	ScannabilityScoreMin     *int  `json:"scannability_score_min,omitempty"`
	ExplicitFactsWithSources *bool `json:"explicit_facts_with_sources,omitempty"`
	ConversationalTone       *bool `json:"conversational_tone,omitempty"`
}

// Change records one effective rule change for the version notes.
type Change struct {
	Field string
	From  string
	To    string
}

// Merge applies a proposal to the current rules conservatively: constraints
// only ever tighten. Range minimums take the max, range maximums the min,
// minimum-only fields the max, requirement booleans OR together, and list
// fields union. A proposal weaker than the current rules is a no-op, which
// also makes Merge idempotent.
func Merge(current Rules, p Proposal) (Rules, []Change) {
	merged := current
	var changes []Change

	note := func(field string, from, to any) {
		changes = append(changes, Change{
			Field: field,
			From:  fmt.Sprintf("%v", from),
			To:    fmt.Sprintf("%v", to),
		})
	}

	// SEO
	if p.SEO.TitleLength != nil {
		merged.SEO.TitleLength = mergeRange(current.SEO.TitleLength, *p.SEO.TitleLength)
		if merged.SEO.TitleLength != current.SEO.TitleLength {
			note("seo.title_length", current.SEO.TitleLength, merged.SEO.TitleLength)
		}
	}
	if p.SEO.MetaDescription != nil {
		merged.SEO.MetaDescription = mergeRange(current.SEO.MetaDescription, *p.SEO.MetaDescription)
		if merged.SEO.MetaDescription != current.SEO.MetaDescription {
			note("seo.meta_description", current.SEO.MetaDescription, merged.SEO.MetaDescription)
		}
	}
	if p.SEO.InternalLinksMin != nil {
		merged.SEO.InternalLinksMin = mergeMin(current.SEO.InternalLinksMin, *p.SEO.InternalLinksMin)
		if merged.SEO.InternalLinksMin != current.SEO.InternalLinksMin {
			note("seo.internal_links_min", current.SEO.InternalLinksMin, merged.SEO.InternalLinksMin)
		}
	}
	if len(p.SEO.ProhibitedPatterns) > 0 {
		merged.SEO.ProhibitedPatterns = mergeSet(current.SEO.ProhibitedPatterns, p.SEO.ProhibitedPatterns)
		if len(merged.SEO.ProhibitedPatterns) != len(current.SEO.ProhibitedPatterns) {
			note("seo.prohibited_patterns", len(current.SEO.ProhibitedPatterns), len(merged.SEO.ProhibitedPatterns))
		}
	}

	// E-E-A-T
	if p.EEAT.RequireCitations != nil {
		merged.EEAT.RequireCitations = current.EEAT.RequireCitations || *p.EEAT.RequireCitations
		if merged.EEAT.RequireCitations != current.EEAT.RequireCitations {
			note("eeat.require_citations", current.EEAT.RequireCitations, merged.EEAT.RequireCitations)
		}
	}
	if p.EEAT.RequireAuthorBio != nil {
		merged.EEAT.RequireAuthorBio = current.EEAT.RequireAuthorBio || *p.EEAT.RequireAuthorBio
		if merged.EEAT.RequireAuthorBio != current.EEAT.RequireAuthorBio {
			note("eeat.require_author_bio", current.EEAT.RequireAuthorBio, merged.EEAT.RequireAuthorBio)
		}
	}
	if p.EEAT.RequireSocialProof != nil {
		merged.EEAT.RequireSocialProof = current.EEAT.RequireSocialProof || *p.EEAT.RequireSocialProof
		if merged.EEAT.RequireSocialProof != current.EEAT.RequireSocialProof {
			note("eeat.require_social_proof", current.EEAT.RequireSocialProof, merged.EEAT.RequireSocialProof)
		}
	}
	if p.EEAT.MinCitationsPer1000Words != nil {
		merged.EEAT.MinCitationsPer1000Words = mergeMin(current.EEAT.MinCitationsPer1000Words, *p.EEAT.MinCitationsPer1000Words)
		if merged.EEAT.MinCitationsPer1000Words != current.EEAT.MinCitationsPer1000Words {
			note("eeat.min_citations_per_1000_words", current.EEAT.MinCitationsPer1000Words, merged.EEAT.MinCitationsPer1000Words)
		}
	}
	if p.EEAT.CitationStyle != nil && current.EEAT.CitationStyle == "" && *p.EEAT.CitationStyle != "" {
		// A citation style is only ever adopted, never replaced.
		merged.EEAT.CitationStyle = *p.EEAT.CitationStyle
		note("eeat.citation_style", "(none)", merged.EEAT.CitationStyle)
	}
	if len(p.EEAT.AllowedDomains) > 0 {
		merged.EEAT.AllowedDomains = mergeSet(current.EEAT.AllowedDomains, p.EEAT.AllowedDomains)
		if len(merged.EEAT.AllowedDomains) != len(current.EEAT.AllowedDomains) {
			note("eeat.allowed_domains", len(current.EEAT.AllowedDomains), len(merged.EEAT.AllowedDomains))
		}
	}

	// AIO
	if p.AIO.QABlocksMin != nil {
		merged.AIO.QABlocksMin = mergeMin(current.AIO.QABlocksMin, *p.AIO.QABlocksMin)
		if merged.AIO.QABlocksMin != current.AIO.QABlocksMin {
			note("aio.qa_blocks_min", current.AIO.QABlocksMin, merged.AIO.QABlocksMin)
		}
	}
	if p.AIO.SummaryBlockRequired != nil {
		merged.AIO.SummaryBlockRequired = current.AIO.SummaryBlockRequired || *p.AIO.SummaryBlockRequired
		if merged.AIO.SummaryBlockRequired != current.AIO.SummaryBlockRequired {
			note("aio.summary_block_required", current.AIO.SummaryBlockRequired, merged.AIO.SummaryBlockRequired)
		}
	}
	if len(p.AIO.StructuredData) > 0 {
		merged.AIO.StructuredData = mergeSet(current.AIO.StructuredData, p.AIO.StructuredData)
		if len(merged.AIO.StructuredData) != len(current.AIO.StructuredData) {
			note("aio.structured_data", len(current.AIO.StructuredData), len(merged.AIO.StructuredData))
		}
	}

	// AI search visibility
	if p.AISearch.ScannabilityScoreMin != nil {
		merged.AISearch.ScannabilityScoreMin = mergeMin(current.AISearch.ScannabilityScoreMin, *p.AISearch.ScannabilityScoreMin)
		if merged.AISearch.ScannabilityScoreMin != current.AISearch.ScannabilityScoreMin {
			note("ai_search_visibility.scannability_score_min", current.AISearch.ScannabilityScoreMin, merged.AISearch.ScannabilityScoreMin)
		}
	}
	if p.AISearch.ExplicitFactsWithSources != nil {
		merged.AISearch.ExplicitFactsWithSources = current.AISearch.ExplicitFactsWithSources || *p.AISearch.ExplicitFactsWithSources
		if merged.AISearch.ExplicitFactsWithSources != current.AISearch.ExplicitFactsWithSources {
			note("ai_search_visibility.explicit_facts_with_sources", current.AISearch.ExplicitFactsWithSources, merged.AISearch.ExplicitFactsWithSources)
		}
	}
	if p.AISearch.ConversationalTone != nil {
		merged.AISearch.ConversationalTone = current.AISearch.ConversationalTone || *p.AISearch.ConversationalTone
		if merged.AISearch.ConversationalTone != current.AISearch.ConversationalTone {
			note("ai_search_visibility.conversational_tone", current.AISearch.ConversationalTone, merged.AISearch.ConversationalTone)
		}
	}

	return merged, changes
}

// FormatNotes renders changes as a human-readable diff summary.
func FormatNotes(changes []Change) string {
	if len(changes) == 0 {
		return "no effective changes (proposal not stricter than current rules)"
	}
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = fmt.Sprintf("%s: %s -> %s", c.Field, c.From, c.To)
	}
	return strings.Join(parts, "; ")
}

func mergeRange(current, proposed Range) Range {
	return Range{
		Min: mergeMin(current.Min, proposed.Min),
		Max: minInt(current.Max, proposed.Max),
	}
}

func mergeMin(current, proposed int) int {
	if proposed > current {
		return proposed
	}
	return current
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func mergeSet(current, proposed []string) []string {
	seen := make(map[string]struct{}, len(current)+len(proposed))
	var out []string
	for _, lists := range [][]string{current, proposed} {
		for _, v := range lists {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
