package rulebook

import (
	"reflect"
	"testing"
)

func intp(v int) *int       { return &v }
func boolp(v bool) *bool    { return &v }
func strp(v string) *string { return &v }

func TestMergeTightensOnly(t *testing.T) {
	current := DefaultRules()
	p := Proposal{
		SEO: SEOProposal{
			TitleLength:      &Range{Min: 50, Max: 70},
			InternalLinksMin: intp(4),
		},
		EEAT: EEATProposal{
			RequireSocialProof: boolp(true),
		},
		AISearch: AISearchProposal{
			ScannabilityScoreMin: intp(85),
		},
	}

	merged, changes := Merge(current, p)

	// Min rises, but the weaker proposed max never loosens the current one.
	if merged.SEO.TitleLength != (Range{Min: 50, Max: 60}) {
		t.Errorf("title length: got %+v", merged.SEO.TitleLength)
	}
	if merged.SEO.InternalLinksMin != 4 {
		t.Errorf("internal links min: got %d", merged.SEO.InternalLinksMin)
	}
	if !merged.EEAT.RequireSocialProof {
		t.Error("expected social proof requirement adopted")
	}
	if merged.AISearch.ScannabilityScoreMin != 85 {
		t.Errorf("scannability: got %d", merged.AISearch.ScannabilityScoreMin)
	}
	if len(changes) != 4 {
		t.Errorf("expected 4 changes, got %d: %v", len(changes), changes)
	}
}

func TestMergeWeakerProposalIsNoOp(t *testing.T) {
	current := DefaultRules()
	p := Proposal{
		SEO: SEOProposal{
			TitleLength:      &Range{Min: 30, Max: 80},
			InternalLinksMin: intp(1),
		},
		EEAT: EEATProposal{
			RequireCitations: boolp(false),
		},
		AISearch: AISearchProposal{
			ScannabilityScoreMin: intp(50),
		},
	}

	merged, changes := Merge(current, p)

	if !reflect.DeepEqual(merged, current) {
		t.Errorf("expected no changes, got %+v", merged)
	}
	if len(changes) != 0 {
		t.Errorf("expected no change notes, got %v", changes)
	}
}

func TestMergeIdempotent(t *testing.T) {
	current := DefaultRules()
	p := Proposal{
		SEO: SEOProposal{
			MetaDescription:  &Range{Min: 155, Max: 160},
			InternalLinksMin: intp(4),
		},
		AIO: AIOProposal{
			QABlocksMin:    intp(3),
			StructuredData: []string{"Article", "FAQPage", "HowTo"},
		},
	}

	once, firstChanges := Merge(current, p)
	twice, secondChanges := Merge(once, p)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
	if len(firstChanges) == 0 {
		t.Error("expected effective changes on first merge")
	}
	if len(secondChanges) != 0 {
		t.Errorf("expected no changes on second merge, got %v", secondChanges)
	}
}

func TestMergeSetsUnionSorted(t *testing.T) {
	current := DefaultRules()
	current.SEO.ProhibitedPatterns = []string{"click here", "in this article"}

	p := Proposal{
		SEO: SEOProposal{
			ProhibitedPatterns: []string{"as an ai", "click here"},
		},
	}

	merged, _ := Merge(current, p)
	want := []string{"as an ai", "click here", "in this article"}
	if !reflect.DeepEqual(merged.SEO.ProhibitedPatterns, want) {
		t.Errorf("expected sorted union %v, got %v", want, merged.SEO.ProhibitedPatterns)
	}
}

func TestMergeAdoptsCitationStyleOnlyWhenUnset(t *testing.T) {
	current := DefaultRules()
	merged, _ := Merge(current, Proposal{EEAT: EEATProposal{CitationStyle: strp("harvard")}})
	if merged.EEAT.CitationStyle != "harvard" {
		t.Errorf("expected harvard adopted, got %q", merged.EEAT.CitationStyle)
	}

	again, changes := Merge(merged, Proposal{EEAT: EEATProposal{CitationStyle: strp("apa")}})
	if again.EEAT.CitationStyle != "harvard" {
		t.Errorf("expected existing style kept, got %q", again.EEAT.CitationStyle)
	}
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %v", changes)
	}
}

func TestFormatNotes(t *testing.T) {
	if got := FormatNotes(nil); got != "no effective changes (proposal not stricter than current rules)" {
		t.Errorf("unexpected empty-diff notes: %q", got)
	}

	notes := FormatNotes([]Change{
		{Field: "seo.internal_links_min", From: "2", To: "4"},
		{Field: "aio.qa_blocks_min", From: "0", To: "3"},
	})
	want := "seo.internal_links_min: 2 -> 4; aio.qa_blocks_min: 0 -> 3"
	if notes != want {
		t.Errorf("expected %q, got %q", want, notes)
	}
}

func TestWeightsValidation(t *testing.T) {
	if !DefaultWeights().Valid() {
		t.Error("default weights must sum to 1.0")
	}

	bad := Weights{EEAT: 0.5, SEO: 0.5, AIO: 0.5, AISearchVisibility: 0.5}
	if bad.Valid() {
		t.Error("expected invalid weights")
	}

	r := DefaultRules()
	r.ScoreWeights = &bad
	if err := r.Validate(); err == nil {
		t.Error("expected validation error for bad weights")
	}
	if r.EffectiveWeights() != DefaultWeights() {
		t.Error("expected fallback to default weights")
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	r := DefaultRules()
	r.SEO.MetaDescription = Range{Min: 170, Max: 160}
	if err := r.Validate(); err == nil {
		t.Error("expected validation error for inverted range")
	}
}
