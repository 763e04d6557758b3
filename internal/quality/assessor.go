package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/orion-content/orion/internal/models"
	"github.com/orion-content/orion/internal/rulebook"
)

// Issue is one quality concern surfaced by the assessment.
type Issue struct {
	Category   string `json:"category"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// Breakdown holds the per-category sub-scores, each 0-100.
type Breakdown struct {
	EEAT               int `json:"eeat"`
	SEO                int `json:"seo"`
	AIO                int `json:"aio"`
	AISearchVisibility int `json:"ai_search_visibility"`
}

// Report is the full quality assessment for one article.
type Report struct {
	OverallScore int                  `json:"overall_score"`
	Breakdown    Breakdown            `json:"breakdown"`
	Issues       []Issue              `json:"issues"`
	Readability  Readability          `json:"readability"`
	SEOChecks    KeywordPlacement     `json:"seo_checks"`
	MetaCheck    MetaDescriptionCheck `json:"meta_check"`
	ImageCheck   ImageAltCheck        `json:"image_check"`
	Originality  OriginalityReport    `json:"originality"`
	Facts        []Claim              `json:"facts"`
}

// Assessor runs the full quality assessment.
type Assessor struct {
	// NewChecker resolves an originality provider name. Overridable in tests.
	NewChecker func(provider string) OriginalityChecker
}

// NewAssessor returns an assessor with the default originality resolution.
func NewAssessor() *Assessor {
	return &Assessor{NewChecker: NewOriginalityChecker}
}

// complexGradeThreshold flags content written above this grade level.
const complexGradeThreshold = 12

// maxUnflaggedClaims is how many unverified claims pass without an issue.
const maxUnflaggedClaims = 5

// Assess scores an article against the rulebook. Individual analyzer
// problems degrade the affected sub-result; they never abort the assessment.
func (a *Assessor) Assess(article models.Article, keyword string, strategy models.Strategy, rules rulebook.Rules) Report {
	var issues []Issue

	readability := AssessReadability(article.HTML)
	if readability.FleschKincaid > complexGradeThreshold {
		issues = append(issues, Issue{
			Category:   "readability",
			Severity:   "medium",
			Message:    fmt.Sprintf("Content may be too complex (Grade Level: %.1f)", readability.FleschKincaid),
			Suggestion: "Consider simplifying sentences and using more common words",
		})
	}

	seoChecks := CheckKeywordPlacement(article.HTML, keyword)

	titleLen := len(article.Title)
	if titleLen < rules.SEO.TitleLength.Min {
		issues = append(issues, Issue{
			Category:   "seo",
			Severity:   "high",
			Message:    fmt.Sprintf("Title too short (%d chars, min: %d)", titleLen, rules.SEO.TitleLength.Min),
			Suggestion: "Expand title with relevant keywords",
		})
	} else if titleLen > rules.SEO.TitleLength.Max {
		issues = append(issues, Issue{
			Category:   "seo",
			Severity:   "high",
			Message:    fmt.Sprintf("Title too long (%d chars, max: %d)", titleLen, rules.SEO.TitleLength.Max),
			Suggestion: "Shorten title while keeping main keyword",
		})
	}

	metaCheck := CheckMetaDescription(article.MetaDescription, rules.SEO.MetaDescription)
	if !metaCheck.WithinRange {
		issues = append(issues, Issue{
			Category:   "seo",
			Severity:   "medium",
			Message:    fmt.Sprintf("Meta description length issue (%d chars)", metaCheck.Length),
			Suggestion: fmt.Sprintf("Should be between %d-%d characters", metaCheck.MinRequired, metaCheck.MaxAllowed),
		})
	}

	if !seoChecks.InTitle {
		issues = append(issues, Issue{
			Category:   "seo",
			Severity:   "high",
			Message:    "Primary keyword not found in title",
			Suggestion: fmt.Sprintf("Include '%s' in the title", keyword),
		})
	}
	if !seoChecks.InFirstPara {
		issues = append(issues, Issue{
			Category:   "seo",
			Severity:   "medium",
			Message:    "Primary keyword not found in first paragraph",
			Suggestion: fmt.Sprintf("Include '%s' early in the content", keyword),
		})
	}

	imageCheck := CheckImageAltText(article.HTML)
	if imageCheck.ComplianceRate < 1.0 {
		issues = append(issues, Issue{
			Category:   "seo",
			Severity:   "medium",
			Message:    fmt.Sprintf("Some images missing alt text (%d/%d)", imageCheck.ImagesWithAlt, imageCheck.TotalImages),
			Suggestion: "Add descriptive alt text to all images",
		})
	}

	newChecker := a.NewChecker
	if newChecker == nil {
		newChecker = NewOriginalityChecker
	}
	originality := newChecker(strategy.OriginalityProvider).Check(article.HTML)

	facts := ExtractClaims(article.HTML)
	if len(facts) > maxUnflaggedClaims {
		issues = append(issues, Issue{
			Category:   "facts",
			Severity:   "medium",
			Message:    fmt.Sprintf("%d claims detected that may need verification", len(facts)),
			Suggestion: "Review numerical claims and ensure proper citations",
		})
	}

	breakdown := scoreBreakdown(article.HTML, rules, readability, seoChecks, metaCheck, facts)

	return Report{
		OverallScore: overallScore(breakdown, rules.EffectiveWeights()),
		Breakdown:    breakdown,
		Issues:       issues,
		Readability:  readability,
		SEOChecks:    seoChecks,
		MetaCheck:    metaCheck,
		ImageCheck:   imageCheck,
		Originality:  originality,
		Facts:        facts,
	}
}

func scoreBreakdown(html string, rules rulebook.Rules, readability Readability,
	seoChecks KeywordPlacement, metaCheck MetaDescriptionCheck, facts []Claim) Breakdown {

	eeat := 80
	if rules.EEAT.RequireCitations && len(facts) == 0 {
		eeat -= 20
	}
	if !rules.EEAT.RequireAuthorBio {
		eeat -= 10
	}

	seo := 50
	if seoChecks.InTitle {
		seo += 20
	}
	if seoChecks.InFirstPara {
		seo += 15
	}
	if metaCheck.WithinRange {
		seo += 15
	}

	aio := 75
	if layout := rules.AIO.ContentLayout; len(layout) > 0 {
		lower := strings.ToLower(html)
		found := 0
		for _, section := range layout {
			if strings.Contains(lower, strings.ToLower(section)) {
				found++
			}
		}
		aio = int(float64(found) / float64(len(layout)) * 100)
	}

	aiSearch := 70
	if readability.FleschReadingEase > 60 {
		aiSearch += 15
	}
	if countHeadings(html) >= 3 {
		aiSearch += 15
	}

	return Breakdown{EEAT: eeat, SEO: seo, AIO: aio, AISearchVisibility: aiSearch}
}

// overallScore combines the sub-scores by weight, rounded half away from
// zero and clamped to [0,100].
func overallScore(b Breakdown, w rulebook.Weights) int {
	score := float64(b.EEAT)*w.EEAT +
		float64(b.SEO)*w.SEO +
		float64(b.AIO)*w.AIO +
		float64(b.AISearchVisibility)*w.AISearchVisibility
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
