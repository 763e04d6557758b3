package enrich

import (
	"fmt"
	"strings"

	"github.com/orion-content/orion/internal/models"
)

// namedArchetypes are the selectable section templates beyond the default.
var namedArchetypes = []string{"listicle", "howto", "analysis", "interview", "case_study"}

func isNamedArchetype(name string) bool {
	for _, a := range namedArchetypes {
		if a == name {
			return true
		}
	}
	return false
}

// archetypeSections returns the markdown sections for a named archetype, or
// nil for the default template (which follows the outline instead).
func (b *Builder) archetypeSections(archetype string, topic models.Topic, mainTopic string) []string {
	switch archetype {
	case "listicle":
		return listicleSections(topic, mainTopic)
	case "howto":
		return howtoSections(topic, mainTopic)
	case "analysis":
		return analysisSections(topic, mainTopic)
	case "interview":
		return interviewSections(topic, mainTopic)
	case "case_study":
		return caseStudySections(topic, mainTopic)
	default:
		return nil
	}
}

func listicleSections(topic models.Topic, t string) []string {
	points := []string{
		fmt.Sprintf("Strategic implementation of %s drives competitive advantage", t),
		fmt.Sprintf("Organizations are seeing measurable ROI from %s investments", t),
		fmt.Sprintf("Future-proofing requires understanding %s fundamentals", t),
		fmt.Sprintf("Cross-functional collaboration enhances %s effectiveness", t),
		fmt.Sprintf("Data-driven approaches to %s yield better outcomes", t),
	}

	var list strings.Builder
	fmt.Fprintf(&list, "## Top 5 Insights About %s\n", t)
	for i, point := range points {
		fmt.Fprintf(&list, "\n### %d. %s\n\nThis insight demonstrates how %s continues to evolve and impact business operations across industries.\n", i+1, point, t)
	}

	return []string{
		fmt.Sprintf("## Why %s Matters Now\n\nIn today's fast-paced world, understanding %s is more important than ever. %s Here are the key insights that industry professionals need to know.", t, t, topic.Angle),
		strings.TrimRight(list.String(), "\n"),
		fmt.Sprintf("## Next Steps\n\nReady to leverage %s in your organization? Start by assessing your current capabilities and identifying key areas for improvement.", t),
	}
}

func howtoSections(topic models.Topic, t string) []string {
	steps := []struct{ title, desc string }{
		{"Assessment and Planning", fmt.Sprintf("Begin by evaluating your current %s maturity and identifying specific goals.", t)},
		{"Implementation Strategy", fmt.Sprintf("Develop a phased approach to %s deployment that minimizes risk.", t)},
		{"Execution and Monitoring", fmt.Sprintf("Launch your %s initiative with proper tracking and measurement systems.", t)},
		{"Optimization and Scaling", fmt.Sprintf("Refine your approach based on results and expand %s across your organization.", t)},
	}

	var roadmap strings.Builder
	roadmap.WriteString("## Implementation Roadmap\n")
	for i, step := range steps {
		fmt.Fprintf(&roadmap, "\n### Step %d: %s\n\n%s\n", i+1, step.title, step.desc)
	}

	return []string{
		fmt.Sprintf("## The Challenge\n\nMany organizations struggle with implementing %s effectively. %s This guide provides a systematic approach to success.", t, topic.Angle),
		fmt.Sprintf("## Before You Begin\n\n- Basic understanding of %s concepts\n- Access to relevant tools and resources\n- Stakeholder buy-in and support", t),
		strings.TrimRight(roadmap.String(), "\n"),
		fmt.Sprintf("## Measuring Success\n\nTrack these key indicators to ensure your %s implementation is delivering value and meeting objectives.", t),
	}
}

func analysisSections(topic models.Topic, t string) []string {
	confidence := "early indicators"
	switch {
	case topic.Score > 0.7:
		confidence = "strong momentum"
	case topic.Score > 0.4:
		confidence = "emerging trends"
	}

	return []string{
		fmt.Sprintf("## Executive Summary\n\nCurrent market analysis reveals %s in %s adoption. %s Key stakeholders should monitor these developments closely.", confidence, t, topic.Angle),
		fmt.Sprintf("## Market Analysis\n\nThe %s landscape is characterized by rapid innovation and increasing investment. Organizations are recognizing the strategic value of %s initiatives.", t, t),
		fmt.Sprintf("## Key Success Factors\n\n- Leadership commitment to %s transformation\n- Investment in proper tools and training\n- Clear measurement and accountability systems", t),
		fmt.Sprintf("## Looking Ahead\n\nThe future of %s will likely be shaped by continued technological advancement and evolving business needs. Organizations that prepare now will be better positioned for success.", t),
	}
}

func interviewSections(topic models.Topic, t string) []string {
	qa := []struct{ q, a string }{
		{
			fmt.Sprintf("What makes %s such a critical focus area right now?", t),
			fmt.Sprintf("The convergence of market forces and technological capabilities has created unprecedented opportunities in %s.", t),
		},
		{
			fmt.Sprintf("What are the biggest challenges organizations face with %s?", t),
			"Most organizations struggle with change management and ensuring proper integration across existing systems.",
		},
		{
			fmt.Sprintf("What advice would you give to leaders considering %s investments?", t),
			"Start with a clear strategy, secure leadership commitment, and focus on building internal capabilities alongside technology deployment.",
		},
		{
			fmt.Sprintf("Where do you see %s heading in the next few years?", t),
			fmt.Sprintf("We expect continued evolution toward more integrated, intelligent, and user-friendly %s solutions.", t),
		},
	}

	var qaBlock strings.Builder
	for _, pair := range qa {
		fmt.Fprintf(&qaBlock, "### Q: %s\n\n**A:** %s\n\n", pair.q, pair.a)
	}

	return []string{
		fmt.Sprintf("## Expert Insights on %s\n\nWe sat down with industry experts to discuss the current state and future of %s. %s", t, t, topic.Angle),
		strings.TrimRight(qaBlock.String(), "\n"),
		fmt.Sprintf("## Key Takeaways\n\nSuccess with %s requires strategic thinking, proper planning, and commitment to continuous improvement.", t),
	}
}

func caseStudySections(topic models.Topic, t string) []string {
	impact := "initial"
	switch {
	case topic.Score > 0.7:
		impact = "significant"
	case topic.Score > 0.4:
		impact = "measurable"
	}

	return []string{
		fmt.Sprintf("## The Challenge\n\nA mid-size organization faced significant challenges in their %s implementation. %s Traditional approaches were not delivering the expected results.", t, topic.Angle),
		fmt.Sprintf("## The Approach\n\nThe organization developed a comprehensive strategy focusing on people, process, and technology aspects of %s. This multi-faceted approach addressed root causes rather than just symptoms.", t),
		fmt.Sprintf("## Implementation\n\nOver a six-month period, the team executed their %s transformation plan with careful attention to change management and stakeholder engagement.", t),
		fmt.Sprintf("## Results\n\nThe initiative delivered %s improvements across key performance indicators, demonstrating the value of a strategic approach to %s.", impact, t),
		fmt.Sprintf("## Lessons Learned\n\nKey success factors included executive sponsorship, cross-functional collaboration, and a commitment to iterative improvement in %s capabilities.", t),
	}
}

// extractMainTopic pulls the subject out of a generated title.
func extractMainTopic(title string) string {
	for _, sep := range []string{"—", ":", "Update:", "Latest in", "Analysis:", "Breaking:"} {
		if strings.Contains(title, sep) {
			parts := strings.Split(title, sep)
			topic := strings.TrimSpace(parts[len(parts)-1])
			topic = strings.ReplaceAll(topic, "A ", "")
			topic = strings.ReplaceAll(topic, "The ", "")
			if topic != "" {
				return topic
			}
		}
	}
	clean := strings.ReplaceAll(title, "Trend #", "")
	clean = strings.ReplaceAll(clean, "Breaking:", "")
	words := strings.Fields(clean)
	if len(words) > 3 {
		words = words[:3]
	}
	if out := strings.TrimSpace(strings.Join(words, " ")); out != "" {
		return out
	}
	return "Technology"
}

var categoryKeywords = map[string][]string{
	"Technology": {"tech", "technology", "ai", "artificial intelligence", "cloud", "computing", "software"},
	"Business":   {"business", "market", "financial", "strategy", "leadership", "management"},
	"Innovation": {"innovation", "future", "emerging", "breakthrough", "disruption"},
	"Analysis":   {"analysis", "insights", "trends", "data", "research"},
	"Industry":   {"industry", "sector", "professional", "enterprise", "corporate"},
}

// categoryOrder keeps extraction deterministic across runs.
var categoryOrder = []string{"Technology", "Business", "Innovation", "Analysis", "Industry"}

// extractCategories maps title keywords to site categories, capped at three.
func extractCategories(title string) []string {
	lower := strings.ToLower(title)
	var matched []string
	for _, category := range categoryOrder {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lower, keyword) {
				matched = append(matched, category)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []string{"General", "Industry News"}
	}
	if len(matched) > 3 {
		matched = matched[:3]
	}
	return matched
}
