package quality

import (
	"regexp"
	"strconv"
	"strings"
)

// Claim is one numerical statement flagged for human verification.
type Claim struct {
	Claim       string  `json:"claim"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Context     string  `json:"context"`
	NeedsReview bool    `json:"needs_review"`
	Note        string  `json:"note,omitempty"`
}

var (
	percentageRe = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*%`)
	statisticRe  = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s+(people|users|customers|studies|reports|cases)`)
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// staleYearCutoff flags references older than this as potentially outdated.
const staleYearCutoff = 2020

// ExtractClaims scans the content for percentages, headline statistics, and
// old year references. Every claim needs review; nothing is verified here.
func ExtractClaims(html string) []Claim {
	text := stripHTML(html)
	var claims []Claim

	for _, m := range percentageRe.FindAllStringSubmatchIndex(text, -1) {
		value, _ := strconv.ParseFloat(text[m[2]:m[3]], 64)
		claims = append(claims, Claim{
			Claim:       text[m[0]:m[1]],
			Type:        "percentage",
			Value:       value,
			Context:     claimContext(text, m[0], m[1]),
			NeedsReview: true,
		})
	}

	for _, m := range statisticRe.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
		value, _ := strconv.ParseFloat(raw, 64)
		claims = append(claims, Claim{
			Claim:       text[m[0]:m[1]],
			Type:        "statistic",
			Value:       value,
			Context:     claimContext(text, m[0], m[1]),
			NeedsReview: true,
		})
	}

	for _, m := range yearRe.FindAllStringIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[0]:m[1]])
		if year >= staleYearCutoff {
			continue
		}
		claims = append(claims, Claim{
			Claim:       text[m[0]:m[1]],
			Type:        "date_reference",
			Value:       float64(year),
			Context:     claimContext(text, m[0], m[1]),
			NeedsReview: true,
			Note:        "Potentially outdated reference",
		})
	}

	return claims
}

// claimContext returns up to 50 characters of surrounding text on each side.
func claimContext(text string, start, end int) string {
	const window = 50
	from := start - window
	if from < 0 {
		from = 0
	}
	to := end + window
	if to > len(text) {
		to = len(text)
	}
	return strings.TrimSpace(text[from:to])
}
