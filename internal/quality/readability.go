// Package quality assesses generated articles against the rulebook:
// readability, SEO basics, originality, fact flags, weighted scoring, and
// the publish gate.
package quality

import (
	"math"
	"regexp"
	"strings"
)

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	sentenceRe    = regexp.MustCompile(`[.!?]+`)
	nonLetterRe   = regexp.MustCompile(`[^a-z]`)
	vowelGroupRe  = regexp.MustCompile(`[aeiouy]+`)
	headingOpenRe = regexp.MustCompile(`(?i)<h[1-6][^>]*>`)
)

// Readability summarizes how hard the text is to read.
type Readability struct {
	FleschKincaid     float64 `json:"flesch_kincaid"`
	FleschReadingEase float64 `json:"flesch_reading_ease"`
	Grade             string  `json:"grade"`
}

// stripHTML removes markup so word and syllable counts see only prose.
func stripHTML(text string) string {
	return htmlTagRe.ReplaceAllString(text, "")
}

func countSentences(text string) int {
	return len(sentenceRe.FindAllString(text, -1))
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// countSyllables approximates syllables by vowel groups, with a silent-e
// adjustment and a floor of one per word.
func countSyllables(text string) int {
	total := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = nonLetterRe.ReplaceAllString(word, "")
		if word == "" {
			continue
		}
		groups := len(vowelGroupRe.FindAllString(word, -1))
		if strings.HasSuffix(word, "e") && groups > 1 {
			groups--
		}
		if groups < 1 {
			groups = 1
		}
		total += groups
	}
	return total
}

// FleschKincaidGrade returns the Flesch-Kincaid grade level, floored at 0
// and rounded to one decimal. Empty text scores 0.
func FleschKincaidGrade(text string) float64 {
	plain := stripHTML(text)
	sentences := countSentences(plain)
	words := countWords(plain)
	if sentences == 0 || words == 0 {
		return 0
	}
	syllables := countSyllables(plain)

	grade := 0.39*(float64(words)/float64(sentences)) +
		11.8*(float64(syllables)/float64(words)) - 15.59
	return math.Max(0, math.Round(grade*10)/10)
}

// FleschReadingEase returns the reading-ease score clamped to [0,100] and
// rounded to one decimal. Empty text scores 0.
func FleschReadingEase(text string) float64 {
	plain := stripHTML(text)
	sentences := countSentences(plain)
	words := countWords(plain)
	if sentences == 0 || words == 0 {
		return 0
	}
	syllables := countSyllables(plain)

	score := 206.835 - 1.015*(float64(words)/float64(sentences)) -
		84.6*(float64(syllables)/float64(words))
	return math.Round(math.Max(0, math.Min(100, score))*10) / 10
}

// AssessReadability computes both metrics and the coarse grade band.
func AssessReadability(text string) Readability {
	grade := FleschKincaidGrade(text)
	band := "middle_school"
	switch {
	case grade > 13:
		band = "college"
	case grade > 9:
		band = "high_school"
	}
	return Readability{
		FleschKincaid:     grade,
		FleschReadingEase: FleschReadingEase(text),
		Grade:             band,
	}
}
