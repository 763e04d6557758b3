package quality

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/orion-content/orion/internal/rulebook"
)

// KeywordPlacement records where the primary keyword appears.
type KeywordPlacement struct {
	InTitle     bool `json:"keyword_in_title"`
	InH1        bool `json:"keyword_in_h1"`
	InFirstPara bool `json:"keyword_in_first_para"`
	InContent   bool `json:"keyword_in_content"`
}

// MetaDescriptionCheck is the length compliance result.
type MetaDescriptionCheck struct {
	Length      int  `json:"length"`
	WithinRange bool `json:"within_range"`
	MinRequired int  `json:"min_required"`
	MaxAllowed  int  `json:"max_allowed"`
}

// ImageAltCheck is the image alt-text audit result.
type ImageAltCheck struct {
	TotalImages    int     `json:"total_images"`
	ImagesWithAlt  int     `json:"images_with_alt"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// CheckKeywordPlacement inspects the HTML for the primary keyword in the
// title (first h1, falling back to the title element), the first paragraph,
// and the body at large. Unparseable HTML degrades to a body-only check.
func CheckKeywordPlacement(html, primaryKeyword string) KeywordPlacement {
	keyword := strings.ToLower(primaryKeyword)
	placement := KeywordPlacement{
		InContent: strings.Contains(strings.ToLower(html), keyword),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return placement
	}

	title := doc.Find("h1").First().Text()
	if title == "" {
		title = doc.Find("title").First().Text()
	}
	inTitle := strings.Contains(strings.ToLower(title), keyword)
	placement.InTitle = inTitle
	placement.InH1 = inTitle

	firstPara := doc.Find("p").First().Text()
	placement.InFirstPara = strings.Contains(strings.ToLower(firstPara), keyword)

	return placement
}

// CheckMetaDescription checks the meta description against the rulebook range.
func CheckMetaDescription(meta string, r rulebook.Range) MetaDescriptionCheck {
	length := len(meta)
	return MetaDescriptionCheck{
		Length:      length,
		WithinRange: length >= r.Min && length <= r.Max,
		MinRequired: r.Min,
		MaxAllowed:  r.Max,
	}
}

// CheckImageAltText audits img elements for non-empty alt attributes.
// A document without images is fully compliant.
func CheckImageAltText(html string) ImageAltCheck {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ImageAltCheck{ComplianceRate: 1.0}
	}

	check := ImageAltCheck{}
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		check.TotalImages++
		if strings.TrimSpace(sel.AttrOr("alt", "")) != "" {
			check.ImagesWithAlt++
		}
	})

	if check.TotalImages == 0 {
		check.ComplianceRate = 1.0
	} else {
		check.ComplianceRate = float64(check.ImagesWithAlt) / float64(check.TotalImages)
	}
	return check
}

// countHeadings counts h1-h6 opening tags in the raw HTML.
func countHeadings(html string) int {
	return len(headingOpenRe.FindAllString(html, -1))
}
