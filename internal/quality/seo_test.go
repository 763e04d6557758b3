package quality

import (
	"testing"

	"github.com/orion-content/orion/internal/rulebook"
)

func TestCheckKeywordPlacement(t *testing.T) {
	html := `<h1>CRM Software Guide</h1><p>Choosing CRM software takes research.</p><p>Second paragraph.</p>`

	p := CheckKeywordPlacement(html, "CRM Software")
	if !p.InTitle || !p.InH1 {
		t.Error("expected keyword found in h1 title")
	}
	if !p.InFirstPara {
		t.Error("expected keyword found in first paragraph")
	}
	if !p.InContent {
		t.Error("expected keyword found in content")
	}

	p = CheckKeywordPlacement(html, "email marketing")
	if p.InTitle || p.InFirstPara || p.InContent {
		t.Errorf("expected keyword absent everywhere, got %+v", p)
	}
}

func TestCheckKeywordPlacementTitleFallback(t *testing.T) {
	html := `<html><head><title>Email Marketing Basics</title></head><body><p>Intro text.</p></body></html>`
	p := CheckKeywordPlacement(html, "email marketing")
	if !p.InTitle {
		t.Error("expected title element fallback when no h1 exists")
	}
}

func TestCheckMetaDescription(t *testing.T) {
	r := rulebook.Range{Min: 150, Max: 160}

	short := CheckMetaDescription("too short", r)
	if short.WithinRange {
		t.Error("expected short meta description out of range")
	}
	if short.Length != 9 || short.MinRequired != 150 || short.MaxAllowed != 160 {
		t.Errorf("unexpected check: %+v", short)
	}

	good := CheckMetaDescription(makeString(155), r)
	if !good.WithinRange {
		t.Error("expected 155-char meta description in range")
	}
}

func TestCheckImageAltText(t *testing.T) {
	html := `<img src="a.png" alt="A chart showing growth"><img src="b.png"><img src="c.png" alt="  ">`
	check := CheckImageAltText(html)
	if check.TotalImages != 3 {
		t.Errorf("expected 3 images, got %d", check.TotalImages)
	}
	if check.ImagesWithAlt != 1 {
		t.Errorf("expected 1 image with alt, got %d", check.ImagesWithAlt)
	}
	if check.ComplianceRate < 0.33 || check.ComplianceRate > 0.34 {
		t.Errorf("unexpected compliance rate %v", check.ComplianceRate)
	}
}

func TestCheckImageAltTextNoImages(t *testing.T) {
	check := CheckImageAltText("<p>No images here.</p>")
	if check.ComplianceRate != 1.0 {
		t.Errorf("expected full compliance without images, got %v", check.ComplianceRate)
	}
}

func TestCountHeadings(t *testing.T) {
	html := `<h1>A</h1><p>x</p><h2>B</h2><h3 class="sub">C</h3>`
	if got := countHeadings(html); got != 3 {
		t.Errorf("expected 3 headings, got %d", got)
	}
}

func makeString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
